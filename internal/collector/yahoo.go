package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultBaseURL  = "https://finance.yahoo.com"
	DefaultAPIURL   = "https://query2.finance.yahoo.com"
	DefaultCrumbURL = "https://query1.finance.yahoo.com/v1/test/getcrumb"

	summaryModules = "price,summaryDetail,earnings,incomeStatementHistoryQuarterly,financialData,recommendationTrend"
)

// YahooFetcher implements Fetcher against Yahoo Finance pages through a Session.
type YahooFetcher struct {
	Session *Session
	BaseURL string
	APIURL  string
}

// NewYahooFetcher creates a fetcher. Empty URLs fall back to the public endpoints.
func NewYahooFetcher(sess *Session, baseURL, apiURL string) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &YahooFetcher{
		Session: sess,
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIURL:  strings.TrimRight(apiURL, "/"),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// FinancialsURL is the income statement page of a symbol.
func (f *YahooFetcher) FinancialsURL(symbol string) string {
	return fmt.Sprintf("%s/quote/%s/financials/", f.BaseURL, url.PathEscape(symbol))
}

// QuoteURL is the quote overview page of a symbol.
func (f *YahooFetcher) QuoteURL(symbol string) string {
	return fmt.Sprintf("%s/quote/%s/", f.BaseURL, url.PathEscape(symbol))
}

// SummaryURL is the crumb-protected quoteSummary endpoint.
func (f *YahooFetcher) SummaryURL(symbol, crumb string) string {
	q := url.Values{}
	q.Set("modules", summaryModules)
	q.Set("crumb", crumb)
	return fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", f.APIURL, url.PathEscape(symbol), q.Encode())
}

// FetchFinancials is the gated primary fetch of a query.
func (f *YahooFetcher) FetchFinancials(ctx context.Context, symbol string) (string, error) {
	return f.Session.Fetch(ctx, f.FinancialsURL(symbol))
}

// FetchQuote is only used as a follow-up when the financials page is unusable.
func (f *YahooFetcher) FetchQuote(ctx context.Context, symbol string) (string, error) {
	return f.Session.FetchFollowup(ctx, f.QuoteURL(symbol))
}

func (f *YahooFetcher) FetchSummary(ctx context.Context, symbol string) ([]byte, error) {
	crumb, err := f.Session.Crumb()
	if err != nil {
		return nil, fmt.Errorf("quote summary for %s: %w", symbol, err)
	}
	return f.Session.FetchJSON(ctx, f.SummaryURL(symbol, crumb))
}
