package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Scout/internal/extractor"
	"Scout/internal/model"
)

// MockFetcher returns canned documents for development and testing.
type MockFetcher struct {
	Financials string
	Quote      string
	Summary    []byte
	Err        error // returned by every call when set
	QuoteErr   error

	Calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchFinancials(_ context.Context, symbol string) (string, error) {
	m.Calls = append(m.Calls, "financials:"+symbol)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Financials, nil
}

func (m *MockFetcher) FetchQuote(_ context.Context, symbol string) (string, error) {
	m.Calls = append(m.Calls, "quote:"+symbol)
	if m.Err != nil {
		return "", m.Err
	}
	if m.QuoteErr != nil {
		return "", m.QuoteErr
	}
	return m.Quote, nil
}

func (m *MockFetcher) FetchSummary(_ context.Context, symbol string) ([]byte, error) {
	m.Calls = append(m.Calls, "summary:"+symbol)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Summary, nil
}

// Collector fetches upstream documents and runs them through the extractor.
type Collector struct {
	Fetcher   Fetcher
	Extractor *extractor.Extractor
	log       *zap.Logger
	now       func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, ex *extractor.Extractor, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, Extractor: ex, log: log, now: time.Now}
}

// Collect fetches the financials page of a ticker and extracts its data. When
// the page is unrecognizable the quote page is fetched and tried once more.
func (c *Collector) Collect(ctx context.Context, ticker model.Ticker) (*model.Report, error) {
	symbol := ticker.Symbol
	html, err := c.Fetcher.FetchFinancials(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch financials for %s: %w", symbol, err)
	}

	res, err := c.Extractor.Extract(html)
	if err == nil {
		return c.report(ticker, model.SourceFinancials, res), nil
	}
	if !errors.Is(err, extractor.ErrUnrecognizedPageFormat) {
		return nil, fmt.Errorf("extract financials for %s: %w", symbol, err)
	}
	c.log.Warn("financials page unrecognized, trying quote page",
		zap.String("symbol", symbol), zap.Error(err))

	quote, qerr := c.Fetcher.FetchQuote(ctx, symbol)
	if qerr != nil {
		return nil, fmt.Errorf("%s: financials page: %w; quote page: %w", symbol, err, qerr)
	}
	res, qerr = c.Extractor.Extract(quote)
	if qerr != nil {
		return nil, fmt.Errorf("%s: financials page: %w; quote page: %w", symbol, err, qerr)
	}
	return c.report(ticker, model.SourceQuote, res), nil
}

// CollectSummary reads the crumb-protected summary API of a ticker.
func (c *Collector) CollectSummary(ctx context.Context, ticker model.Ticker) (*model.Report, error) {
	symbol := ticker.Symbol
	body, err := c.Fetcher.FetchSummary(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch summary for %s: %w", symbol, err)
	}
	tree, err := extractor.SummaryTree(body)
	if err != nil {
		return nil, fmt.Errorf("summary for %s: %w", symbol, err)
	}
	sections := extractor.ExtractSections(tree)
	if sections.Empty() {
		return nil, fmt.Errorf("summary for %s: %w: no known sections", symbol, extractor.ErrUnrecognizedPageFormat)
	}
	return &model.Report{
		Ticker:    ticker,
		Source:    model.SourceSummaryAPI,
		Strategy:  "api",
		Sections:  sections,
		Raw:       rawTree(tree),
		FetchedAt: c.now(),
	}, nil
}

func (c *Collector) report(ticker model.Ticker, source model.Source, res *extractor.Result) *model.Report {
	c.log.Info("data extracted",
		zap.String("symbol", ticker.Symbol),
		zap.String("source", string(source)),
		zap.String("strategy", res.Strategy))
	return &model.Report{
		Ticker:    ticker,
		Source:    source,
		Strategy:  res.Strategy,
		Table:     res.Table,
		Sections:  res.Sections,
		Raw:       res.Raw,
		FetchedAt: c.now(),
	}
}

func rawTree(tree any) json.RawMessage {
	raw, err := json.Marshal(tree)
	if err != nil {
		return nil
	}
	return raw
}
