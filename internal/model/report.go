package model

import (
	"encoding/json"
	"time"
)

// Row is one labelled line of a financial statement table.
type Row struct {
	Label string
	Cells []string
}

// Table is a scraped financial statement. Headers hold the period titles
// only (the label column title is dropped); every row carries exactly
// len(Headers) cells.
type Table struct {
	Headers []string
	Rows    []Row
}

// Empty reports whether the table lacks headers or rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Headers) == 0 || len(t.Rows) == 0
}

// PriceSummary is the company/price block of the embedded quote data.
type PriceSummary struct {
	Name          string
	Symbol        string
	Exchange      string
	Currency      string
	Price         *float64
	ChangePercent *float64
	PreviousClose *float64
	MarketCap     *float64
	High52w       *float64
	Low52w        *float64
	TrailingPE    *float64
}

// ChartPoint is one period of the revenue/earnings chart.
type ChartPoint struct {
	Period   string
	Revenue  *float64
	Earnings *float64
}

// EarningsChart holds annual and quarterly revenue/earnings points.
type EarningsChart struct {
	Yearly    []ChartPoint
	Quarterly []ChartPoint
}

// IncomeStatement is one quarterly income statement entry.
type IncomeStatement struct {
	EndDate         string
	TotalRevenue    *float64
	GrossProfit     *float64
	OperatingIncome *float64
	NetIncome       *float64
}

// RecommendationTrend counts analyst ratings for one period ("0m" is the
// current month, "-1m" the one before).
type RecommendationTrend struct {
	Period     string
	StrongBuy  int
	Buy        int
	Hold       int
	Sell       int
	StrongSell int
}

// Analyst is the analyst price target and recommendation block.
type Analyst struct {
	TargetMean         *float64
	TargetHigh         *float64
	TargetLow          *float64
	Recommendation     string // recommendationKey, e.g. "buy"
	RecommendationMean *float64
	Opinions           *float64
	Trend              []RecommendationTrend
}

// Sections are the optional sub-reports pulled from an embedded JSON tree.
// Any of them may be absent.
type Sections struct {
	Summary  *PriceSummary
	Earnings *EarningsChart
	Income   []IncomeStatement
	Analyst  *Analyst
}

// Empty reports whether none of the sub-reports is present.
func (s Sections) Empty() bool {
	return s.Summary == nil && s.Earnings == nil && len(s.Income) == 0 && s.Analyst == nil
}

// Source identifies which upstream document a report came from.
type Source string

const (
	SourceFinancials Source = "financials"
	SourceQuote      Source = "quote"
	SourceSummaryAPI Source = "summary-api"
)

// Report is everything recovered for one query, ready for rendering.
type Report struct {
	ID        string
	Query     string
	Ticker    Ticker
	Source    Source
	Strategy  string
	Table     *Table
	Sections  Sections
	Raw       json.RawMessage
	FetchedAt time.Time
}

// HasData reports whether the report carries a table or any sub-report.
func (r *Report) HasData() bool {
	return r != nil && (!r.Table.Empty() || !r.Sections.Empty())
}
