package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"Scout/internal/extractor"
	"Scout/internal/model"
)

func page(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "extractor", "testdata", name))
	require.NoError(t, err)
	return string(data)
}

func newTestCollector(t *testing.T, f Fetcher) *Collector {
	c := NewCollector(f, extractor.New(extractor.DefaultOptions(), zaptest.NewLogger(t)), zaptest.NewLogger(t))
	c.now = func() time.Time { return time.Date(2025, 7, 1, 9, 15, 0, 0, time.UTC) }
	return c
}

var reliance = model.Ticker{Symbol: "RELIANCE.NS", SuffixApplied: true}

func TestCollect_FinancialsTable(t *testing.T) {
	f := &MockFetcher{Financials: page(t, "financials_table.html")}
	c := newTestCollector(t, f)

	r, err := c.Collect(context.Background(), reliance)
	require.NoError(t, err)

	assert.Equal(t, model.SourceFinancials, r.Source)
	assert.Equal(t, "table", r.Strategy)
	assert.Equal(t, reliance, r.Ticker)
	assert.False(t, r.Table.Empty())
	assert.Equal(t, time.Date(2025, 7, 1, 9, 15, 0, 0, time.UTC), r.FetchedAt)
	assert.Equal(t, []string{"financials:RELIANCE.NS"}, f.Calls, "quote page is not fetched")
}

func TestCollect_EmbeddedJSONOnFinancialsPage(t *testing.T) {
	f := &MockFetcher{Financials: page(t, "quote_legacy.html")}
	c := newTestCollector(t, f)

	r, err := c.Collect(context.Background(), reliance)
	require.NoError(t, err)
	assert.Equal(t, model.SourceFinancials, r.Source)
	assert.Equal(t, "embedded-json", r.Strategy)
	assert.NotEmpty(t, r.Raw)
	assert.True(t, r.HasData())
}

func TestCollect_QuotePageFallback(t *testing.T) {
	f := &MockFetcher{
		Financials: page(t, "unrecognized.html"),
		Quote:      page(t, "quote_sveltekit.html"),
	}
	c := newTestCollector(t, f)

	r, err := c.Collect(context.Background(), reliance)
	require.NoError(t, err)
	assert.Equal(t, model.SourceQuote, r.Source)
	require.NotNil(t, r.Sections.Summary)
	assert.Equal(t, "RELIANCE.NS", r.Sections.Summary.Symbol)
	assert.Equal(t, []string{"financials:RELIANCE.NS", "quote:RELIANCE.NS"}, f.Calls)
}

func TestCollect_BothPagesUnrecognized(t *testing.T) {
	f := &MockFetcher{
		Financials: page(t, "unrecognized.html"),
		Quote:      page(t, "malformed.html"),
	}
	c := newTestCollector(t, f)

	_, err := c.Collect(context.Background(), reliance)
	require.Error(t, err)
	assert.ErrorIs(t, err, extractor.ErrUnrecognizedPageFormat)
	assert.ErrorIs(t, err, extractor.ErrMalformedJSON)
	assert.Contains(t, err.Error(), "RELIANCE.NS")
}

func TestCollect_QuoteFetchFails(t *testing.T) {
	f := &MockFetcher{
		Financials: page(t, "unrecognized.html"),
		QuoteErr:   &FetchError{URL: "https://finance.yahoo.com/quote/RELIANCE.NS/", Status: 503},
	}
	c := newTestCollector(t, f)

	_, err := c.Collect(context.Background(), reliance)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 503, fe.Status)
	assert.ErrorIs(t, err, extractor.ErrUnrecognizedPageFormat)
}

func TestCollect_FetchErrorsPropagate(t *testing.T) {
	f := &MockFetcher{Err: &RateLimitedError{RetryAfter: 42 * time.Second}}
	c := newTestCollector(t, f)

	_, err := c.Collect(context.Background(), reliance)
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 42*time.Second, rl.RetryAfter)
	assert.Len(t, f.Calls, 1)
}

func TestCollectSummary(t *testing.T) {
	f := &MockFetcher{Summary: []byte(`{"quoteSummary":{"result":[{
		"price":{"longName":"Infosys Limited","symbol":"INFY.NS","regularMarketPrice":{"raw":1520.4}},
		"earnings":{"financialsChart":{"yearly":[{"date":2025,"revenue":{"raw":1.6e12},"earnings":{"raw":2.6e11}}]}}
	}],"error":null}}`)}
	c := newTestCollector(t, f)

	r, err := c.CollectSummary(context.Background(), model.Ticker{Symbol: "INFY.NS"})
	require.NoError(t, err)
	assert.Equal(t, model.SourceSummaryAPI, r.Source)
	assert.Nil(t, r.Table)
	require.NotNil(t, r.Sections.Summary)
	assert.Equal(t, "Infosys Limited", r.Sections.Summary.Name)
	require.NotNil(t, r.Sections.Earnings)
	assert.Len(t, r.Sections.Earnings.Yearly, 1)
	assert.Contains(t, string(r.Raw), "Infosys")
}

func TestCollectSummary_Errors(t *testing.T) {
	t.Run("missing credential", func(t *testing.T) {
		c := newTestCollector(t, &MockFetcher{Err: ErrMissingCredential})
		_, err := c.CollectSummary(context.Background(), reliance)
		assert.ErrorIs(t, err, ErrMissingCredential)
	})

	t.Run("no sections", func(t *testing.T) {
		c := newTestCollector(t, &MockFetcher{Summary: []byte(`{"quoteSummary":{"result":[{"assetProfile":{}}],"error":null}}`)})
		_, err := c.CollectSummary(context.Background(), reliance)
		assert.ErrorIs(t, err, extractor.ErrUnrecognizedPageFormat)
	})

	t.Run("bad body", func(t *testing.T) {
		c := newTestCollector(t, &MockFetcher{Summary: []byte("Too Many Requests")})
		_, err := c.CollectSummary(context.Background(), reliance)
		assert.True(t, errors.Is(err, extractor.ErrMalformedJSON))
	})
}
