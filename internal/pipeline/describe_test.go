package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"Scout/internal/collector"
	"Scout/internal/extractor"
	"Scout/internal/model"
	"Scout/internal/resolver"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"cancelled", fmt.Errorf("fetch: %w", context.Canceled), "Query cancelled."},
		{"rate limited", fmt.Errorf("fetch financials for TCS.NS: %w", &collector.RateLimitedError{RetryAfter: 41*time.Second + 600*time.Millisecond}),
			"Rate limited: wait 42s before the next query."},
		{"sub-second wait", &collector.RateLimitedError{RetryAfter: 200 * time.Millisecond}, "Rate limited: wait 1s before the next query."},
		{"closest candidate", &resolver.MatchError{Query: "relianse", Best: model.SymbolRecord{Symbol: "RELIANCE", Name: "Reliance Industries Limited"}, Score: 0.74},
			`No confident match for "relianse"; closest is Reliance Industries Limited (RELIANCE) at 0.74. Try the NSE symbol instead.`},
		{"empty query", &resolver.MatchError{Query: ""}, `No company matches "". Try the NSE symbol instead.`},
		{"bare sentinel", resolver.ErrNoConfidentMatch, "No confident ticker match. Try the NSE symbol instead."},
		{"catalog", fmt.Errorf("%w: open data/nse.csv: no such file", resolver.ErrCatalogUnavailable),
			"Symbol catalog unavailable (symbol catalog unavailable: open data/nse.csv: no such file). Check catalog.path."},
		{"crumb", fmt.Errorf("quote summary for INFY.NS: %w", collector.ErrMissingCredential),
			"No upstream crumb available; run /crumb to fetch one and retry."},
		{"timeout", &collector.FetchError{URL: "https://finance.yahoo.com/quote/TCS.NS/financials/", Timeout: true},
			"Upstream timed out on https://finance.yahoo.com/quote/TCS.NS/financials/; try again shortly."},
		{"status", &collector.FetchError{URL: "https://x/q", Status: 404}, "Upstream returned 404 Not Found for https://x/q."},
		{"transport", &collector.FetchError{URL: "https://x/q", Err: errors.New("connection reset")}, "Upstream request failed: connection reset"},
		{"page format", fmt.Errorf("%w: no strategy matched", extractor.ErrUnrecognizedPageFormat),
			"Could not read the upstream page; its layout may have changed (unrecognized page format: no strategy matched)."},
		{"other", errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}

func TestDescribe_MalformedJSON(t *testing.T) {
	err := fmt.Errorf("embedded-json: %w", extractor.ErrMalformedJSON)
	assert.Contains(t, Describe(err), "Embedded page data was malformed")
}
