package collector

import "context"

// Fetcher retrieves the upstream documents for one symbol.
type Fetcher interface {
	FetchFinancials(ctx context.Context, symbol string) (string, error)
	FetchQuote(ctx context.Context, symbol string) (string, error)
	FetchSummary(ctx context.Context, symbol string) ([]byte, error)
	Name() string
}
