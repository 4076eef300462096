package resolver

import (
	"errors"
	"fmt"
	"strings"

	"Scout/internal/model"
)

// Defaults match NSE listings on Yahoo Finance.
const (
	DefaultSuffix    = ".NS"
	DefaultThreshold = 0.80
)

// ErrNoConfidentMatch means no catalog entry cleared the similarity threshold.
// It is a valid outcome: the caller should ask the user to be more specific.
var ErrNoConfidentMatch = errors.New("no confident match")

// MatchError carries the closest rejected candidate for a query.
type MatchError struct {
	Query string
	Best  model.SymbolRecord
	Score float64
}

func (e *MatchError) Error() string {
	if e.Best.Symbol == "" {
		return fmt.Sprintf("no confident match for %q", e.Query)
	}
	return fmt.Sprintf("no confident match for %q (closest: %s %q at %.2f)", e.Query, e.Best.Symbol, e.Best.Name, e.Score)
}

func (e *MatchError) Unwrap() error { return ErrNoConfidentMatch }

// Resolver turns company names or raw symbols into exchange tickers.
type Resolver struct {
	CatalogPath string
	Suffix      string
	Threshold   float64
}

// New creates a Resolver reading the catalog at path.
func New(path, suffix string, threshold float64) *Resolver {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{CatalogPath: path, Suffix: suffix, Threshold: threshold}
}

// Resolve maps a company name or symbol to a ticker. Input that already
// carries the exchange suffix is returned unchanged, or upper-cased when the
// suffix is written in another case. The catalog is read on every call.
func (r *Resolver) Resolve(query string) (model.Ticker, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return model.Ticker{}, &MatchError{Query: query}
	}
	if strings.HasSuffix(q, r.Suffix) {
		return model.Ticker{Symbol: q}, nil
	}
	if r.Suffix != "" && strings.HasSuffix(strings.ToUpper(q), strings.ToUpper(r.Suffix)) {
		return model.Ticker{Symbol: strings.ToUpper(q)}, nil
	}

	catalog, err := LoadCatalog(r.CatalogPath)
	if err != nil {
		return model.Ticker{}, err
	}

	for _, rec := range catalog {
		if strings.EqualFold(rec.Symbol, q) {
			return r.ticker(rec.Symbol), nil
		}
	}

	best, score, ok := BestMatch(q, catalog)
	if !ok || score <= r.Threshold {
		return model.Ticker{}, &MatchError{Query: q, Best: best, Score: score}
	}
	return r.ticker(best.Symbol), nil
}

// Normalize applies the suffix policy to an explicitly supplied symbol.
func (r *Resolver) Normalize(symbol string) model.Ticker {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(s, strings.ToUpper(r.Suffix)) {
		return model.Ticker{Symbol: s}
	}
	return r.ticker(s)
}

func (r *Resolver) ticker(symbol string) model.Ticker {
	return model.Ticker{Symbol: WithSuffix(symbol, r.Suffix), SuffixApplied: !strings.HasSuffix(symbol, r.Suffix)}
}

// WithSuffix appends suffix unless symbol already ends with it.
func WithSuffix(symbol, suffix string) string {
	if strings.HasSuffix(symbol, suffix) {
		return symbol
	}
	return symbol + suffix
}
