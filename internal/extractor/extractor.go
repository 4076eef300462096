// Package extractor recovers financial data from upstream HTML pages.
//
// Pages are tried against an ordered list of strategies: a direct scrape of
// the rendered statement table, then a search for the JSON state object
// that single-page-app shells embed in the document. Each strategy works on
// the raw HTML on its own, so a markup change only breaks one of them.
package extractor

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"Scout/internal/model"
)

var (
	// ErrUnrecognizedPageFormat means no strategy recovered any data; the
	// upstream page structure has most likely drifted.
	ErrUnrecognizedPageFormat = errors.New("unrecognized page format")
	// ErrMalformedJSON means an embedded JSON value was located but did not parse.
	ErrMalformedJSON = errors.New("malformed embedded json")
	// ErrNoTable means the statement table container or its cells were missing.
	ErrNoTable = errors.New("financials table not found")
	// ErrNoEmbeddedData means none of the JSON markers occur in the page.
	ErrNoEmbeddedData = errors.New("embedded data marker not found")
)

// Result is the data one strategy recovered from a page.
type Result struct {
	Strategy string
	Table    *model.Table
	Sections model.Sections
	Raw      json.RawMessage
}

// Strategy is one independent way of reading a page.
type Strategy interface {
	Name() string
	Extract(html string) (*Result, error)
}

// Options configures the default strategies.
type Options struct {
	Layouts []TableLayout
	Markers []string
}

// DefaultOptions matches the current Yahoo Finance markup.
func DefaultOptions() Options {
	return Options{
		Layouts: DefaultLayouts(),
		Markers: []string{"quoteSummary", "QuoteSummaryStore"},
	}
}

// Extractor runs strategies in order until one succeeds.
type Extractor struct {
	Strategies []Strategy
	log        *zap.Logger
}

// New builds an Extractor with the table scrape first and the embedded JSON
// search second.
func New(opts Options, log *zap.Logger) *Extractor {
	def := DefaultOptions()
	if len(opts.Layouts) == 0 {
		opts.Layouts = def.Layouts
	}
	if len(opts.Markers) == 0 {
		opts.Markers = def.Markers
	}
	return NewWithStrategies(log,
		&TableStrategy{Layouts: opts.Layouts},
		&EmbeddedStrategy{Markers: opts.Markers},
	)
}

// NewWithStrategies builds an Extractor from explicit strategies.
func NewWithStrategies(log *zap.Logger, strategies ...Strategy) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{Strategies: strategies, log: log}
}

// Extract returns the first successful strategy result. When every strategy
// fails the error wraps ErrUnrecognizedPageFormat together with each
// strategy's own error.
func (e *Extractor) Extract(html string) (*Result, error) {
	var errs []error
	for _, s := range e.Strategies {
		res, err := s.Extract(html)
		if err == nil {
			e.log.Debug("extraction succeeded", zap.String("strategy", s.Name()))
			return res, nil
		}
		e.log.Debug("extraction strategy failed", zap.String("strategy", s.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	if len(errs) == 0 {
		return nil, ErrUnrecognizedPageFormat
	}
	return nil, fmt.Errorf("%w: %w", ErrUnrecognizedPageFormat, errors.Join(errs...))
}
