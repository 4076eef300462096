// Package pipeline runs one query end to end: resolve the ticker, fetch and
// extract its data, render the report and journal the outcome.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Scout/internal/collector"
	"Scout/internal/model"
	"Scout/internal/recorder"
	"Scout/internal/render"
	"Scout/internal/resolver"
)

// IntentParser turns a free-form question into a ticker/company guess.
type IntentParser interface {
	Parse(ctx context.Context, question string) (model.Intent, error)
}

// ModelSelector lists and switches intent models.
type ModelSelector interface {
	Models(ctx context.Context) ([]string, error)
	Model() string
	SetModel(name string)
}

// CrumbRefresher refreshes the upstream credential on demand.
type CrumbRefresher interface {
	RefreshNow(ctx context.Context) error
}

// Options wires the optional collaborators of a Pipeline.
type Options struct {
	Intent       IntentParser
	Models       ModelSelector
	Crumb        CrumbRefresher
	Recorder     recorder.Recorder
	Table        render.TableOptions
	HistoryLimit int
}

// Pipeline is the single entry point the shells call per query.
type Pipeline struct {
	Resolver  *resolver.Resolver
	Collector *collector.Collector
	opts      Options
	log       *zap.Logger
	now       func() time.Time

	// one query at a time
	run sync.Mutex

	mu      sync.Mutex
	lastRaw json.RawMessage
}

// New creates a Pipeline.
func New(res *resolver.Resolver, col *collector.Collector, opts Options, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	if opts.Table == (render.TableOptions{}) {
		opts.Table = render.DefaultTableOptions()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Pipeline{Resolver: res, Collector: col, opts: opts, log: log, now: time.Now}
}

// ResolveAndFetch resolves query to a ticker, collects its financial
// statements and returns the rendered report.
func (p *Pipeline) ResolveAndFetch(ctx context.Context, query string) (string, error) {
	return p.execute(ctx, query, p.Collector.Collect)
}

// Summary is ResolveAndFetch against the quote summary API.
func (p *Pipeline) Summary(ctx context.Context, query string) (string, error) {
	return p.execute(ctx, query, p.Collector.CollectSummary)
}

// LastRaw returns the JSON recovered by the most recent successful query.
func (p *Pipeline) LastRaw() json.RawMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRaw
}

type collectFunc func(ctx context.Context, ticker model.Ticker) (*model.Report, error)

func (p *Pipeline) execute(ctx context.Context, query string, collect collectFunc) (string, error) {
	p.run.Lock()
	defer p.run.Unlock()

	query = strings.TrimSpace(query)
	start := p.now()
	evt := &recorder.QueryEvent{ID: uuid.NewString(), Query: query, At: start}
	defer func() {
		evt.Duration = p.now().Sub(start)
		if err := p.opts.Recorder.RecordQuery(evt); err != nil {
			p.log.Warn("record query", zap.Error(err))
		}
	}()

	ticker, in, err := p.resolve(ctx, query)
	if err != nil {
		evt.Outcome, evt.Error = outcome(err), err.Error()
		return "", err
	}
	evt.Symbol = ticker.Symbol

	report, err := collect(ctx, ticker)
	if err != nil {
		evt.Outcome, evt.Error = outcome(err), err.Error()
		return "", err
	}
	report.ID = evt.ID
	report.Query = query
	evt.Source, evt.Strategy, evt.Outcome = string(report.Source), report.Strategy, recorder.OutcomeOK

	if len(report.Raw) > 0 {
		p.mu.Lock()
		p.lastRaw = report.Raw
		p.mu.Unlock()
	}
	p.log.Info("query answered",
		zap.String("id", evt.ID),
		zap.String("query", query),
		zap.String("symbol", ticker.Symbol),
		zap.String("strategy", report.Strategy))

	out := render.Report(report, p.opts.Table)
	if len(in.Questions) > 0 {
		var b strings.Builder
		b.WriteString(out)
		b.WriteString("\nQuestions\n")
		for _, q := range in.Questions {
			b.WriteString("  - " + q + "\n")
		}
		out = b.String()
	}
	return out, nil
}

// resolve asks the intent parser first, when there is one, and falls back to
// the catalog resolver on the company name or the raw query.
func (p *Pipeline) resolve(ctx context.Context, query string) (model.Ticker, model.Intent, error) {
	var in model.Intent
	candidate := query
	if p.opts.Intent != nil && query != "" {
		parsed, err := p.opts.Intent.Parse(ctx, query)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return model.Ticker{}, in, ctx.Err()
			}
			p.log.Warn("intent parser failed, resolving raw query", zap.Error(err))
		case parsed.Ticker != "":
			p.log.Debug("intent parser named a ticker", zap.String("ticker", parsed.Ticker))
			return p.Resolver.Normalize(parsed.Ticker), parsed, nil
		default:
			in = parsed
			if parsed.Company != "" {
				candidate = parsed.Company
			}
		}
	}

	ticker, err := p.Resolver.Resolve(candidate)
	if err != nil {
		return model.Ticker{}, in, fmt.Errorf("resolve %q: %w", candidate, err)
	}
	return ticker, in, nil
}

func outcome(err error) string {
	var rl *collector.RateLimitedError
	switch {
	case errors.As(err, &rl):
		return recorder.OutcomeRateLimited
	case errors.Is(err, resolver.ErrNoConfidentMatch):
		return recorder.OutcomeNoMatch
	default:
		return recorder.OutcomeError
	}
}
