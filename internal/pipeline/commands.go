package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Scout/internal/render"
)

// HelpText lists the shell commands.
const HelpText = `Ask about an NSE company by name or symbol, e.g. "reliance" or "TCS".

Commands:
  /summary <query>   price summary and earnings from the quote summary API
  /raw               pretty-print the JSON recovered by the last query
  /history           recent queries
  /model [name]      list intent models, or switch to one
  /crumb             refresh the upstream crumb
  /help              this text
  /quit              exit`

// HandleCommand runs one line of shell input and returns the text to show.
// Errors are turned into a single line with Describe.
func (p *Pipeline) HandleCommand(ctx context.Context, line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if !strings.HasPrefix(line, "/") {
		out, err := p.ResolveAndFetch(ctx, line)
		if err != nil {
			return Describe(err)
		}
		return out
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "/help", "/start":
		return HelpText
	case "/summary":
		if arg == "" {
			return "Usage: /summary <company or symbol>"
		}
		out, err := p.Summary(ctx, arg)
		if err != nil {
			return Describe(err)
		}
		return out
	case "/raw":
		raw := p.LastRaw()
		if len(raw) == 0 {
			return "No JSON recovered yet; the last page was read from its table or no query has run."
		}
		return render.RawJSON(raw)
	case "/history":
		return p.history()
	case "/model":
		return p.model(ctx, arg)
	case "/crumb":
		if p.opts.Crumb == nil {
			return "Crumb refresh is not available."
		}
		if err := p.opts.Crumb.RefreshNow(ctx); err != nil {
			return fmt.Sprintf("Crumb refresh failed: %v", err)
		}
		return "Crumb refreshed."
	default:
		return fmt.Sprintf("Unknown command %s. Type /help for the list.", cmd)
	}
}

func (p *Pipeline) history() string {
	events, err := p.opts.Recorder.Recent(p.opts.HistoryLimit)
	if err != nil {
		return fmt.Sprintf("History unavailable: %v", err)
	}
	if len(events) == 0 {
		return "No queries yet."
	}
	var b strings.Builder
	for _, e := range events {
		symbol := e.Symbol
		if symbol == "" {
			symbol = "-"
		}
		b.WriteString(fmt.Sprintf("%s  %-14s %-24q %-12s %6s",
			e.At.Format("15:04:05"), symbol, e.Query, e.Outcome, e.Duration.Round(10*time.Millisecond)))
		if e.Strategy != "" {
			b.WriteString("  " + e.Strategy)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (p *Pipeline) model(ctx context.Context, name string) string {
	if p.opts.Models == nil {
		return "The intent parser is disabled; enable it under intent: in the config."
	}
	if name != "" {
		p.opts.Models.SetModel(name)
		return fmt.Sprintf("Intent model set to %s.", name)
	}
	models, err := p.opts.Models.Models(ctx)
	if err != nil {
		return fmt.Sprintf("Could not list models: %v", err)
	}
	if len(models) == 0 {
		return "No models installed. Pull one with: ollama pull <name>"
	}
	current := p.opts.Models.Model()
	var b strings.Builder
	for _, m := range models {
		marker := "  "
		if m == current {
			marker = "* "
		}
		b.WriteString(marker + m + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
