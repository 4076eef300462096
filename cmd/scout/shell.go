package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"Scout/internal/pipeline"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Border(lipgloss.RoundedBorder()).Padding(0, 1)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// shell is the line-oriented terminal front end.
type shell struct {
	p   *pipeline.Pipeline
	in  io.Reader
	out io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc // of the running query, nil when idle
}

func newShell(p *pipeline.Pipeline, in io.Reader, out io.Writer) *shell {
	return &shell{p: p, in: in, out: out}
}

// Run reads commands until /quit, end of input or ctx is done.
func (s *shell) Run(ctx context.Context) error {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go s.handleInterrupts(ctx, interrupts)

	lines := make(chan string)
	go s.readLines(lines)

	fmt.Fprintln(s.out, bannerStyle.Render("Scout: NSE financials from Yahoo Finance"))
	fmt.Fprintln(s.out, hintStyle.Render("Type a company name or symbol, /help for commands."))
	for {
		fmt.Fprint(s.out, promptStyle.Render("scout> "))
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(s.out)
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if out := s.exec(ctx, line); out != "" {
			fmt.Fprintln(s.out, out)
		}
	}
}

func (s *shell) exec(ctx context.Context, line string) string {
	qctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	out := s.p.HandleCommand(qctx, line)
	if qctx.Err() != nil && ctx.Err() == nil {
		return errorStyle.Render(out)
	}
	return out
}

func (s *shell) handleInterrupts(ctx context.Context, interrupts <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-interrupts:
		}
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
			continue
		}
		fmt.Fprintln(s.out)
		fmt.Fprint(s.out, hintStyle.Render("(use /quit or Ctrl-D to exit)")+"\n"+promptStyle.Render("scout> "))
	}
}

func (s *shell) readLines(lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(s.in)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		lines <- sc.Text()
	}
}
