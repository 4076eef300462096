package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"Scout/internal/collector"
	"Scout/internal/config"
	"Scout/internal/extractor"
	"Scout/internal/intent"
	"Scout/internal/logging"
	"Scout/internal/notifier"
	"Scout/internal/pipeline"
	"Scout/internal/recorder"
	"Scout/internal/render"
	"Scout/internal/resolver"
	"Scout/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "scout:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "scout: load .env:", err)
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// SIGINT is left to the shell, which uses it to cancel a running query.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	sess, err := collector.NewSession(ctx, collector.SessionConfig{
		BaseURL:        cfg.Upstream.BaseURL,
		CrumbURL:       cfg.Upstream.CrumbURL,
		UserAgent:      cfg.Upstream.UserAgent,
		AcceptLanguage: cfg.Upstream.AcceptLanguage,
		MinInterval:    cfg.Upstream.MinInterval,
		Timeout:        cfg.Upstream.Timeout,
		Proxy:          cfg.Proxy,
	}, log)
	if err != nil {
		return errors.New(pipeline.Describe(err))
	}

	layouts := make([]extractor.TableLayout, 0, len(cfg.Extractor.Layouts))
	for _, l := range cfg.Extractor.Layouts {
		layouts = append(layouts, extractor.TableLayout{Container: l.Container, Header: l.Header, Row: l.Row, Cell: l.Cell})
	}
	ex := extractor.New(extractor.Options{Layouts: layouts, Markers: cfg.Extractor.Markers}, log)
	fetcher := collector.NewYahooFetcher(sess, cfg.Upstream.BaseURL, cfg.Upstream.APIURL)
	col := collector.NewCollector(fetcher, ex, log)
	res := resolver.New(cfg.Catalog.Path, cfg.Catalog.Suffix, cfg.Catalog.Threshold)

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.History.Enabled {
		sr, err := recorder.NewSQLiteRecorder(recorder.MemoryDSN, log)
		if err != nil {
			log.Warn("init query history failed, using noop", zap.Error(err))
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	sched := scheduler.NewScheduler(ctx, sess, log)
	if err := sched.Register(cfg.Upstream.CrumbRefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	opts := pipeline.Options{
		Crumb:        sched,
		Recorder:     rec,
		Table:        render.DefaultTableOptions(),
		HistoryLimit: cfg.History.Limit,
	}
	if cfg.Intent.Enabled {
		parser := intent.NewParser(cfg.Intent.Host, cfg.Intent.Model, 0, log)
		opts.Intent = parser
		opts.Models = parser
		log.Info("intent parser enabled", zap.String("host", cfg.Intent.Host), zap.String("model", cfg.Intent.Model))
	}
	p := pipeline.New(res, col, opts, log)

	if cfg.Telegram.BotToken != "" {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		go tn.StartPolling(ctx, p.HandleCommand)
		log.Info("telegram polling started")
	}

	return newShell(p, os.Stdin, os.Stdout).Run(ctx)
}
