package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Disabled turns the crumb refresh job off.
const Disabled = "off"

// CrumbRefresher fetches a new upstream credential.
type CrumbRefresher interface {
	RefreshCrumb(ctx context.Context) error
}

// Scheduler runs the periodic crumb refresh.
type Scheduler struct {
	Cron    *cron.Cron
	Session CrumbRefresher
	Ctx     context.Context
	log     *zap.Logger

	mu          sync.Mutex
	lastRefresh time.Time
	lastErr     error
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sess CrumbRefresher, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{log.Sugar()})),
		Session: sess,
		Ctx:     ctx,
		log:     log,
	}
}

// Register adds the refresh job on spec. An empty spec or Disabled adds nothing.
func (s *Scheduler) Register(spec string) error {
	if spec == "" || spec == Disabled {
		s.log.Info("crumb refresh disabled")
		return nil
	}
	if _, err := s.Cron.AddFunc(spec, s.refreshTask); err != nil {
		return fmt.Errorf("register crumb refresh %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RefreshNow refreshes the crumb immediately (for the /crumb command).
func (s *Scheduler) RefreshNow(ctx context.Context) error {
	err := s.Session.RefreshCrumb(ctx)
	s.mu.Lock()
	s.lastRefresh = time.Now()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// LastRefresh reports when the crumb was last refreshed and how it went.
func (s *Scheduler) LastRefresh() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh, s.lastErr
}

func (s *Scheduler) refreshTask() {
	s.log.Debug("running crumb refresh")
	if err := s.RefreshNow(s.Ctx); err != nil {
		s.log.Error("crumb refresh failed", zap.Error(err))
	}
}

// cronLogger routes cron's own messages to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
