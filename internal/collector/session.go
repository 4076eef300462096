package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "en-US,en;q=0.9"

	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptJSON = "application/json,text/plain,*/*"

	maxBodyBytes = 16 << 20
)

// SessionConfig describes the upstream site and the request policy.
type SessionConfig struct {
	BaseURL        string // landing page, also used as Origin/Referer
	CrumbURL       string
	UserAgent      string
	AcceptLanguage string
	MinInterval    time.Duration // minimum gap between gated fetches
	Timeout        time.Duration
	Proxy          string
}

// Session owns the cookie-bearing client, the crumb and the rate gate.
// It is safe for concurrent use.
type Session struct {
	client *http.Client
	cfg    SessionConfig
	origin string
	log    *zap.Logger
	now    func() time.Time

	limiter *rate.Limiter

	mu          sync.Mutex
	crumb       string
	lastRequest time.Time
}

// NewSession builds the client, loads the landing page to seed cookies and
// then tries to obtain a crumb. A landing page failure is returned as
// ErrSessionBootstrap; a crumb failure only leaves the crumb absent.
func NewSession(ctx context.Context, cfg SessionConfig, log *zap.Logger) (*Session, error) {
	s, err := newSession(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := s.bootstrap(ctx); err != nil {
		return nil, err
	}
	if crumb, err := s.fetchCrumb(ctx); err != nil {
		s.log.Warn("crumb unavailable, continuing without it", zap.Error(err))
	} else {
		s.crumb = crumb
		s.log.Debug("crumb obtained")
	}
	return s, nil
}

func newSession(cfg SessionConfig, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = DefaultAcceptLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &Session{
		client: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		cfg:     cfg,
		origin:  base.Scheme + "://" + base.Host,
		log:     log,
		now:     time.Now,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
	}, nil
}

func (s *Session) bootstrap(ctx context.Context) error {
	if _, err := s.do(ctx, s.cfg.BaseURL, acceptHTML); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionBootstrap, err)
	}
	s.log.Debug("session cookies seeded", zap.String("url", s.cfg.BaseURL))
	return nil
}

func (s *Session) fetchCrumb(ctx context.Context) (string, error) {
	if s.cfg.CrumbURL == "" {
		return "", errors.New("no crumb endpoint configured")
	}
	body, err := s.do(ctx, s.cfg.CrumbURL, "*/*")
	if err != nil {
		return "", err
	}
	crumb := strings.TrimSpace(body)
	if crumb == "" || strings.ContainsAny(crumb, "<>{}") {
		return "", fmt.Errorf("unexpected crumb response %q", truncate(crumb, 40))
	}
	return crumb, nil
}

// Crumb returns the anti-automation token, or ErrMissingCredential.
func (s *Session) Crumb() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crumb == "" {
		return "", ErrMissingCredential
	}
	return s.crumb, nil
}

// RefreshCrumb fetches a new crumb. The previous crumb is kept on failure.
func (s *Session) RefreshCrumb(ctx context.Context) error {
	crumb, err := s.fetchCrumb(ctx)
	if err != nil {
		return fmt.Errorf("refresh crumb: %w", err)
	}
	s.mu.Lock()
	s.crumb = crumb
	s.mu.Unlock()
	s.log.Info("crumb refreshed")
	return nil
}

// LastRequest returns when the last gated request was dispatched.
func (s *Session) LastRequest() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequest
}

// Fetch performs a rate-gated GET for an HTML page. Inside the minimum
// interval it returns a *RateLimitedError without dispatching anything.
func (s *Session) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := s.pass(ctx); err != nil {
		return "", err
	}
	return s.do(ctx, rawURL, acceptHTML)
}

// FetchJSON is Fetch for JSON endpoints.
func (s *Session) FetchJSON(ctx context.Context, rawURL string) ([]byte, error) {
	if err := s.pass(ctx); err != nil {
		return nil, err
	}
	body, err := s.do(ctx, rawURL, acceptJSON)
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// FetchFollowup performs an ungated GET on the same client. It is meant for
// secondary pages inside a query that already passed the gate.
func (s *Session) FetchFollowup(ctx context.Context, rawURL string) (string, error) {
	return s.do(ctx, rawURL, acceptHTML)
}

func (s *Session) pass(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	r := s.limiter.ReserveN(now, 1)
	if !r.OK() {
		return &RateLimitedError{RetryAfter: s.cfg.MinInterval}
	}
	// sub-millisecond delays are float noise from the token arithmetic
	if delay := r.DelayFrom(now).Round(time.Millisecond); delay > 0 {
		r.CancelAt(now)
		return &RateLimitedError{RetryAfter: delay}
	}
	s.lastRequest = now
	return nil
}

func (s *Session) do(ctx context.Context, rawURL, accept string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", s.cfg.AcceptLanguage)
	req.Header.Set("Referer", s.origin+"/")
	if accept != acceptHTML {
		req.Header.Set("Origin", s.origin)
	}

	start := s.now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err, Timeout: isTimeout(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err), Timeout: isTimeout(err)}
	}
	s.log.Debug("upstream response",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("took", s.now().Sub(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: rawURL, Status: resp.StatusCode}
	}
	return string(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
