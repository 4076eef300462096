package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Layout is one statement table selector set.
type Layout struct {
	Container string `yaml:"container"`
	Header    string `yaml:"header"`
	Row       string `yaml:"row"`
	Cell      string `yaml:"cell"`
}

// Config holds all application configuration.
type Config struct {
	Catalog struct {
		Path      string  `yaml:"path"`
		Suffix    string  `yaml:"suffix"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"catalog"`
	Upstream struct {
		BaseURL          string        `yaml:"base_url"`
		APIURL           string        `yaml:"api_url"`
		CrumbURL         string        `yaml:"crumb_url"`
		UserAgent        string        `yaml:"user_agent"`
		AcceptLanguage   string        `yaml:"accept_language"`
		MinInterval      time.Duration `yaml:"min_interval"`
		Timeout          time.Duration `yaml:"timeout"`
		CrumbRefreshCron string        `yaml:"crumb_refresh_cron"`
	} `yaml:"upstream"`
	Extractor struct {
		Layouts []Layout `yaml:"layouts"`
		Markers []string `yaml:"markers"`
	} `yaml:"extractor"`
	Intent struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Model   string `yaml:"model"`
	} `yaml:"intent"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	History struct {
		Enabled bool `yaml:"enabled"`
		Limit   int  `yaml:"limit"`
	} `yaml:"history"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.History.Enabled = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SCOUT_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("SCOUT_MIN_INTERVAL"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("SCOUT_MIN_INTERVAL: %w", err)
		}
		c.Upstream.MinInterval = d
	}
	if v := os.Getenv("SCOUT_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("SCOUT_TIMEOUT: %w", err)
		}
		c.Upstream.Timeout = d
	}
	if v := os.Getenv("OLLAMA_API_BASE_URL"); v != "" {
		c.Intent.Host = v
		c.Intent.Enabled = true
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Intent.Model = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SCOUT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// parseDuration accepts Go durations ("90s") and bare seconds ("60").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) applyDefaults() {
	if c.Catalog.Path == "" {
		c.Catalog.Path = "data/nse.csv"
	}
	if c.Catalog.Suffix == "" {
		c.Catalog.Suffix = ".NS"
	}
	if c.Catalog.Threshold == 0 {
		c.Catalog.Threshold = 0.80
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "https://finance.yahoo.com"
	}
	if c.Upstream.APIURL == "" {
		c.Upstream.APIURL = "https://query2.finance.yahoo.com"
	}
	if c.Upstream.CrumbURL == "" {
		c.Upstream.CrumbURL = "https://query1.finance.yahoo.com/v1/test/getcrumb"
	}
	if c.Upstream.MinInterval == 0 {
		c.Upstream.MinInterval = 60 * time.Second
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	// the crumb is only refreshed on request unless a schedule is configured
	if c.Upstream.CrumbRefreshCron == "" {
		c.Upstream.CrumbRefreshCron = "off"
	}
	if c.Intent.Host == "" {
		c.Intent.Host = "http://localhost:11434"
	}
	if c.Intent.Model == "" {
		c.Intent.Model = "llama3.2"
	}
	if c.History.Limit == 0 {
		c.History.Limit = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Catalog.Threshold <= 0 || c.Catalog.Threshold > 1 {
		return fmt.Errorf("catalog.threshold must be in (0, 1], got %v", c.Catalog.Threshold)
	}
	for name, raw := range map[string]string{
		"upstream.base_url":  c.Upstream.BaseURL,
		"upstream.api_url":   c.Upstream.APIURL,
		"upstream.crumb_url": c.Upstream.CrumbURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s is not an absolute url: %q", name, raw)
		}
	}
	if c.Upstream.MinInterval < 0 {
		return fmt.Errorf("upstream.min_interval must not be negative")
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout must not be negative")
	}
	if c.Upstream.CrumbRefreshCron != "off" {
		if _, err := CronParser.Parse(c.Upstream.CrumbRefreshCron); err != nil {
			return fmt.Errorf("upstream.crumb_refresh_cron: %w", err)
		}
	}
	for i, l := range c.Extractor.Layouts {
		if l.Container == "" || l.Header == "" || l.Row == "" || l.Cell == "" {
			return fmt.Errorf("extractor.layouts[%d]: container, header, row and cell are required", i)
		}
	}
	if c.Intent.Enabled {
		u, err := url.Parse(c.Intent.Host)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("intent.host is not an absolute url: %q", c.Intent.Host)
		}
	}
	if c.Telegram.ChatID != "" && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram.chat_id is set")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// CronParser accepts the six-field (with seconds) cron format and descriptors
// such as "@every 6h".
var CronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)
