package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAPIBase is the public Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// TelegramNotifier talks to the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string // the only chat whose commands are served
	APIBase  string
	Client   *http.Client
	// Backoff is the first retry delay of SendWithRetry; it doubles per attempt.
	Backoff time.Duration
	// PollTimeout is the long-poll timeout passed to getUpdates.
	PollTimeout time.Duration

	log *zap.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, log *zap.Logger) *TelegramNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.Warn("ignoring invalid proxy url", zap.Error(err))
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  DefaultAPIBase,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Backoff:     time.Second,
		PollTimeout: 30 * time.Second,
		log:         log,
	}
}

func (t *TelegramNotifier) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(t.APIBase, "/"), t.BotToken, name)
}

// Send sends one HTML message to chatID, or to the configured chat when
// chatID is empty.
func (t *TelegramNotifier) Send(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		chatID = t.ChatID
	}
	if chatID == "" {
		return fmt.Errorf("send message: no chat id")
	}
	payload := map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, chatID, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, chatID, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.Backoff * time.Duration(1<<uint(i))
		t.log.Warn("telegram send failed, retrying",
			zap.Int("attempt", i+1),
			zap.Int("attempts", maxRetries+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// Reply sends text as one or more preformatted messages.
func (t *TelegramNotifier) Reply(ctx context.Context, chatID, text string) error {
	for _, part := range FormatReply(text) {
		if err := t.SendWithRetry(ctx, chatID, part, 3); err != nil {
			return err
		}
	}
	return nil
}
