package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBotAPI struct {
	*httptest.Server

	mu       sync.Mutex
	sent     []map[string]string
	failures int
	updates  [][]telegramUpdate
}

func newFakeBotAPI(t *testing.T) *fakeBotAPI {
	f := &fakeBotAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/bottoken/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failures > 0 {
			f.failures--
			http.Error(w, `{"ok":false,"description":"Too Many Requests"}`, http.StatusTooManyRequests)
			return
		}
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.sent = append(f.sent, payload)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/bottoken/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		var batch []telegramUpdate
		if len(f.updates) > 0 {
			batch, f.updates = f.updates[0], f.updates[1:]
		}
		f.mu.Unlock()
		if batch == nil {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-r.Context().Done():
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": batch})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeBotAPI) failNext(n int) {
	f.mu.Lock()
	f.failures = n
	f.mu.Unlock()
}

func (f *fakeBotAPI) messages() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.sent...)
}

func newTestNotifier(api *fakeBotAPI, chatID string) *TelegramNotifier {
	n := NewTelegramNotifier("token", chatID, "", zap.NewNop())
	n.APIBase = api.URL
	n.Backoff = time.Millisecond
	n.PollTimeout = 0
	return n
}

func update(id int, chat int64, text string) telegramUpdate {
	u := telegramUpdate{UpdateID: id}
	u.Message = &struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	}{Text: text}
	u.Message.Chat.ID = chat
	return u
}

func TestSend(t *testing.T) {
	api := newFakeBotAPI(t)
	n := newTestNotifier(api, "42")

	require.NoError(t, n.Send(context.Background(), "", "<b>hi</b>"))
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "42", msgs[0]["chat_id"])
	assert.Equal(t, "HTML", msgs[0]["parse_mode"])

	n.ChatID = ""
	assert.Error(t, n.Send(context.Background(), "", "nobody"))
}

func TestSendWithRetry(t *testing.T) {
	api := newFakeBotAPI(t)
	n := newTestNotifier(api, "42")

	api.failNext(2)
	require.NoError(t, n.SendWithRetry(context.Background(), "", "retry me", 3))
	assert.Len(t, api.messages(), 1)

	api.failNext(10)
	err := n.SendWithRetry(context.Background(), "", "give up", 2)
	assert.ErrorContains(t, err, "all 3 retries exhausted")
	assert.ErrorContains(t, err, "status 429")
}

func TestFormatReply(t *testing.T) {
	parts := FormatReply("RELIANCE.NS  <Reliance & Co>\n  Price  1412.50\n")
	require.Len(t, parts, 1)
	assert.Equal(t, "<pre>RELIANCE.NS  &lt;Reliance &amp; Co&gt;\n  Price  1412.50</pre>", parts[0])

	assert.Nil(t, FormatReply("\n"))
}

func TestFormatReply_Splits(t *testing.T) {
	line := strings.Repeat("x", 100)
	text := strings.TrimSuffix(strings.Repeat(line+"\n", 90), "\n")

	parts := FormatReply(text)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), maxMessage+len("<pre></pre>"))
		assert.True(t, strings.HasPrefix(p, "<pre>"))
		assert.True(t, strings.HasSuffix(p, "</pre>"))
	}

	long := FormatReply(strings.Repeat("&", 3000))
	for _, p := range long {
		body := strings.TrimSuffix(strings.TrimPrefix(p, "<pre>"), "</pre>")
		assert.True(t, strings.HasSuffix(body, ";"), "entities are never split")
	}
}

func TestStartPolling(t *testing.T) {
	api := newFakeBotAPI(t)
	api.mu.Lock()
	api.updates = [][]telegramUpdate{
		{update(1, 42, " /help "), update(2, 7, "intruder")},
		{update(3, 42, "reliance")},
	}
	api.mu.Unlock()
	n := newTestNotifier(api, "42")

	var (
		mu   sync.Mutex
		seen []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			mu.Lock()
			seen = append(seen, cmd)
			mu.Unlock()
			return "reply to " + cmd
		})
	}()

	assert.Eventually(t, func() bool { return len(api.messages()) == 2 }, 3*time.Second, 20*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("polling did not stop")
	}

	mu.Lock()
	assert.Equal(t, []string{"/help", "reliance"}, seen, "messages from other chats are ignored")
	mu.Unlock()
	msgs := api.messages()
	assert.Equal(t, "<pre>reply to /help</pre>", msgs[0]["text"])
	assert.Equal(t, "42", msgs[1]["chat_id"])
}

func TestStartPolling_NoChatIDServesNobody(t *testing.T) {
	api := newFakeBotAPI(t)
	api.mu.Lock()
	api.updates = [][]telegramUpdate{{update(1, 7, "/help"), update(2, 42, "reliance")}}
	api.mu.Unlock()
	n := newTestNotifier(api, "")

	var (
		mu    sync.Mutex
		calls int
	)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	n.StartPolling(ctx, func(_ context.Context, cmd string) string {
		mu.Lock()
		calls++
		mu.Unlock()
		return "reply"
	})

	mu.Lock()
	assert.Zero(t, calls, "without a configured chat no command reaches the handler")
	mu.Unlock()
	assert.Empty(t, api.messages())
}
