package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		ticker    string
		company   string
		questions []string
	}{
		{
			name:      "plain json",
			output:    `{"ticker": "TCS", "company": "Tata Consultancy Services", "questions": ["What was revenue last year?"]}`,
			ticker:    "TCS",
			company:   "Tata Consultancy Services",
			questions: []string{"What was revenue last year?"},
		},
		{
			name:    "NONE ticker",
			output:  `{"ticker": "NONE", "company": "Tata Steel", "questions": []}`,
			company: "Tata Steel",
		},
		{
			name:      "null values",
			output:    `{"ticker": null, "company": null, "questions": ["  ", "profit?"]}`,
			questions: []string{"profit?"},
		},
		{
			name:      "code fence and trailing comma",
			output:    "```json\n{\"ticker\": \"INFY\", \"company\": \"Infosys\", \"questions\": [\"margins\",],}\n```",
			ticker:    "INFY",
			company:   "Infosys",
			questions: []string{"margins"},
		},
		{
			name:    "single quotes",
			output:  `{'ticker': 'RELIANCE', 'company': 'Reliance Industries'}`,
			ticker:  "RELIANCE",
			company: "Reliance Industries",
		},
		{
			name:    "lower-case placeholder",
			output:  `{"ticker": "null", "company": "Wipro"}`,
			company: "Wipro",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Decode(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.ticker, in.Ticker)
			assert.Equal(t, tt.company, in.Company)
			assert.Equal(t, tt.questions, in.Questions)
		})
	}
}

func TestDecode_Unparseable(t *testing.T) {
	for _, output := range []string{"", "   ", "I am not sure which company you mean."} {
		_, err := Decode(output)
		assert.ErrorIs(t, err, ErrUnparseable, "output %q", output)
	}
}

func streamLines(tokens ...string) string {
	var b strings.Builder
	for _, tok := range tokens {
		line, _ := json.Marshal(generateChunk{Response: tok})
		b.Write(line)
		b.WriteString("\n")
	}
	b.WriteString(`{"response":"","done":true}` + "\n")
	return b.String()
}

func TestParser_Parse(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, streamLines(`{"ticker": "HDFC`, `BANK", "company": `, `"HDFC Bank", "questions": ["net interest income?"]}`))
	}))
	defer srv.Close()

	p := NewParser(srv.URL+"/", "llama3.2", 0, zaptest.NewLogger(t))
	in, err := p.Parse(context.Background(), "how is hdfc bank doing")
	require.NoError(t, err)

	assert.Equal(t, "HDFCBANK", in.Ticker)
	assert.Equal(t, "HDFC Bank", in.Company)
	assert.Equal(t, []string{"net interest income?"}, in.Questions)
	assert.Equal(t, "llama3.2", got.Model)
	assert.True(t, strings.HasSuffix(got.Prompt, "how is hdfc bank doing"))
}

func TestParser_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusNotFound)
		}, "status 404"},
		{"stream error", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"error":"out of memory"}`)
		}, "out of memory"},
		{"garbage stream", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `<html>`)
		}, "decode stream line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			p := NewParser(srv.URL, "m", 0, nil)
			_, err := p.Parse(context.Background(), "q")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParser_Models(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[{"name":"llama3.2:latest","size":2019393189},{"name":"qwen2.5:7b"},{"name":""}]}`)
	}))
	defer srv.Close()

	p := NewParser(srv.URL, "llama3.2", 0, nil)
	models, err := p.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2:latest", "qwen2.5:7b"}, models)

	p.SetModel(models[1])
	assert.Equal(t, "qwen2.5:7b", p.Model())
}
