// Package intent turns a free-form question into a ticker/company guess using
// a locally hosted Ollama model.
package intent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"Scout/internal/model"
)

const prompt = `You read questions about companies listed on the National Stock Exchange of India.

From the question below:
1. Find the company name or ticker the user is asking about.
2. Give its NSE ticker only when you are certain of it. Otherwise set "ticker" to "NONE" and keep the company name.
3. Never guess or invent a symbol. If several companies could match, set "ticker" to null.
4. Split the question into short self-contained sub-questions.

Reply with JSON only, in exactly this shape:
{"ticker": "SYMBOL or NONE", "company": "company name or null", "questions": ["..."]}

Question: `

// Parser queries an Ollama server.
type Parser struct {
	Host   string
	client *http.Client
	log    *zap.Logger

	mu    sync.RWMutex
	model string
}

// NewParser creates a Parser for the given Ollama base URL and model name.
func NewParser(host, modelName string, timeout time.Duration, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Parser{
		Host:   strings.TrimRight(host, "/"),
		client: &http.Client{Timeout: timeout},
		log:    log,
		model:  modelName,
	}
}

// Model returns the model currently in use.
func (p *Parser) Model() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

// SetModel switches the model used by later Parse calls.
func (p *Parser) SetModel(name string) {
	p.mu.Lock()
	p.model = name
	p.mu.Unlock()
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Parse sends the question to the model and decodes the streamed answer.
func (p *Parser) Parse(ctx context.Context, question string) (model.Intent, error) {
	body, err := json.Marshal(generateRequest{Model: p.Model(), Prompt: prompt + question})
	if err != nil {
		return model.Intent{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return model.Intent{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return model.Intent{}, fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.Intent{}, fmt.Errorf("ollama generate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	output, err := readStream(resp.Body)
	if err != nil {
		return model.Intent{}, fmt.Errorf("ollama generate: %w", err)
	}
	p.log.Debug("intent model answered",
		zap.String("model", p.Model()),
		zap.Duration("took", time.Since(start)),
		zap.String("output", output))

	return Decode(output)
}

// readStream concatenates the response tokens of an NDJSON generate stream.
func readStream(r io.Reader) (string, error) {
	var out strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("decode stream line: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("model error: %s", chunk.Error)
		}
		out.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return out.String(), nil
}

// Models lists the models installed on the Ollama server.
func (p *Parser) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags: status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}
