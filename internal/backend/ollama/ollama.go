package ollama

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3"
	defaultTimeout = 120 * time.Second
)

type Config struct {
	Name    string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Backend calls a self-hosted Ollama server. It needs no credentials and is
// the usual last-resort backend.
type Backend struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Backend {
	if cfg.Name == "" {
		cfg.Name = "ollama"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Backend{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	TotalDuration   int64       `json:"total_duration,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

func (b *Backend) Generate(ctx context.Context, req backend.Request) (*backend.Result, error) {
	model := req.Model
	if model == "" {
		model = b.cfg.Model
	}

	msgs := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: msgs,
		Options:  chatOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", b.cfg.Name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", b.cfg.Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, backend.Unavailable(b.cfg.Name, err)
	}
	defer httpResp.Body.Close() //nolint:errcheck

	if httpResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, backend.Unavailable(b.cfg.Name, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, bytes.TrimSpace(msg)))
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, backend.Unavailable(b.cfg.Name, fmt.Errorf("decode response: %w", err))
	}

	served := resp.Model
	if served == "" {
		served = model
	}
	return &backend.Result{
		Text:  resp.Message.Content,
		Model: served,
		Usage: backend.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
		Raw: map[string]any{"total_duration_ns": resp.TotalDuration},
	}, nil
}

// Ping lists local models via /api/tags.
func (b *Backend) Ping(ctx context.Context) (time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.BaseURL+"/api/tags", http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("%s: create request: %w", b.cfg.Name, err)
	}

	start := time.Now()
	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return 0, backend.Unavailable(b.cfg.Name, err)
	}
	_ = httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return 0, backend.Unavailable(b.cfg.Name, fmt.Errorf("unexpected status %d", httpResp.StatusCode))
	}
	return time.Since(start), nil
}
