package openai

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
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	maxErrorBody = 512
)

// Config holds the settings of an OpenAI-compatible endpoint.
type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// KeyOptional allows self-hosted endpoints that take no API key.
	KeyOptional bool
}

// Backend talks to any server exposing /v1/chat/completions.
type Backend struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Backend {
	if cfg.Name == "" {
		cfg.Name = "openai"
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

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage backend.Usage `json:"usage"`
}

func (b *Backend) Generate(ctx context.Context, req backend.Request) (*backend.Result, error) {
	if err := b.configured(); err != nil {
		return nil, err
	}

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
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", b.cfg.Name, err)
	}

	var resp chatResponse
	if err := b.do(ctx, http.MethodPost, "/v1/chat/completions", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, backend.Unavailable(b.cfg.Name, fmt.Errorf("empty choices"))
	}

	served := resp.Model
	if served == "" {
		served = model
	}
	return &backend.Result{
		Text:  resp.Choices[0].Message.Content,
		Model: served,
		Usage: resp.Usage,
		Raw: map[string]any{
			"id":            resp.ID,
			"finish_reason": resp.Choices[0].FinishReason,
		},
	}, nil
}

func (b *Backend) Ping(ctx context.Context) (time.Duration, error) {
	if err := b.configured(); err != nil {
		return 0, err
	}
	start := time.Now()
	if err := b.do(ctx, http.MethodGet, "/v1/models", nil, nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func (b *Backend) configured() error {
	if b.cfg.APIKey == "" && !b.cfg.KeyOptional {
		return backend.Unconfigured(b.cfg.Name, "missing api key")
	}
	return nil
}

// do sends the request and decodes a 200 response into out when out is set.
func (b *Backend) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, b.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", b.cfg.Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return backend.Unavailable(b.cfg.Name, err)
	}
	defer httpResp.Body.Close() //nolint:errcheck

	if httpResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return backend.Unavailable(b.cfg.Name, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, bytes.TrimSpace(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return backend.Unavailable(b.cfg.Name, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
