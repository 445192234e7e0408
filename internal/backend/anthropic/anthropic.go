package anthropic

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
)

const defaultModel = "claude-3-5-haiku-latest"

type Config struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Backend calls the Anthropic Messages API.
type Backend struct {
	cfg    Config
	client *anthropic.MessageService
}

// New never fails; without an API key every call returns ErrUnconfigured.
func New(cfg Config) *Backend {
	if cfg.Name == "" {
		cfg.Name = "anthropic"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	b := &Backend{cfg: cfg}
	if cfg.APIKey == "" {
		return b
	}

	// Retries belong to the gateway.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := anthropic.NewClient(opts...)
	b.client = &client.Messages
	return b
}

func (b *Backend) Generate(ctx context.Context, req backend.Request) (*backend.Result, error) {
	if b.client == nil {
		return nil, backend.Unconfigured(b.cfg.Name, "missing api key")
	}

	model := req.Model
	if model == "" {
		model = b.cfg.Model
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := b.client.New(ctx, params)
	if err != nil {
		return nil, backend.Unavailable(b.cfg.Name, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &backend.Result{
		Text:  text.String(),
		Model: string(msg.Model),
		Usage: backend.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		Raw: map[string]any{
			"id":          msg.ID,
			"stop_reason": string(msg.StopReason),
		},
	}, nil
}

// Ping sends a one-token request; the API has no cheaper liveness call.
func (b *Backend) Ping(ctx context.Context) (time.Duration, error) {
	if b.client == nil {
		return 0, backend.Unconfigured(b.cfg.Name, "missing api key")
	}

	start := time.Now()
	_, err := b.client.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.cfg.Model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Ping")),
		},
	})
	if err != nil {
		return 0, backend.Unavailable(b.cfg.Name, err)
	}
	return time.Since(start), nil
}
