package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
)

const defaultModel = "gemini-2.0-flash"

type Config struct {
	Name   string
	APIKey string
	Model  string
}

// Backend calls the Gemini API through google.golang.org/genai.
type Backend struct {
	cfg    Config
	client *genai.Client
}

// New builds the client when an API key is set. A missing key is not an
// error here; calls report ErrUnconfigured instead.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	b := &Backend{cfg: cfg}
	if cfg.APIKey == "" {
		return b, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create client: %w", cfg.Name, err)
	}
	b.client = client
	return b, nil
}

func (b *Backend) Generate(ctx context.Context, req backend.Request) (*backend.Result, error) {
	if b.client == nil {
		return nil, backend.Unconfigured(b.cfg.Name, "missing api key")
	}

	model := req.Model
	if model == "" {
		model = b.cfg.Model
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := b.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}, config)
	if err != nil {
		return nil, backend.Unavailable(b.cfg.Name, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, backend.Unavailable(b.cfg.Name, fmt.Errorf("no candidates"))
	}

	result := &backend.Result{
		Text:  resp.Text(),
		Model: model,
		Raw: map[string]any{
			"finish_reason": string(resp.Candidates[0].FinishReason),
		},
	}
	if resp.ModelVersion != "" {
		result.Model = resp.ModelVersion
	}
	if usage := resp.UsageMetadata; usage != nil {
		result.Usage = backend.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return result, nil
}

// Ping fetches the configured model's metadata.
func (b *Backend) Ping(ctx context.Context) (time.Duration, error) {
	if b.client == nil {
		return 0, backend.Unconfigured(b.cfg.Name, "missing api key")
	}

	start := time.Now()
	if _, err := b.client.Models.Get(ctx, b.cfg.Model, nil); err != nil {
		return 0, backend.Unavailable(b.cfg.Name, err)
	}
	return time.Since(start), nil
}
