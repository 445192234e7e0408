package bedrock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
)

const defaultModel = "anthropic.claude-3-haiku-20240307-v1:0"

type Config struct {
	Name   string
	Region string
	Model  string
}

// converser is the part of the bedrockruntime client the backend needs.
type converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Backend calls models hosted on AWS Bedrock through the Converse API.
type Backend struct {
	cfg    Config
	client converser
}

// New loads the default AWS credential chain for cfg.Region. Without a region
// every call returns ErrUnconfigured.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Name == "" {
		cfg.Name = "bedrock"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	b := &Backend{cfg: cfg}
	if cfg.Region == "" {
		return b, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%s: load aws config: %w", cfg.Name, err)
	}
	b.client = bedrockruntime.NewFromConfig(awsCfg)
	return b, nil
}

func (b *Backend) Generate(ctx context.Context, req backend.Request) (*backend.Result, error) {
	if b.client == nil {
		return nil, backend.Unconfigured(b.cfg.Name, "missing region")
	}

	model := req.Model
	if model == "" {
		model = b.cfg.Model
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.Prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	if req.SystemPrompt != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.SystemPrompt}}
	}

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return nil, backend.Unavailable(b.cfg.Name, err)
	}
	return toResult(b.cfg.Name, model, out)
}

// Ping runs a one-token Converse call.
func (b *Backend) Ping(ctx context.Context) (time.Duration, error) {
	if b.client == nil {
		return 0, backend.Unconfigured(b.cfg.Name, "missing region")
	}

	start := time.Now()
	_, err := b.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.cfg.Model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: "Ping"}},
		}},
		InferenceConfig: &types.InferenceConfiguration{MaxTokens: aws.Int32(1)},
	})
	if err != nil {
		return 0, backend.Unavailable(b.cfg.Name, err)
	}
	return time.Since(start), nil
}

func toResult(name, model string, out *bedrockruntime.ConverseOutput) (*backend.Result, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, backend.Unavailable(name, fmt.Errorf("unexpected output type %T", out.Output))
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}

	result := &backend.Result{
		Text:  text.String(),
		Model: model,
		Raw:   map[string]any{"stop_reason": string(out.StopReason)},
	}
	if u := out.Usage; u != nil {
		result.Usage = backend.Usage{
			PromptTokens:     int(aws.ToInt32(u.InputTokens)),
			CompletionTokens: int(aws.ToInt32(u.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(u.TotalTokens)),
		}
	}
	return result, nil
}
