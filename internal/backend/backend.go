package backend

import (
	"context"
	"time"
)

// Request is what the gateway asks a backend to generate.
type Request struct {
	Prompt       string
	SystemPrompt string
	Role         string
	Model        string
	Temperature  float64
	MaxTokens    int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is a backend's answer. Model is the model that actually served the
// request when the backend reports it.
type Result struct {
	Text  string
	Model string
	Usage Usage
	Raw   map[string]any
}

// Backend is one generation provider.
type Backend interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	// Ping is a lightweight liveness check returning its round trip time.
	Ping(ctx context.Context) (time.Duration, error)
}
