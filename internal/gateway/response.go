package gateway

import (
	"fmt"
	"strings"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
)

// Response is what every Generate call returns, including total failure.
// Cached responses are shared between callers; treat Raw and the slices as
// read-only.
type Response struct {
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Text     string   `json:"response"`
	Metadata Metadata `json:"metadata"`
}

type Metadata struct {
	Role          string         `json:"role"`
	RequestID     string         `json:"request_id,omitempty"`
	Usage         *backend.Usage `json:"usage,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"`
	Offline       bool           `json:"offline,omitempty"`
	Fallback      bool           `json:"fallback,omitempty"`
	Simulation    bool           `json:"simulation,omitempty"`
	Placeholder   bool           `json:"placeholder,omitempty"`
	Scenario      string         `json:"scenario,omitempty"`
	FallbackChain []string       `json:"fallback_chain,omitempty"`
	Error         string         `json:"error,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

const (
	offlineProvider = "offline"
	offlineModel    = "none"
	offlineText     = "All LLM providers are temporarily unavailable. " +
		"Please try again later or check the network connection."

	placeholderProvider = "unknown"
	placeholderModel    = "unknown"
	previewRunes        = 200
)

func placeholderText(prompt string, fallback []string) string {
	chain := "-"
	if len(fallback) > 0 {
		chain = strings.Join(fallback, ", ")
	}
	return fmt.Sprintf("[LLM placeholder]\nprovider: %s\nmodel: %s\nfallback: %s\nprompt_preview: %s",
		placeholderProvider, placeholderModel, chain, preview(prompt))
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes])
}
