package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// KeyParts are the request fields that identify a cached response.
type KeyParts struct {
	Prompt       string
	Role         string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// canonicalKey fixes field order. Temperature is kept as text so NaN and
// the infinities encode like any other value.
type canonicalKey struct {
	Prompt       string `json:"prompt"`
	Role         string `json:"role"`
	Temperature  string `json:"temperature"`
	MaxTokens    int    `json:"max_tokens"`
	SystemPrompt string `json:"system_prompt"`
}

// Key returns the hex sha256 of the canonical encoding of p.
func Key(p KeyParts) (string, error) {
	b, err := json.Marshal(canonicalKey{
		Prompt:       p.Prompt,
		Role:         p.Role,
		Temperature:  strconv.FormatFloat(p.Temperature, 'g', -1, 64),
		MaxTokens:    p.MaxTokens,
		SystemPrompt: p.SystemPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("encoding cache key: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
