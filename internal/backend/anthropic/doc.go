// Package anthropic implements backend.Backend on top of anthropic-sdk-go.
package anthropic
