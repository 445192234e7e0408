package gateway

import "errors"

var (
	// ErrAllProvidersExhausted ends up in the offline response metadata; it
	// is never returned to callers.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	// ErrConfigurationMissing is logged once when no provider is configured.
	ErrConfigurationMissing = errors.New("no provider configuration")
)
