package backend

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnconfigured means the backend has no credentials or endpoint.
	// It is never retried.
	ErrUnconfigured = errors.New("provider not configured")
	// ErrUnavailable covers network and upstream failures.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrTimeout means the call exceeded its deadline.
	ErrTimeout = errors.New("provider timed out")
)

// Error ties a failure to the provider that produced it.
type Error struct {
	Provider string
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Unconfigured(provider, reason string) error {
	return &Error{Provider: provider, Kind: ErrUnconfigured, Err: errors.New(reason)}
}

// Unavailable wraps err, promoting context deadlines to ErrTimeout.
func Unavailable(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: provider, Kind: ErrTimeout, Err: err}
	}
	return &Error{Provider: provider, Kind: ErrUnavailable, Err: err}
}

// Reason classifies err into a short label for metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnconfigured):
		return "unconfigured"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}
