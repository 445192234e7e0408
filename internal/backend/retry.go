package backend

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds retries inside a single provider attempt.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

const (
	defaultMaxAttempts = 1
	maxBackoffFactor   = 8
)

// Retry calls op until it succeeds, the policy is exhausted, or ctx ends.
// Unconfigured providers and context errors are returned at once.
func Retry(ctx context.Context, policy RetryPolicy, op func(context.Context) (*Result, error)) (*Result, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = defaultMaxAttempts
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.Backoff
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Millisecond
	}
	b.MaxInterval = b.InitialInterval * maxBackoffFactor

	res, err := backoff.Retry(ctx, func() (*Result, error) {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		if !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Unwrap()
		}
		return nil, err
	}
	return res, nil
}

func retryable(err error) bool {
	return !errors.Is(err, ErrUnconfigured) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
