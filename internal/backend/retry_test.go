package backend_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
)

var _ = Describe("Retry", func() {
	var (
		ctx    context.Context
		calls  int
		policy backend.RetryPolicy
	)

	BeforeEach(func() {
		ctx = context.Background()
		calls = 0
		policy = backend.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
	})

	failing := func(err error) func(context.Context) (*backend.Result, error) {
		return func(context.Context) (*backend.Result, error) {
			calls++
			return nil, err
		}
	}

	It("should return the first success", func() {
		res, err := backend.Retry(ctx, policy, func(context.Context) (*backend.Result, error) {
			calls++
			if calls < 2 {
				return nil, backend.Unavailable("gigachat", errors.New("flaky"))
			}
			return &backend.Result{Text: "ok"}, nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Text).To(Equal("ok"))
		Expect(calls).To(Equal(2))
	})

	It("should stop after MaxAttempts and return the last error", func() {
		_, err := backend.Retry(ctx, policy, failing(backend.Unavailable("gigachat", errors.New("down"))))
		Expect(err).To(MatchError(backend.ErrUnavailable))
		Expect(calls).To(Equal(3))
	})

	It("should make a single attempt when no policy is set", func() {
		_, err := backend.Retry(ctx, backend.RetryPolicy{}, failing(errors.New("down")))
		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	It("should never retry an unconfigured provider", func() {
		_, err := backend.Retry(ctx, policy, failing(backend.Unconfigured("naparnik", "no token")))
		Expect(err).To(MatchError(backend.ErrUnconfigured))
		Expect(calls).To(Equal(1))
	})

	It("should never retry a timeout", func() {
		_, err := backend.Retry(ctx, policy, failing(backend.Unavailable("gigachat", context.DeadlineExceeded)))
		Expect(err).To(MatchError(backend.ErrTimeout))
		Expect(calls).To(Equal(1))
	})
})
