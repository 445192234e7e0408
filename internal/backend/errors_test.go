package backend_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
)

var _ = Describe("Errors", func() {
	DescribeTable("Reason",
		func(err error, want string) {
			Expect(backend.Reason(err)).To(Equal(want))
		},
		Entry("nil", nil, "none"),
		Entry("unconfigured", backend.Unconfigured("gigachat", "missing api key"), "unconfigured"),
		Entry("unavailable", backend.Unavailable("gigachat", errors.New("connection refused")), "unavailable"),
		Entry("deadline promoted to timeout", backend.Unavailable("gigachat", context.DeadlineExceeded), "timeout"),
		Entry("bare deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), "timeout"),
		Entry("canceled", context.Canceled, "canceled"),
		Entry("anything else", errors.New("boom"), "unavailable"),
	)

	It("should keep both the kind and the cause reachable", func() {
		cause := errors.New("HTTP 502")
		err := backend.Unavailable("yandex-gpt", cause)

		Expect(errors.Is(err, backend.ErrUnavailable)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(Equal("yandex-gpt: provider unavailable: HTTP 502"))

		var be *backend.Error
		Expect(errors.As(err, &be)).To(BeTrue())
		Expect(be.Provider).To(Equal("yandex-gpt"))
	})
})
