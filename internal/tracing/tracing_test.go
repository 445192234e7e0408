package tracing_test

import (
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/angeloszaimis/llm-gateway/internal/tracing"
)

var _ = Describe("Tracing", func() {
	It("should be a no-op without an endpoint", func() {
		shutdown, err := tracing.Init(context.Background(), tracing.Config{}, slog.New(slog.DiscardHandler))
		Expect(err).NotTo(HaveOccurred())
		Expect(shutdown(context.Background())).To(Succeed())
	})

	It("should install a provider when an endpoint is set", func() {
		shutdown, err := tracing.Init(context.Background(), tracing.Config{
			ServiceName: "llm-gateway",
			Endpoint:    "localhost:4318",
			Insecure:    true,
			SampleRate:  1,
		}, slog.New(slog.DiscardHandler))
		Expect(err).NotTo(HaveOccurred())
		Expect(tracing.Tracer()).NotTo(BeNil())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = shutdown(ctx)
	})

	DescribeTable("NewProvider sampling",
		func(rate float64, recorded int) {
			exporter := tracetest.NewInMemoryExporter()
			tp := tracing.NewProvider(tracing.Config{ServiceName: "test", SampleRate: rate},
				sdktrace.WithSyncer(exporter))

			_, span := tp.Tracer("test").Start(context.Background(), "op")
			span.End()

			Expect(exporter.GetSpans()).To(HaveLen(recorded))
			Expect(tp.Shutdown(context.Background())).To(Succeed())
		},
		Entry("always", 1.0, 1),
		Entry("never", 0.0, 0),
	)
})
