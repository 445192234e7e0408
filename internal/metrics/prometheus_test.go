package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angeloszaimis/llm-gateway/internal/metrics"
)

var _ = Describe("Prometheus", func() {
	var prom *metrics.Prometheus

	BeforeEach(func() {
		prom = metrics.NewPrometheus()
	})

	It("should count requests by provider, role and status", func() {
		prom.RecordRequest("gigachat", "code_generation", metrics.StatusSuccess)
		prom.RecordRequest("gigachat", "code_generation", metrics.StatusSuccess)
		prom.RecordRequest("cache", "code_generation", metrics.StatusHit)

		expected := `
# HELP llm_gateway_requests_total Total LLM gateway requests by provider, role and status
# TYPE llm_gateway_requests_total counter
llm_gateway_requests_total{provider="cache",role="code_generation",status="hit"} 1
llm_gateway_requests_total{provider="gigachat",role="code_generation",status="success"} 2
`
		Expect(testutil.GatherAndCompare(prom.Registry(), strings.NewReader(expected), "llm_gateway_requests_total")).To(Succeed())
	})

	It("should count fallbacks with their reason", func() {
		prom.RecordFallback("gigachat", "yandex-gpt", "unavailable")

		expected := `
# HELP llm_gateway_fallbacks_total Fallbacks from one provider to the next
# TYPE llm_gateway_fallbacks_total counter
llm_gateway_fallbacks_total{from_provider="gigachat",reason="unavailable",to_provider="yandex-gpt"} 1
`
		Expect(testutil.GatherAndCompare(prom.Registry(), strings.NewReader(expected), "llm_gateway_fallbacks_total")).To(Succeed())
	})

	It("should set provider gauges", func() {
		prom.SetProviderHealth("gigachat", 0.5)
		prom.SetProviderLatency("gigachat", 1500*time.Microsecond)

		expected := `
# HELP llm_provider_health Provider health: 1 healthy, 0.5 unknown, 0 unhealthy
# TYPE llm_provider_health gauge
llm_provider_health{provider="gigachat"} 0.5
# HELP llm_provider_latency_ms Last observed provider latency in milliseconds
# TYPE llm_provider_latency_ms gauge
llm_provider_latency_ms{provider="gigachat"} 1.5
`
		Expect(testutil.GatherAndCompare(prom.Registry(), strings.NewReader(expected),
			"llm_provider_health", "llm_provider_latency_ms")).To(Succeed())
	})

	It("should observe latency and tokens", func() {
		prom.ObserveLatency("gigachat", "analysis", 2*time.Second)
		prom.RecordTokens("gigachat", 10, 0)
		prom.RecordBreakerTransition("gigachat", "CLOSED", "OPEN")

		Expect(testutil.GatherAndCount(prom.Registry(), "llm_gateway_latency_seconds")).To(Equal(1))
		Expect(testutil.GatherAndCount(prom.Registry(), "llm_gateway_tokens_total")).To(Equal(1))
		Expect(testutil.GatherAndCount(prom.Registry(), "llm_gateway_breaker_transitions_total")).To(Equal(1))
	})

	It("should serve the text exposition format", func() {
		prom.RecordRequest("gigachat", "chat", metrics.StatusError)

		rec := httptest.NewRecorder()
		prom.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		body, _ := io.ReadAll(rec.Body)
		Expect(string(body)).To(ContainSubstring(`llm_gateway_requests_total{provider="gigachat",role="chat",status="error"} 1`))
	})
})

var _ = Describe("Fanout", func() {
	It("should forward to every sink", func() {
		a, b := metrics.NewPrometheus(), metrics.NewPrometheus()
		sink := metrics.Fanout{a, b, metrics.Nop{}}

		sink.RecordRequest("gigachat", "chat", metrics.StatusSuccess)

		Expect(testutil.GatherAndCount(a.Registry(), "llm_gateway_requests_total")).To(Equal(1))
		Expect(testutil.GatherAndCount(b.Registry(), "llm_gateway_requests_total")).To(Equal(1))
	})
})
