package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/llm-gateway/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	It("should start empty", func() {
		snap := m.Snapshot()
		Expect(snap.TotalRequests).To(BeZero())
		Expect(snap.Providers).To(BeEmpty())
	})

	It("should track providers separately", func() {
		m.RecordRequest("gigachat", "chat", metrics.StatusSuccess)
		m.RecordRequest("yandex-gpt", "chat", metrics.StatusError)
		m.RecordRequest("gigachat", "chat", metrics.StatusSuccess)

		snap := m.Snapshot()
		Expect(snap.TotalRequests).To(Equal(int64(3)))
		Expect(snap.Providers["gigachat"].Requests).To(Equal(int64(2)))
		Expect(snap.Providers["yandex-gpt"].Statuses[metrics.StatusError]).To(Equal(int64(1)))
	})

	It("should compute percentiles over sorted samples", func() {
		for i := 1; i <= 100; i++ {
			m.RecordLatency("gigachat", time.Duration(i)*time.Millisecond)
		}

		pm := m.Snapshot().Providers["gigachat"]
		Expect(pm.P50Latency).To(Equal(51 * time.Millisecond))
		Expect(pm.P95Latency).To(Equal(96 * time.Millisecond))
		Expect(pm.P99Latency).To(Equal(100 * time.Millisecond))
	})

	It("should keep a bounded latency window", func() {
		for i := 0; i < 1500; i++ {
			m.RecordLatency("gigachat", time.Second)
		}
		m.RecordLatency("gigachat", 3*time.Second)

		Expect(m.Snapshot().Providers["gigachat"].P99Latency).To(Equal(time.Second))
	})

	It("should report providers known only from health updates", func() {
		m.UpdateHealth("ollama", 1.0)
		m.UpdateBreakerState("ollama", "CLOSED")

		pm := m.Snapshot().Providers["ollama"]
		Expect(pm.Health).To(Equal(1.0))
		Expect(pm.BreakerState).To(Equal("CLOSED"))
		Expect(pm.Requests).To(BeZero())
	})
})
