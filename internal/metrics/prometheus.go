package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exports gateway telemetry on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	fallbacksTotal    *prometheus.CounterVec
	tokensTotal       *prometheus.CounterVec
	providerHealth    *prometheus.GaugeVec
	providerLatency   *prometheus.GaugeVec
	breakerTransition *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_gateway_requests_total",
				Help: "Total LLM gateway requests by provider, role and status",
			},
			[]string{"provider", "role", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_gateway_latency_seconds",
				Help:    "LLM gateway request latency in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
			[]string{"provider", "role"},
		),
		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_gateway_fallbacks_total",
				Help: "Fallbacks from one provider to the next",
			},
			[]string{"from_provider", "to_provider", "reason"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_gateway_tokens_total",
				Help: "Tokens reported by providers",
			},
			[]string{"provider", "type"},
		),
		providerHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "llm_provider_health",
				Help: "Provider health: 1 healthy, 0.5 unknown, 0 unhealthy",
			},
			[]string{"provider"},
		),
		providerLatency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "llm_provider_latency_ms",
				Help: "Last observed provider latency in milliseconds",
			},
			[]string{"provider"},
		),
		breakerTransition: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_gateway_breaker_transitions_total",
				Help: "Circuit breaker state transitions",
			},
			[]string{"provider", "from", "to"},
		),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.requestsTotal,
		p.requestLatency,
		p.fallbacksTotal,
		p.tokensTotal,
		p.providerHealth,
		p.providerLatency,
		p.breakerTransition,
	)
	return p
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) RecordRequest(provider, role, status string) {
	p.requestsTotal.WithLabelValues(provider, role, status).Inc()
}

func (p *Prometheus) ObserveLatency(provider, role string, d time.Duration) {
	p.requestLatency.WithLabelValues(provider, role).Observe(d.Seconds())
}

func (p *Prometheus) RecordFallback(from, to, reason string) {
	p.fallbacksTotal.WithLabelValues(from, to, reason).Inc()
}

func (p *Prometheus) RecordTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		p.tokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		p.tokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

func (p *Prometheus) SetProviderHealth(provider string, value float64) {
	p.providerHealth.WithLabelValues(provider).Set(value)
}

func (p *Prometheus) SetProviderLatency(provider string, latency time.Duration) {
	p.providerLatency.WithLabelValues(provider).Set(float64(latency) / float64(time.Millisecond))
}

func (p *Prometheus) RecordBreakerTransition(provider, from, to string) {
	p.breakerTransition.WithLabelValues(provider, from, to).Inc()
}
