package gateway

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
	"github.com/angeloszaimis/llm-gateway/internal/cache"
	"github.com/angeloszaimis/llm-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/llm-gateway/internal/metrics"
)

const (
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 2048
	DefaultRequestTimeout = 120 * time.Second
	DefaultSystemPrompt   = "You are a helpful AI assistant."
)

var defaultBreakerConfig = circuitbreaker.Config{
	FailureThreshold: 5,
	SuccessThreshold: 2,
	Timeout:          60 * time.Second,
}

type Option func(*Gateway)

// WithHealthMonitor makes routing skip providers the monitor reports
// unhealthy.
func WithHealthMonitor(h HealthChecker) Option {
	return func(g *Gateway) {
		g.health = h
	}
}

func WithCache(c *cache.Cache[Response]) Option {
	return func(g *Gateway) {
		g.cache = c
	}
}

func WithMetrics(s metrics.Sink) Option {
	return func(g *Gateway) {
		g.sink = s
	}
}

func WithSimulator(s Simulator) Option {
	return func(g *Gateway) {
		g.simulator = s
	}
}

// WithLastResort sets the backend tried once after the whole chain failed.
func WithLastResort(name, model string, b backend.Backend) Option {
	return func(g *Gateway) {
		g.lastResort = &lastResort{name: name, model: model, backend: b}
	}
}

// WithDefaultProvider names the provider used when no chain resolves.
func WithDefaultProvider(name string) Option {
	return func(g *Gateway) {
		g.defaultProvider = name
	}
}

// WithBreakers replaces the breakers New would build. The caller is then
// responsible for their hooks and ignored errors.
func WithBreakers(r *circuitbreaker.Registry) Option {
	return func(g *Gateway) {
		g.breakers = r
	}
}

// WithBreakerConfig sets the defaults for the breakers New builds.
func WithBreakerConfig(cfg circuitbreaker.Config) Option {
	return func(g *Gateway) {
		g.breakerConfig = cfg
	}
}

// WithRequestTimeout bounds each backend call of providers that have no
// timeout of their own.
func WithRequestTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.requestTimeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithClock(clk clock.Clock) Option {
	return func(g *Gateway) {
		g.clock = clk
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = t
	}
}

type request struct {
	role         string
	temperature  float64
	maxTokens    int
	systemPrompt string
	timeout      time.Duration
}

type RequestOption func(*request)

func WithRole(role string) RequestOption {
	return func(r *request) {
		r.role = role
	}
}

func WithTemperature(t float64) RequestOption {
	return func(r *request) {
		r.temperature = t
	}
}

func WithMaxTokens(n int) RequestOption {
	return func(r *request) {
		r.maxTokens = n
	}
}

func WithSystemPrompt(s string) RequestOption {
	return func(r *request) {
		r.systemPrompt = s
	}
}

// WithTimeout bounds the whole Generate call. When it expires the in-flight
// backend call is cancelled and counts as a provider failure.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *request) {
		r.timeout = d
	}
}
