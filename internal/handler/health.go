package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/angeloszaimis/llm-gateway/internal/cache"
	"github.com/angeloszaimis/llm-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/llm-gateway/internal/healthcheck"
)

// Overall gateway status reported by /health.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

type HealthSource interface {
	Snapshot() map[string]healthcheck.Record
}

type BreakerSource interface {
	Stats() map[string]circuitbreaker.Counts
}

type CacheSource interface {
	CacheStats() cache.Stats
}

type ProviderReport struct {
	Status              string    `json:"status"`
	LatencyMS           float64   `json:"latency_ms"`
	LastCheck           time.Time `json:"last_check"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	Breaker             string    `json:"breaker,omitempty"`
}

type HealthReport struct {
	Status       string                    `json:"status"`
	Providers    map[string]ProviderReport `json:"providers"`
	Unhealthy    []string                  `json:"unhealthy,omitempty"`
	OpenCircuits []string                  `json:"open_circuits,omitempty"`
	Cache        *cache.Stats              `json:"cache,omitempty"`
}

type HealthHandler struct {
	health   HealthSource
	breakers BreakerSource
	cache    CacheSource
}

// NewHealthHandler accepts nil sources; their sections are left out.
func NewHealthHandler(health HealthSource, breakers BreakerSource, cache CacheSource) *HealthHandler {
	return &HealthHandler{health: health, breakers: breakers, cache: cache}
}

// Report builds the current health report. The gateway is down when every
// known provider is unhealthy or has an open circuit.
func (h *HealthHandler) Report() HealthReport {
	report := HealthReport{Providers: make(map[string]ProviderReport)}

	if h.health != nil {
		for name, rec := range h.health.Snapshot() {
			report.Providers[name] = ProviderReport{
				Status:              rec.Status.String(),
				LatencyMS:           float64(rec.Latency) / float64(time.Millisecond),
				LastCheck:           rec.LastCheck,
				ConsecutiveFailures: rec.ConsecutiveFailures,
				LastError:           rec.LastError,
			}
			if rec.Status == healthcheck.StatusUnhealthy {
				report.Unhealthy = append(report.Unhealthy, name)
			}
		}
	}

	if h.breakers != nil {
		for name, counts := range h.breakers.Stats() {
			p, ok := report.Providers[name]
			if !ok {
				p.Status = healthcheck.StatusUnknown.String()
			}
			p.Breaker = counts.State.String()
			report.Providers[name] = p
			if counts.State == circuitbreaker.StateOpen {
				report.OpenCircuits = append(report.OpenCircuits, name)
			}
		}
	}

	if h.cache != nil {
		stats := h.cache.CacheStats()
		report.Cache = &stats
	}

	sort.Strings(report.Unhealthy)
	sort.Strings(report.OpenCircuits)
	report.Status = overallStatus(report)
	return report
}

func overallStatus(r HealthReport) string {
	down := 0
	for _, p := range r.Providers {
		if p.Status == healthcheck.StatusUnhealthy.String() || p.Breaker == circuitbreaker.StateOpen.String() {
			down++
		}
	}

	switch {
	case len(r.Providers) > 0 && down == len(r.Providers):
		return StatusDown
	case down > 0:
		return StatusDegraded
	default:
		return StatusOK
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	report := h.Report()
	code := http.StatusOK
	if report.Status == StatusDown {
		code = http.StatusServiceUnavailable
	}

	body, err := json.Marshal(report)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
