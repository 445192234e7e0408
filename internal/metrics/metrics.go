package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxLatencySamples = 1000

type Metrics struct {
	mutex           sync.RWMutex
	requests        map[string]map[string]int64
	roles           map[string]int64
	latencies       map[string][]time.Duration
	tokens          map[string]int64
	health          map[string]float64
	probeLatency    map[string]time.Duration
	breakerStates   map[string]string
	fallbacks       map[string]int64
	fallbackReasons map[string]int64
	lastEvent       time.Time
	startTime       time.Time
}

type Snapshot struct {
	TotalRequests   int64                      `json:"total_requests"`
	Uptime          time.Duration              `json:"uptime"`
	Providers       map[string]ProviderMetrics `json:"providers"`
	Roles           map[string]int64           `json:"roles"`
	Fallbacks       map[string]int64           `json:"fallbacks"`
	FallbackReasons map[string]int64           `json:"fallback_reasons"`
	DroppedEvents   uint64                     `json:"dropped_events"`
	LastEventAt     time.Time                  `json:"last_event_at"`
}

type ProviderMetrics struct {
	Requests     int64            `json:"requests"`
	Statuses     map[string]int64 `json:"statuses"`
	Tokens       int64            `json:"tokens"`
	Health       float64          `json:"health"`
	ProbeLatency time.Duration    `json:"probe_latency"`
	BreakerState string           `json:"breaker_state,omitempty"`
	AvgLatency   time.Duration    `json:"avg_latency"`
	P50Latency   time.Duration    `json:"p50_latency"`
	P95Latency   time.Duration    `json:"p95_latency"`
	P99Latency   time.Duration    `json:"p99_latency"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:        make(map[string]map[string]int64),
		roles:           make(map[string]int64),
		latencies:       make(map[string][]time.Duration),
		tokens:          make(map[string]int64),
		health:          make(map[string]float64),
		probeLatency:    make(map[string]time.Duration),
		breakerStates:   make(map[string]string),
		fallbacks:       make(map[string]int64),
		fallbackReasons: make(map[string]int64),
		startTime:       time.Now(),
	}
}

func (m *Metrics) RecordRequest(provider, role, status string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.requests[provider] == nil {
		m.requests[provider] = make(map[string]int64)
	}
	m.requests[provider][status]++
	m.roles[role]++
}

func (m *Metrics) RecordLatency(provider string, d time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.latencies[provider] = append(m.latencies[provider], d)
	if len(m.latencies[provider]) > maxLatencySamples {
		m.latencies[provider] = m.latencies[provider][1:]
	}
}

func (m *Metrics) RecordFallback(from, to, reason string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fallbacks[from+"->"+to]++
	m.fallbackReasons[reason]++
}

func (m *Metrics) RecordTokens(provider string, n int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.tokens[provider] += int64(n)
}

func (m *Metrics) UpdateHealth(provider string, value float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.health[provider] = value
}

func (m *Metrics) UpdateProbeLatency(provider string, d time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.probeLatency[provider] = d
}

func (m *Metrics) UpdateBreakerState(provider, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.breakerStates[provider] = state
}

// Seen records when an event was emitted. Out-of-order events never move
// the time backwards.
func (m *Metrics) Seen(at time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if at.After(m.lastEvent) {
		m.lastEvent = at
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:          time.Since(m.startTime),
		Providers:       make(map[string]ProviderMetrics),
		Roles:           copyCounts(m.roles),
		Fallbacks:       copyCounts(m.fallbacks),
		FallbackReasons: copyCounts(m.fallbackReasons),
		LastEventAt:     m.lastEvent,
	}

	all := make(map[string]bool)
	for p := range m.requests {
		all[p] = true
	}
	for p := range m.latencies {
		all[p] = true
	}
	for p := range m.health {
		all[p] = true
	}
	for p := range m.breakerStates {
		all[p] = true
	}

	for provider := range all {
		pm := ProviderMetrics{
			Statuses:     copyCounts(m.requests[provider]),
			Tokens:       m.tokens[provider],
			Health:       m.health[provider],
			ProbeLatency: m.probeLatency[provider],
			BreakerState: m.breakerStates[provider],
		}
		for _, n := range pm.Statuses {
			pm.Requests += n
		}
		snap.TotalRequests += pm.Requests

		durations := m.latencies[provider]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			pm.AvgLatency = average(sorted)
			pm.P50Latency = percentile(sorted, 0.50)
			pm.P95Latency = percentile(sorted, 0.95)
			pm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Providers[provider] = pm
	}

	return snap
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
