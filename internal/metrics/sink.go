package metrics

import "time"

// Request status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusHit     = "hit"
)

// Sink receives gateway telemetry. Implementations must be safe for
// concurrent use and must not block the caller.
type Sink interface {
	RecordRequest(provider, role, status string)
	ObserveLatency(provider, role string, d time.Duration)
	RecordFallback(from, to, reason string)
	RecordTokens(provider string, prompt, completion int)
	SetProviderHealth(provider string, value float64)
	SetProviderLatency(provider string, latency time.Duration)
	RecordBreakerTransition(provider, from, to string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, string, string) {}
func (Nop) ObserveLatency(string, string, time.Duration) {}
func (Nop) RecordFallback(string, string, string) {}
func (Nop) RecordTokens(string, int, int) {}
func (Nop) SetProviderHealth(string, float64) {}
func (Nop) SetProviderLatency(string, time.Duration) {}
func (Nop) RecordBreakerTransition(string, string, string) {}

// Fanout forwards every call to each of its sinks in order.
type Fanout []Sink

func (f Fanout) RecordRequest(provider, role, status string) {
	for _, s := range f {
		s.RecordRequest(provider, role, status)
	}
}

func (f Fanout) ObserveLatency(provider, role string, d time.Duration) {
	for _, s := range f {
		s.ObserveLatency(provider, role, d)
	}
}

func (f Fanout) RecordFallback(from, to, reason string) {
	for _, s := range f {
		s.RecordFallback(from, to, reason)
	}
}

func (f Fanout) RecordTokens(provider string, prompt, completion int) {
	for _, s := range f {
		s.RecordTokens(provider, prompt, completion)
	}
}

func (f Fanout) SetProviderHealth(provider string, value float64) {
	for _, s := range f {
		s.SetProviderHealth(provider, value)
	}
}

func (f Fanout) SetProviderLatency(provider string, latency time.Duration) {
	for _, s := range f {
		s.SetProviderLatency(provider, latency)
	}
}

func (f Fanout) RecordBreakerTransition(provider, from, to string) {
	for _, s := range f {
		s.RecordBreakerTransition(provider, from, to)
	}
}
