package healthcheck

import "time"

type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Gauge is the value published to the provider health gauge.
func (s Status) Gauge() float64 {
	switch s {
	case StatusHealthy:
		return 1.0
	case StatusUnhealthy:
		return 0.0
	default:
		return 0.5
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Record struct {
	Status               Status        `json:"status"`
	Latency              time.Duration `json:"latency"`
	LastCheck            time.Time     `json:"last_check"`
	ConsecutiveFailures  int           `json:"consecutive_failures"`
	ConsecutiveSuccesses int           `json:"consecutive_successes"`
	LastError            string        `json:"last_error,omitempty"`
}

func (r *Record) update(latency time.Duration, err error, now time.Time, failureThreshold, recoveryThreshold int) {
	r.LastCheck = now

	if err != nil {
		r.ConsecutiveFailures++
		r.ConsecutiveSuccesses = 0
		r.LastError = err.Error()
		if r.ConsecutiveFailures >= failureThreshold {
			r.Status = StatusUnhealthy
		}
		return
	}

	r.ConsecutiveSuccesses++
	r.ConsecutiveFailures = 0
	r.LastError = ""
	r.Latency = latency

	switch r.Status {
	case StatusUnknown:
		r.Status = StatusHealthy
	case StatusUnhealthy:
		if r.ConsecutiveSuccesses >= recoveryThreshold {
			r.Status = StatusHealthy
		}
	}
}
