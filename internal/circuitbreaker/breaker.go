package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrOpen is returned by Execute when the breaker rejects a call.
var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking calls
	StateHalfOpen              // Probing with a limited number of calls
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config holds the thresholds of a single breaker.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	// HalfOpenMaxCalls caps concurrent probes while half-open.
	// Zero means SuccessThreshold.
	HalfOpenMaxCalls int
}

// Counts is a point-in-time copy of the breaker counters.
type Counts struct {
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastTransition       time.Time
}

type CircuitBreaker struct {
	mutex sync.Mutex

	name     string
	state    State
	failures int
	// successes only counts while half-open.
	successes      int
	halfOpenCalls  int
	lastTransition time.Time

	cfg           Config
	clock         clock.Clock
	ignore        func(error) bool
	onStateChange func(name string, from, to State)
}

type Option func(*CircuitBreaker)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clk clock.Clock) Option {
	return func(cb *CircuitBreaker) {
		cb.clock = clk
	}
}

// WithIgnoredErrors marks errors that pass through Execute without being
// counted as a success or a failure.
func WithIgnoredErrors(ignore func(error) bool) Option {
	return func(cb *CircuitBreaker) {
		cb.ignore = ignore
	}
}

// WithStateChangeHook is called after every transition, outside the lock.
func WithStateChangeHook(fn func(name string, from, to State)) Option {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = fn
	}
}

func NewCircuitBreaker(name string, cfg Config, opts ...Option) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	if cfg.HalfOpenMaxCalls < 1 {
		cfg.HalfOpenMaxCalls = cfg.SuccessThreshold
	}

	cb := &CircuitBreaker{
		name:  name,
		state: StateClosed,
		cfg:   cfg,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.lastTransition = cb.clock.Now()
	return cb
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// ShouldAttempt reports whether a call may proceed right now. It is false
// while open and not yet timed out, and while all half-open probe slots
// are taken.
func (cb *CircuitBreaker) ShouldAttempt() bool {
	cb.mutex.Lock()
	transition := cb.advance()
	allowed := cb.state != StateOpen &&
		(cb.state != StateHalfOpen || cb.halfOpenCalls < cb.cfg.HalfOpenMaxCalls)
	cb.mutex.Unlock()

	cb.notify(transition)
	return allowed
}

// Execute runs fn if the breaker admits the call and records its outcome.
// The error from fn is returned unchanged after bookkeeping.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	halfOpen, transition, ok := cb.acquire()
	cb.notify(transition)
	if !ok {
		return ErrOpen
	}

	err := fn()

	cb.notify(cb.record(err, halfOpen))
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	transition := cb.advance()
	state := cb.state
	cb.mutex.Unlock()

	cb.notify(transition)
	return state
}

func (cb *CircuitBreaker) Counts() Counts {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return Counts{
		State:                cb.state,
		ConsecutiveFailures:  cb.failures,
		ConsecutiveSuccesses: cb.successes,
		LastTransition:       cb.lastTransition,
	}
}

// Reset puts the breaker back to closed with zeroed counters.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	transition := cb.setState(StateClosed)
	cb.halfOpenCalls = 0
	cb.mutex.Unlock()

	cb.notify(transition)
}

func (cb *CircuitBreaker) acquire() (halfOpen bool, t *transition, ok bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	t = cb.advance()

	switch cb.state {
	case StateOpen:
		return false, t, false
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.cfg.HalfOpenMaxCalls {
			return false, t, false
		}
		cb.halfOpenCalls++
		return true, t, true
	default:
		return false, t, true
	}
}

func (cb *CircuitBreaker) record(err error, halfOpen bool) *transition {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if halfOpen && cb.halfOpenCalls > 0 {
		cb.halfOpenCalls--
	}

	if err != nil && cb.ignore != nil && cb.ignore(err) {
		return nil
	}

	if err != nil {
		return cb.onFailure()
	}
	return cb.onSuccess()
}

func (cb *CircuitBreaker) onFailure() *transition {
	switch cb.state {
	case StateHalfOpen:
		return cb.setState(StateOpen)
	case StateOpen:
		// A call admitted before another one tripped the breaker.
		cb.lastTransition = cb.clock.Now()
		return nil
	default:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			return cb.setState(StateOpen)
		}
		return nil
	}
}

func (cb *CircuitBreaker) onSuccess() *transition {
	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			return cb.setState(StateClosed)
		}
		return nil
	case StateClosed:
		cb.failures = 0
		return nil
	default:
		return nil
	}
}

// advance moves an open breaker to half-open once the timeout elapsed.
// Caller holds the mutex.
func (cb *CircuitBreaker) advance() *transition {
	if cb.state == StateOpen && cb.clock.Since(cb.lastTransition) >= cb.cfg.Timeout {
		return cb.setState(StateHalfOpen)
	}
	return nil
}

// Caller holds the mutex.
func (cb *CircuitBreaker) setState(to State) *transition {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.lastTransition = cb.clock.Now()
	if to != StateHalfOpen {
		cb.halfOpenCalls = 0
	}

	if from == to {
		return nil
	}
	return &transition{from: from, to: to}
}

type transition struct {
	from, to State
}

func (cb *CircuitBreaker) notify(t *transition) {
	if t == nil || cb.onStateChange == nil {
		return
	}
	cb.onStateChange(cb.name, t.from, t.to)
}
