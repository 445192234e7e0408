// Package circuitbreaker isolates failing generation backends.
//
// Each provider gets its own breaker with three states:
//
//   - CLOSED: calls pass through; consecutive failures are counted
//   - OPEN: calls are rejected without touching the backend
//   - HALF-OPEN: a limited number of probe calls decide whether to close again
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry([]string{"gigachat"}, circuitbreaker.Config{
//	    FailureThreshold: 5,
//	    SuccessThreshold: 2,
//	    Timeout:          60 * time.Second,
//	}, nil)
//	cb, _ := registry.Breaker("gigachat")
//	if cb.ShouldAttempt() {
//	    err := cb.Execute(func() error {
//	        return callBackend()
//	    })
//	}
package circuitbreaker
