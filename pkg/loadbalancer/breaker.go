package loadbalancer

import (
	"sync"
	"time"

	"github.com/aliciabus/alicia/pkg/metrics"
	"github.com/aliciabus/alicia/pkg/types"
)

// failureThreshold is the number of consecutive failures a closed
// breaker tolerates; the next failure trips it open.
const failureThreshold = 5

// recoveryTimeout is how long a breaker stays open before allowing one
// half-open probe request through.
const recoveryTimeout = 60 * time.Second

// breaker is a per-instance circuit breaker. Transitions are
// serialized by mu so RecordSuccess/RecordFailure/Allow never race
// against each other for the same instance.
type breaker struct {
	mu    sync.Mutex
	state types.CircuitBreakerState
}

func newBreaker() *breaker {
	return &breaker{state: types.CircuitBreakerState{State: types.CircuitClosed}}
}

// Allow reports whether a request may be routed to this instance right
// now, advancing open -> half_open once the recovery timeout elapses.
func (b *breaker) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state.State {
	case types.CircuitOpen:
		if !now.Before(b.state.NextAttemptAt) {
			b.state.State = types.CircuitHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess closes the breaker: in half_open this is the recovery
// signal, in closed it resets the failure streak. Returns the breaker's
// resulting state so the caller can reflect it onto the instance's
// externally visible health status.
func (b *breaker) RecordSuccess(instanceID, service string) types.CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.State = types.CircuitClosed
	b.state.ConsecutiveFailures = 0
	observeState(instanceID, service, b.state.State)
	return b.state.State
}

// RecordFailure counts a failure, tripping the breaker open once the
// threshold is exceeded (or immediately, from half_open). Returns the
// breaker's resulting state so the caller can reflect it onto the
// instance's externally visible health status.
func (b *breaker) RecordFailure(instanceID, service string, now time.Time) types.CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state.ConsecutiveFailures++
	b.state.LastFailureAt = now

	if b.state.State == types.CircuitHalfOpen || b.state.ConsecutiveFailures > failureThreshold {
		b.state.State = types.CircuitOpen
		b.state.NextAttemptAt = now.Add(recoveryTimeout)
	}
	observeState(instanceID, service, b.state.State)
	return b.state.State
}

// Snapshot returns a copy of the breaker's current bookkeeping.
func (b *breaker) Snapshot() types.CircuitBreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func observeState(instanceID, service string, state types.CircuitState) {
	var v float64
	switch state {
	case types.CircuitHalfOpen:
		v = 1
	case types.CircuitOpen:
		v = 2
	}
	metrics.CircuitBreakerState.WithLabelValues(service, instanceID).Set(v)
}
