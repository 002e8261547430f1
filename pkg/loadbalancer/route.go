package loadbalancer

import (
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/metrics"
	"github.com/aliciabus/alicia/pkg/types"
)

// Route selects a healthy instance whose breaker admits the request
// (closed or half_open; an open breaker past its recovery time admits a
// half_open probe) according to its configured policy, increments its active
// connection count, and returns its instance_id. The caller MUST call
// Release with the same service/instanceID when the request
// completes, success or failure.
func (r *Registry) Route(service string) (string, error) {
	r.mu.RLock()
	set := r.instances[service]
	cursor := r.cursors[service]
	r.mu.RUnlock()

	now := time.Now()
	candidates := make([]*instanceEntry, 0, len(set))
	for _, entry := range set {
		entry.mu.Lock()
		healthy := entry.inst.HealthStatus == types.HealthStatusHealthy || entry.inst.HealthStatus == types.HealthStatusUnknown
		entry.mu.Unlock()
		// Release marked an open-breaker instance unhealthy, so the
		// breaker, not the health status, decides when it may be probed.
		wasOpen := entry.breaker.Snapshot().State == types.CircuitOpen
		if (healthy || wasOpen) && entry.breaker.Allow(now) {
			if wasOpen {
				entry.mu.Lock()
				entry.inst.HealthStatus = types.HealthStatusUnknown
				entry.mu.Unlock()
			}
			candidates = append(candidates, entry)
		}
	}

	if len(candidates) == 0 {
		metrics.RoutingDecisionsTotal.WithLabelValues(service, "no_healthy_instances").Inc()
		return "", errs.New(errs.KindOverload, "no healthy instances for service "+service)
	}

	var chosen *instanceEntry
	switch r.policyFor(service) {
	case PolicyLeastConnections:
		chosen = pickLeastConnections(candidates)
	case PolicyWeightedRoundRobin:
		chosen = pickWeightedRoundRobin(candidates, cursor)
	case PolicyRandom:
		chosen = candidates[rand.Intn(len(candidates))]
	default:
		chosen = pickRoundRobin(candidates, cursor)
	}

	chosen.mu.Lock()
	chosen.inst.ActiveConnections++
	chosen.inst.TotalRequests++
	instanceID := chosen.inst.InstanceID
	chosen.mu.Unlock()

	metrics.RoutingDecisionsTotal.WithLabelValues(service, "routed").Inc()
	return instanceID, nil
}

// Release decrements an instance's active connection count and
// records the outcome against its circuit breaker.
func (r *Registry) Release(service, instanceID string, success bool) {
	r.mu.RLock()
	entry, ok := r.instances[service][instanceID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	if entry.inst.ActiveConnections > 0 {
		entry.inst.ActiveConnections--
	}
	if !success {
		entry.inst.FailedRequests++
	}
	entry.mu.Unlock()

	var circuitState types.CircuitState
	if success {
		circuitState = entry.breaker.RecordSuccess(instanceID, service)
	} else {
		circuitState = entry.breaker.RecordFailure(instanceID, service, time.Now())
	}

	entry.mu.Lock()
	entry.inst.HealthStatus = healthStatusFor(circuitState)
	entry.mu.Unlock()
}

// healthStatusFor maps a breaker's circuit state onto the instance
// health status the rest of the system observes: open means the
// breaker considers the instance unhealthy, half_open means its
// health is unknown pending a probe, closed means healthy.
func healthStatusFor(state types.CircuitState) types.HealthStatus {
	switch state {
	case types.CircuitOpen:
		return types.HealthStatusUnhealthy
	case types.CircuitHalfOpen:
		return types.HealthStatusUnknown
	default:
		return types.HealthStatusHealthy
	}
}

// BreakerState returns the current circuit breaker bookkeeping for an
// instance.
func (r *Registry) BreakerState(service, instanceID string) (types.CircuitBreakerState, bool) {
	r.mu.RLock()
	entry, ok := r.instances[service][instanceID]
	r.mu.RUnlock()
	if !ok {
		return types.CircuitBreakerState{}, false
	}
	return entry.breaker.Snapshot(), true
}

func pickRoundRobin(candidates []*instanceEntry, cursor *uint64) *instanceEntry {
	sortByInstanceID(candidates)
	i := atomic.AddUint64(cursor, 1)
	return candidates[i%uint64(len(candidates))]
}

func pickLeastConnections(candidates []*instanceEntry) *instanceEntry {
	sortByInstanceID(candidates)
	best := candidates[0]
	bestConns := lockedConnections(best)
	for _, entry := range candidates[1:] {
		if conns := lockedConnections(entry); conns < bestConns {
			best, bestConns = entry, conns
		}
	}
	return best
}

func lockedConnections(entry *instanceEntry) int {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.inst.ActiveConnections
}

// pickWeightedRoundRobin walks a shared cursor over the total weight
// space, so selection probability is weight / sum(weight) over time.
func pickWeightedRoundRobin(candidates []*instanceEntry, cursor *uint64) *instanceEntry {
	sortByInstanceID(candidates)

	total := 0
	weights := make([]int, len(candidates))
	for i, entry := range candidates {
		entry.mu.Lock()
		w := entry.inst.Weight
		entry.mu.Unlock()
		if w < 1 {
			w = 1
		}
		weights[i] = w
		total += w
	}

	pos := int(atomic.AddUint64(cursor, 1) % uint64(total))
	for i, w := range weights {
		if pos < w {
			return candidates[i]
		}
		pos -= w
	}
	return candidates[len(candidates)-1]
}

func sortByInstanceID(candidates []*instanceEntry) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].inst.InstanceID < candidates[j].inst.InstanceID
	})
}
