package loadbalancer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_RoundRobinCyclesInstances(t *testing.T) {
	r := NewRegistry()
	r.Register("tts", "b", "host-b", 9000)
	r.Register("tts", "a", "host-a", 9000)

	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		id, err := r.Route("tts")
		require.NoError(t, err)
		seen[id]++
		r.Release("tts", id, true)
	}
	assert.NotZero(t, seen["a"])
	assert.NotZero(t, seen["b"])
}

func TestRoute_NoHealthyInstancesFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.Route("ghost")
	assert.Error(t, err)
}

func TestRoute_LeastConnectionsPrefersIdlest(t *testing.T) {
	r := NewRegistry()
	r.SetPolicy("stt", PolicyLeastConnections)
	r.Register("stt", "busy", "host", 9000)
	r.Register("stt", "idle", "host", 9000)

	_, err := r.Route("stt") // both idle: the tie goes to the lowest instance_id
	require.NoError(t, err)
	// Route three more times without releasing; each pick goes to the
	// instance with fewer active connections.
	for i := 0; i < 3; i++ {
		_, err := r.Route("stt")
		require.NoError(t, err)
	}

	minConns := -1
	for _, inst := range r.Instances("stt") {
		if minConns < 0 || inst.ActiveConnections < minConns {
			minConns = inst.ActiveConnections
		}
	}

	id, err := r.Route("stt")
	require.NoError(t, err)

	var idleConns int
	for _, inst := range r.Instances("stt") {
		if inst.InstanceID == id {
			idleConns = inst.ActiveConnections
		}
	}
	assert.Equal(t, minConns+1, idleConns, "expected the routed instance to be one with the fewest active connections")
}

func TestRoute_WeightedRoundRobinRespectsWeight(t *testing.T) {
	r := NewRegistry()
	r.SetPolicy("ai", PolicyWeightedRoundRobin)
	r.Register("ai", "heavy", "host", 9000)
	r.Register("ai", "light", "host", 9000)

	r.mu.RLock()
	heavy := r.instances["ai"]["heavy"]
	r.mu.RUnlock()
	heavy.mu.Lock()
	heavy.inst.Weight = 3
	heavy.mu.Unlock()

	counts := map[string]int{}
	for i := 0; i < 30; i++ {
		id, err := r.Route("ai")
		require.NoError(t, err)
		counts[id]++
		r.Release("ai", id, true)
	}
	assert.NotZero(t, counts["heavy"])
	assert.NotZero(t, counts["light"])
	assert.Greater(t, counts["heavy"], counts["light"], "expected the weight-3 instance to be routed to more often")
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	r := NewRegistry()
	r.Register("devices", "a", "host", 9000)

	for i := 0; i < failureThreshold+1; i++ {
		id, err := r.Route("devices")
		require.NoError(t, err)
		r.Release("devices", id, false)
	}

	_, err := r.Route("devices")
	assert.Error(t, err, "expected breaker to be open and reject routing")

	state, ok := r.BreakerState("devices", "a")
	require.True(t, ok)
	assert.Equal(t, "open", string(state.State))
}

func TestBreaker_HalfOpenRecoversOnSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register("devices", "a", "host", 9000)

	for i := 0; i < failureThreshold+1; i++ {
		id, _ := r.Route("devices")
		r.Release("devices", id, false)
	}

	r.mu.RLock()
	entry := r.instances["devices"]["a"]
	r.mu.RUnlock()
	entry.breaker.mu.Lock()
	entry.breaker.state.NextAttemptAt = time.Now().Add(-time.Second)
	entry.breaker.mu.Unlock()

	id, err := r.Route("devices")
	require.NoError(t, err, "expected half_open probe to be allowed")
	r.Release("devices", id, true)

	state, _ := r.BreakerState("devices", "a")
	assert.Equal(t, "closed", string(state.State))
}

func TestRegistry_UnregisterRemovesInstance(t *testing.T) {
	r := NewRegistry()
	r.Register("tts", "a", "host", 9000)
	r.Unregister("tts", "a")

	_, err := r.Route("tts")
	assert.Error(t, err)
}

func TestRegistry_UnhealthyInstanceExcludedFromRouting(t *testing.T) {
	r := NewRegistry()
	r.Register("tts", "a", "host", 9000)
	r.Register("tts", "b", "host", 9000)
	r.UpdateHealth("tts", "a", false, 0)

	for i := 0; i < 5; i++ {
		id, err := r.Route("tts")
		require.NoError(t, err)
		assert.Equal(t, "b", id, "expected only the healthy instance routed to")
		r.Release("tts", id, true)
	}
}
