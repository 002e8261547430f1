// Package loadbalancer picks a routable instance for a logical service
// and protects unhealthy instances with a per-instance circuit
// breaker. The instance inventory is derived entirely from discovery
// and health bus traffic — this package never imports pkg/discovery
// directly, to keep the two sides of the bus decoupled.
package loadbalancer

import (
	"sync"

	"github.com/aliciabus/alicia/pkg/types"
)

// Policy is a per-service routing algorithm selection.
type Policy string

const (
	PolicyRoundRobin         Policy = "round_robin"
	PolicyLeastConnections   Policy = "least_connections"
	PolicyWeightedRoundRobin Policy = "weighted_round_robin"
	PolicyRandom             Policy = "random"
)

// DefaultPolicy is used for a service with no explicit algorithm set.
const DefaultPolicy = PolicyRoundRobin

type instanceEntry struct {
	mu      sync.Mutex
	inst    types.ServiceInstance
	breaker *breaker
}

// Registry is the load balancer's live view of every service's
// instances, kept current by discovery register/unregister and health
// update bus traffic.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]map[string]*instanceEntry // service -> instance_id -> entry
	policies  map[string]Policy
	cursors   map[string]*uint64 // round-robin / weighted cursor per service
}

// NewRegistry creates an empty instance registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[string]map[string]*instanceEntry),
		policies:  make(map[string]Policy),
		cursors:   make(map[string]*uint64),
	}
}

// Register adds or replaces an instance for service, defaulting
// health_status to healthy and weight to 1 per the discovery contract.
func (r *Registry) Register(service, instanceID, host string, port int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.instances[service] == nil {
		r.instances[service] = make(map[string]*instanceEntry)
		var cursor uint64
		r.cursors[service] = &cursor
	}

	if existing, ok := r.instances[service][instanceID]; ok {
		existing.mu.Lock()
		existing.inst.Host = host
		existing.inst.Port = port
		existing.mu.Unlock()
		return
	}

	r.instances[service][instanceID] = &instanceEntry{
		inst: types.ServiceInstance{
			InstanceID:   instanceID,
			ServiceName:  service,
			Host:         host,
			Port:         port,
			HealthStatus: types.HealthStatusHealthy,
			Weight:       1,
		},
		breaker: newBreaker(),
	}
}

// Unregister removes an instance from a service's routing set.
func (r *Registry) Unregister(service, instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.instances[service]; ok {
		delete(set, instanceID)
	}
}

// UpdateHealth applies a health observation to an instance, as
// reported on the per-service wildcard health topic.
func (r *Registry) UpdateHealth(service, instanceID string, healthy bool, responseTimeMs float64) {
	r.mu.RLock()
	entry, ok := r.instances[service][instanceID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if healthy {
		entry.inst.HealthStatus = types.HealthStatusHealthy
	} else {
		entry.inst.HealthStatus = types.HealthStatusUnhealthy
	}
	entry.inst.ResponseTimeMs = responseTimeMs
}

// SetPolicy selects the routing algorithm used for service.
func (r *Registry) SetPolicy(service string, policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[service] = policy
}

func (r *Registry) policyFor(service string) Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.policies[service]; ok {
		return p
	}
	return DefaultPolicy
}

// Instances returns a snapshot of every instance registered for
// service.
func (r *Registry) Instances(service string) []types.ServiceInstance {
	r.mu.RLock()
	set := r.instances[service]
	r.mu.RUnlock()

	out := make([]types.ServiceInstance, 0, len(set))
	for _, entry := range set {
		entry.mu.Lock()
		out = append(out, entry.inst)
		entry.mu.Unlock()
	}
	return out
}

// Services lists every service with at least one registered instance.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.instances))
	for name := range r.instances {
		out = append(out, name)
	}
	return out
}
