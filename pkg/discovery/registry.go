// Package discovery is the system's service directory: it subscribes to
// the register/unregister topics and answers read queries, emitting no
// bus traffic of its own.
package discovery

import (
	"sync"
	"time"

	"github.com/aliciabus/alicia/pkg/types"
)

// ChangeKind identifies what happened to a registry entry.
type ChangeKind string

const (
	ChangeRegistered   ChangeKind = "registered"
	ChangeUnregistered ChangeKind = "unregistered"
	ChangeExpired      ChangeKind = "expired"
)

// Change is a registry mutation, broadcast to local subscribers obtained
// from Registry.Subscribe.
type Change struct {
	Kind      ChangeKind
	Service   *types.ServiceDescriptor
	Timestamp time.Time
}

// Subscriber receives registry change notifications.
type Subscriber chan *Change

// Registry is the in-memory service directory, kept current by
// Register/Unregister, which the bus handlers installed by Wire call,
// and swept periodically for services that stopped
// heartbeating without a clean unregister.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*types.ServiceDescriptor
	staleAge time.Duration

	subMu sync.RWMutex
	subs  map[Subscriber]bool
}

// NewRegistry creates an empty registry. staleAge is how long a service
// may go without a heartbeat before Sweep marks it offline.
func NewRegistry(staleAge time.Duration) *Registry {
	if staleAge <= 0 {
		staleAge = 2 * time.Minute
	}
	return &Registry{
		services: make(map[string]*types.ServiceDescriptor),
		staleAge: staleAge,
		subs:     make(map[Subscriber]bool),
	}
}

// Subscribe returns a channel of future registry changes. Callers MUST
// drain it; a full buffer silently drops the notification, not the
// underlying registry mutation.
func (r *Registry) Subscribe() Subscriber {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	sub := make(Subscriber, 32)
	r.subs[sub] = true
	return sub
}

// Unsubscribe stops and closes sub.
func (r *Registry) Unsubscribe(sub Subscriber) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if r.subs[sub] {
		delete(r.subs, sub)
		close(sub)
	}
}

func (r *Registry) notify(change *Change) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for sub := range r.subs {
		select {
		case sub <- change:
		default:
		}
	}
}

// Register records or refreshes a service announcement.
func (r *Registry) Register(desc *types.ServiceDescriptor) {
	if desc.LastSeen.IsZero() {
		desc.LastSeen = time.Now()
	}
	desc.Status = types.ServiceStatusOnline

	r.mu.Lock()
	r.services[desc.Name] = desc
	r.mu.Unlock()

	r.notify(&Change{Kind: ChangeRegistered, Service: desc, Timestamp: time.Now()})
}

// Unregister removes a service from the directory.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	desc, ok := r.services[name]
	if ok {
		delete(r.services, name)
	}
	r.mu.Unlock()

	if ok {
		desc.Status = types.ServiceStatusOffline
		r.notify(&Change{Kind: ChangeUnregistered, Service: desc, Timestamp: time.Now()})
	}
}

// Touch refreshes a service's last-seen time without altering anything
// else, used when a heartbeat arrives for an already-registered service.
func (r *Registry) Touch(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if desc, ok := r.services[name]; ok {
		desc.LastSeen = time.Now()
		desc.Status = types.ServiceStatusOnline
	}
}

// Get returns a copy of the named service's descriptor, or false if not
// registered.
func (r *Registry) Get(name string) (types.ServiceDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.services[name]
	if !ok {
		return types.ServiceDescriptor{}, false
	}
	return *desc, true
}

// List returns a snapshot of every registered service.
func (r *Registry) List() []types.ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ServiceDescriptor, 0, len(r.services))
	for _, desc := range r.services {
		out = append(out, *desc)
	}
	return out
}

// IsOnline reports whether name is registered and not past its stale age.
func (r *Registry) IsOnline(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.services[name]
	if !ok {
		return false
	}
	return time.Since(desc.LastSeen) < r.staleAge
}

// Sweep marks services that have gone stale (no heartbeat within
// staleAge, no clean unregister) as offline and notifies subscribers.
// It is meant to be called on a ticker by the owning service.
func (r *Registry) Sweep() {
	now := time.Now()

	r.mu.Lock()
	var expired []*types.ServiceDescriptor
	for name, desc := range r.services {
		if desc.Status != types.ServiceStatusOffline && now.Sub(desc.LastSeen) >= r.staleAge {
			desc.Status = types.ServiceStatusOffline
			expired = append(expired, desc)
			_ = name
		}
	}
	r.mu.Unlock()

	for _, desc := range expired {
		r.notify(&Change{Kind: ChangeExpired, Service: desc, Timestamp: now})
	}
}
