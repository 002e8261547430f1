// Package devicemanager maintains a uniform command surface over
// heterogeneous devices: an inventory kept in lockstep with a
// capability inverse index, a bounded priority command queue, and
// per-command correlation and timeouts.
package devicemanager

import (
	"sync"
	"time"

	"github.com/aliciabus/alicia/pkg/types"
)

// offlineAfter is how long a device may go without a status update
// before the liveness sweep marks it offline.
const offlineAfter = 5 * time.Minute

// Registry holds the device inventory and its capability inverse
// index, guarded by a single mutex so the two are always consistent:
// every (device, capability) pair appears in both or neither.
type Registry struct {
	mu           sync.RWMutex
	devices      map[string]*types.Device
	capabilities map[string]map[string]bool // capability -> set of device_id
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:      make(map[string]*types.Device),
		capabilities: make(map[string]map[string]bool),
	}
}

// Register adds or replaces a device and reindexes its capabilities.
func (r *Registry) Register(device *types.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.devices[device.DeviceID]; ok {
		r.deindex(existing)
	}
	now := time.Now()
	device.LastSeen = now
	if device.RegisteredAt.IsZero() {
		device.RegisteredAt = now
	}
	if device.Status == "" {
		device.Status = types.DeviceStatusRegistered
	}
	r.devices[device.DeviceID] = device
	r.index(device)
}

// Unregister removes a device and its capability index entries.
func (r *Registry) Unregister(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[deviceID]
	if !ok {
		return
	}
	r.deindex(device)
	delete(r.devices, deviceID)
}

func (r *Registry) index(device *types.Device) {
	for name := range device.Capabilities {
		set, ok := r.capabilities[name]
		if !ok {
			set = make(map[string]bool)
			r.capabilities[name] = set
		}
		set[device.DeviceID] = true
	}
}

func (r *Registry) deindex(device *types.Device) {
	for name := range device.Capabilities {
		if set, ok := r.capabilities[name]; ok {
			delete(set, device.DeviceID)
			if len(set) == 0 {
				delete(r.capabilities, name)
			}
		}
	}
}

// Touch refreshes a device's last-seen timestamp and optional status
// payload, as reported on its status topic.
func (r *Registry) Touch(deviceID string, status map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[deviceID]
	if !ok {
		return
	}
	device.LastSeen = time.Now()
	device.LastStatus = status
	if device.Status == types.DeviceStatusOffline {
		device.Status = types.DeviceStatusOnline
	}
}

// ListDevices returns a snapshot of every registered device.
func (r *Registry) ListDevices() []types.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	return out
}

// GetDevice returns one device by id.
func (r *Registry) GetDevice(deviceID string) (types.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[deviceID]
	if !ok {
		return types.Device{}, false
	}
	return *d, true
}

// ListCapabilities returns every known capability name.
func (r *Registry) ListCapabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		out = append(out, name)
	}
	return out
}

// Members returns the current device set for a capability, snapshotted
// at call time (the contract for capability-routed commands: the
// member set is resolved once, at enqueue time).
func (r *Registry) Members(capability string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.capabilities[capability]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// SweepOffline marks any device unseen for longer than offlineAfter as
// offline.
func (r *Registry) SweepOffline() {
	cutoff := time.Now().Add(-offlineAfter)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.Status != types.DeviceStatusOffline && d.LastSeen.Before(cutoff) {
			d.Status = types.DeviceStatusOffline
		}
	}
}
