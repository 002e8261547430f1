package bus

import (
	"sync"
	"time"
)

// dedupCache remembers recently seen message ids so duplicate deliveries
// within their TTL are treated as at-most-once (spec §3 invariant).
type dedupCache struct {
	mu      sync.Mutex
	seen    map[string]time.Time // message_id -> expiry
	stopCh  chan struct{}
	stopped bool
}

func newDedupCache() *dedupCache {
	d := &dedupCache{
		seen:   make(map[string]time.Time),
		stopCh: make(chan struct{}),
	}
	go d.sweepLoop()
	return d
}

// seenRecently reports whether id was already recorded and still live,
// recording it (with the given TTL) if not.
func (d *dedupCache) seenRecently(id string, ttl time.Duration) bool {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if expiry, ok := d.seen[id]; ok && now.Before(expiry) {
		return true
	}
	d.seen[id] = now.Add(ttl)
	return false
}

func (d *dedupCache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.sweep()
		case <-d.stopCh:
			return
		}
	}
}

func (d *dedupCache) sweep() {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, expiry := range d.seen {
		if now.After(expiry) {
			delete(d.seen, id)
		}
	}
}

func (d *dedupCache) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()
	close(d.stopCh)
}
