package devicemanager

import (
	"context"
	"time"
)

// SweepLoop periodically marks devices offline once they've gone
// quiet past offlineAfter, mirroring the teacher's periodic-sweep
// goroutine shape for liveness checking.
func SweepLoop(ctx context.Context, registry *Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.SweepOffline()
		}
	}
}
