// Package healthmonitor periodically probes each configured service and
// aggregates the results into an overall system status.
package healthmonitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aliciabus/alicia/pkg/health"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/metrics"
)

// Tag is the outcome of a single probe.
type Tag string

const (
	TagHealthy   Tag = "healthy"
	TagUnhealthy Tag = "unhealthy"
	TagTimeout   Tag = "timeout"
	TagError     Tag = "error"
)

// Aggregate is the system-wide derived status.
type Aggregate string

const (
	AggregateHealthy  Aggregate = "healthy"
	AggregateDegraded Aggregate = "degraded"
	AggregateCritical Aggregate = "critical"
)

// ProbeTimeout is the hard ceiling on a single health probe.
const ProbeTimeout = 10 * time.Second

// historyWindow is how long a service's probe samples are retained.
const historyWindow = 24 * time.Hour

// Sample is one probe outcome, kept for history queries.
type Sample struct {
	Tag       Tag
	Message   string
	At        time.Time
	Duration  time.Duration
}

type serviceEntry struct {
	checker health.Checker
	status  *health.Status
	config  health.Config

	mu      sync.Mutex
	history []Sample
}

// Monitor probes a fixed set of services on independent tickers and
// derives a single healthy/degraded/critical status from the aggregate.
type Monitor struct {
	mu       sync.RWMutex
	services map[string]*serviceEntry
}

// New creates an empty Monitor. Add services with Register before calling
// Run.
func New() *Monitor {
	return &Monitor{services: make(map[string]*serviceEntry)}
}

// Register adds a service to the probe set. checker is typically an
// *health.HTTPChecker or *health.TCPChecker pointed at the service's
// health endpoint.
func (m *Monitor) Register(name string, checker health.Checker, cfg health.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[name] = &serviceEntry{
		checker: checker,
		status:  health.NewStatus(),
		config:  cfg,
	}
}

// Deregister stops probing and forgets name.
func (m *Monitor) Deregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, name)
}

// Run probes every registered service on its own ticker until ctx is
// canceled. Each service's ticker runs independently so a slow probe on
// one service never delays another's.
func (m *Monitor) Run(ctx context.Context) {
	m.mu.RLock()
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			m.runOne(ctx, name)
		}(name)
	}
	wg.Wait()
}

func (m *Monitor) runOne(ctx context.Context, name string) {
	m.mu.RLock()
	entry, ok := m.services[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	interval := entry.config.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	if entry.config.StartPeriod > 0 {
		select {
		case <-time.After(entry.config.StartPeriod):
		case <-ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.probe(ctx, name, entry)
	for {
		select {
		case <-ticker.C:
			m.probe(ctx, name, entry)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context, name string, entry *serviceEntry) {
	timer := metrics.NewTimer()
	timeout := ProbeTimeout
	if t := entry.config.Timeout; t > 0 && t < timeout {
		timeout = t
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	result := entry.checker.Check(probeCtx)
	timedOut := probeCtx.Err() == context.DeadlineExceeded
	cancel()
	timer.ObserveDurationVec(metrics.ProbeDuration, name)

	entry.status.Update(result, entry.config)

	tag := classify(result, timedOut)
	entry.mu.Lock()
	entry.history = append(entry.history, Sample{
		Tag:      tag,
		Message:  result.Message,
		At:       result.CheckedAt,
		Duration: result.Duration,
	})
	entry.history = pruneHistory(entry.history)
	entry.mu.Unlock()

	if tag != TagHealthy {
		log.WithComponent("healthmonitor").Warn().
			Str("service", name).Str("tag", string(tag)).Str("message", result.Message).
			Msg("probe unhealthy")
	}
}

func classify(result health.Result, timedOut bool) Tag {
	switch {
	case result.Healthy:
		return TagHealthy
	case timedOut:
		return TagTimeout
	case strings.Contains(result.Message, "failed to create request"),
		strings.Contains(result.Message, "request failed"),
		strings.Contains(result.Message, "dial"):
		return TagError
	default:
		return TagUnhealthy
	}
}

func pruneHistory(samples []Sample) []Sample {
	cutoff := time.Now().Add(-historyWindow)
	i := 0
	for i < len(samples) && samples[i].At.Before(cutoff) {
		i++
	}
	return samples[i:]
}

// History returns name's retained samples (within the last 24h).
func (m *Monitor) History(name string) []Sample {
	m.mu.RLock()
	entry, ok := m.services[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	out := make([]Sample, len(entry.history))
	copy(out, entry.history)
	return out
}

// ServiceStatus reports whether name is currently considered healthy.
func (m *Monitor) ServiceStatus(name string) (healthy bool, ok bool) {
	m.mu.RLock()
	entry, ok := m.services[name]
	m.mu.RUnlock()
	if !ok {
		return false, false
	}
	return entry.status.Healthy, true
}

// Aggregate derives healthy/degraded/critical across every registered
// service: degraded if any service is unhealthy, critical if none are
// healthy.
func (m *Monitor) Aggregate() Aggregate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.services) == 0 {
		return AggregateHealthy
	}

	healthyCount := 0
	for _, entry := range m.services {
		if entry.status.Healthy {
			healthyCount++
		}
	}

	switch {
	case healthyCount == len(m.services):
		return AggregateHealthy
	case healthyCount == 0:
		return AggregateCritical
	default:
		return AggregateDegraded
	}
}
