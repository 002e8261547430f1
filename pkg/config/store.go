// Package config is the single source of truth for per-environment and
// per-service configuration: it deep-merges global, environment, and
// service overlays, validates against an optional schema, persists to
// flat JSON files, and pushes updates to the bus as they land.
package config

import (
	"sync"
	"time"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/types"
)

// historyCapacity is the number of in-memory history entries retained
// per service (oldest purged past historyMaxAge regardless of count).
const historyCapacity = 100

// historyMaxAge is how long a history entry is kept before a sweep
// purges it, even if the capacity hasn't been reached.
const historyMaxAge = 30 * 24 * time.Hour

// Store is the configuration service's in-memory state, mirrored to
// disk by Dir.
type Store struct {
	mu           sync.RWMutex
	global       map[string]any
	services     map[string]map[string]any
	environments map[string]map[string]any
	schemas      map[string]*Schema
	history      map[string][]types.ConfigHistoryEntry // "" key is global history

	dir *Dir
}

// NewStore creates a Store backed by dir. Call Load to populate it from
// existing files on disk.
func NewStore(dir *Dir) *Store {
	return &Store{
		global:       make(map[string]any),
		services:     make(map[string]map[string]any),
		environments: make(map[string]map[string]any),
		schemas:      make(map[string]*Schema),
		history:      make(map[string][]types.ConfigHistoryEntry),
		dir:          dir,
	}
}

// Load populates the store from its backing directory, if any.
func (s *Store) Load() error {
	if s.dir == nil {
		return nil
	}
	return s.dir.Load(s)
}

// currentEnvironment returns the environment overlay name selected by
// the global "environment" key, defaulting to "production".
func (s *Store) currentEnvironment() string {
	if env, ok := s.global["environment"].(string); ok && env != "" {
		return env
	}
	return "production"
}

// Get returns the merged {global, environment-overlay, service-overlay}
// view for service. An empty service name returns just the
// global+environment merge.
func (s *Store) Get(service string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := deepCopy(s.global)
	if env, ok := s.environments[s.currentEnvironment()]; ok {
		merged = mergeMaps(merged, env)
	}
	if service != "" {
		if svc, ok := s.services[service]; ok {
			merged = mergeMaps(merged, svc)
		}
	}
	return merged
}

// ListServices returns every service with a recorded overlay.
func (s *Store) ListServices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.services))
	for name := range s.services {
		out = append(out, name)
	}
	return out
}

// RegisterSchema attaches a validation schema to service. A nil schema
// removes validation for that service.
func (s *Store) RegisterSchema(service string, schema *Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if schema == nil {
		delete(s.schemas, service)
		return
	}
	s.schemas[service] = schema
}

// UpdateService validates patch against service's schema (if any),
// deep-merges it into the existing overlay, persists, and records
// history. No partial update is committed: validation happens before
// any mutation.
func (s *Store) UpdateService(service string, patch map[string]any) error {
	if service == "" {
		return errs.New(errs.KindValidation, "service name required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if schema, ok := s.schemas[service]; ok {
		if err := schema.Validate(patch); err != nil {
			return err
		}
	}

	oldValue := deepCopy(s.services[service])
	merged := mergeMaps(deepCopy(s.services[service]), patch)
	s.services[service] = merged

	s.recordHistory(service, "update_service", oldValue, merged)

	if s.dir != nil {
		if err := s.dir.WriteService(service, merged); err != nil {
			return err
		}
	}
	return nil
}

// UpdateGlobal deep-merges patch into the global configuration,
// persists, and records history.
func (s *Store) UpdateGlobal(patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldValue := deepCopy(s.global)
	s.global = mergeMaps(deepCopy(s.global), patch)

	s.recordHistory("", "update_global", oldValue, s.global)

	if s.dir != nil {
		if err := s.dir.WriteGlobal(s.global); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) recordHistory(service, action string, oldValue, newValue map[string]any) {
	entry := types.ConfigHistoryEntry{
		Timestamp: time.Now(),
		Service:   service,
		Action:    action,
		Old:       oldValue,
		New:       newValue,
	}
	entries := append(s.history[service], entry)
	if len(entries) > historyCapacity {
		entries = entries[len(entries)-historyCapacity:]
	}
	s.history[service] = entries
}

// History returns service's recorded changes, oldest first. "" returns
// global history.
func (s *Store) History(service string) []types.ConfigHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[service]
	out := make([]types.ConfigHistoryEntry, len(entries))
	copy(out, entries)
	return out
}

// Backup snapshots the current global/service/environment state to a
// timestamped file under backups/ and returns its path.
func (s *Store) Backup() (string, error) {
	if s.dir == nil {
		return "", errs.New(errs.KindInternal, "config store has no backing directory")
	}

	s.mu.RLock()
	snapshot := map[string]any{
		"global":       deepCopy(s.global),
		"services":     s.services,
		"environments": s.environments,
	}
	s.mu.RUnlock()

	return s.dir.Backup(snapshot, time.Now())
}

// PurgeOldHistory drops history entries older than historyMaxAge across
// every service, meant to be called periodically by a sweep goroutine.
func (s *Store) PurgeOldHistory() {
	cutoff := time.Now().Add(-historyMaxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	for service, entries := range s.history {
		i := 0
		for i < len(entries) && entries[i].Timestamp.Before(cutoff) {
			i++
		}
		s.history[service] = entries[i:]
	}
}

// deepCopy clones a JSON-shaped map so callers can't mutate stored
// state through a returned reference.
func deepCopy(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopy(nested)
		} else {
			out[k] = v
		}
	}
	return out
}

// mergeMaps deep-merges src into dst, recursing into nested maps and
// overwriting non-map values. dst is mutated and returned.
func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				dst[k] = mergeMaps(dstMap, srcMap)
				continue
			}
			dst[k] = mergeMaps(make(map[string]any), srcMap)
			continue
		}
		dst[k] = v
	}
	return dst
}
