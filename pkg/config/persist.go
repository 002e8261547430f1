package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/aliciabus/alicia/pkg/errs"
)

// Dir is the on-disk JSON layout for the configuration service:
//
//	<root>/global.json
//	<root>/services/<name>.json
//	<root>/environments/<name>.json
//	<root>/schemas/<name>.json
//	<root>/backups/<timestamp>.json
type Dir struct {
	root string
}

// NewDir creates a Dir rooted at root, creating its subdirectories if
// they don't already exist.
func NewDir(root string) (*Dir, error) {
	d := &Dir{root: root}
	for _, sub := range []string{"services", "environments", "schemas", "backups"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "create config directory", err)
		}
	}
	return d, nil
}

// writeAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partial write.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Wrap(errs.KindInternal, "write temp config file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Wrap(errs.KindInternal, "rename config file", err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindInternal, "marshal config", err)
	}
	return writeAtomic(path, data)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.KindInternal, "read config file", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errs.Wrap(errs.KindInternal, "unmarshal config file", err)
	}
	return true, nil
}

// WriteGlobal persists the global configuration.
func (d *Dir) WriteGlobal(global map[string]any) error {
	return writeJSONAtomic(filepath.Join(d.root, "global.json"), global)
}

// WriteService persists one service's overlay.
func (d *Dir) WriteService(service string, cfg map[string]any) error {
	return writeJSONAtomic(filepath.Join(d.root, "services", service+".json"), cfg)
}

// WriteEnvironment persists one environment overlay.
func (d *Dir) WriteEnvironment(env string, cfg map[string]any) error {
	return writeJSONAtomic(filepath.Join(d.root, "environments", env+".json"), cfg)
}

// WriteSchema persists one service's validation schema.
func (d *Dir) WriteSchema(service string, schema *Schema) error {
	return writeJSONAtomic(filepath.Join(d.root, "schemas", service+".json"), schema)
}

// Backup snapshots the current store state to a timestamped file under
// backups/ and returns its path.
func (d *Dir) Backup(snapshot map[string]any, now time.Time) (string, error) {
	name := now.UTC().Format("20060102T150405Z") + ".json"
	path := filepath.Join(d.root, "backups", name)
	if err := writeJSONAtomic(path, snapshot); err != nil {
		return "", err
	}
	return path, nil
}

// Load populates store's global, service, and environment configuration
// from whatever files already exist under root. Files under schemas/ and
// backups/ are not read.
func (d *Dir) Load(store *Store) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	var global map[string]any
	if found, err := readJSON(filepath.Join(d.root, "global.json"), &global); err != nil {
		return err
	} else if found {
		store.global = global
	}

	if err := loadDir(filepath.Join(d.root, "services"), store.services); err != nil {
		return err
	}
	if err := loadDir(filepath.Join(d.root, "environments"), store.environments); err != nil {
		return err
	}
	return nil
}

func loadDir(dir string, into map[string]map[string]any) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.KindInternal, "read config directory", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := entry.Name()[:len(entry.Name())-len(".json")]
		var cfg map[string]any
		if _, err := readJSON(filepath.Join(dir, entry.Name()), &cfg); err != nil {
			return err
		}
		into[name] = cfg
	}
	return nil
}
