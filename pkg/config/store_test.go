package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)
	return NewStore(dir)
}

func TestStore_DeepMergeNestedMaps(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpdateGlobal(map[string]any{
		"mqtt": map[string]any{"host": "localhost", "port": 1883},
	}))
	require.NoError(t, s.UpdateGlobal(map[string]any{
		"mqtt": map[string]any{"port": 8883},
	}))

	cfg := s.Get("")
	mqtt := cfg["mqtt"].(map[string]any)
	assert.Equal(t, "localhost", mqtt["host"], "host should survive the merge")
	assert.Equal(t, 8883, mqtt["port"], "port should be overwritten")
}

func TestStore_ServiceOverlayOverridesGlobal(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpdateGlobal(map[string]any{"command_timeout": 30}))
	require.NoError(t, s.UpdateService("device-manager", map[string]any{"command_timeout": 45}))

	cfg := s.Get("device-manager")
	assert.Equal(t, 45, cfg["command_timeout"], "service overlay should win")

	other := s.Get("other-service")
	assert.Equal(t, 30, other["command_timeout"], "unrelated service should see the global value")
}

func TestStore_ValidationRejectsBadType(t *testing.T) {
	s := newTestStore(t)
	s.RegisterSchema("tts", &Schema{
		Fields: map[string]Field{
			"max_text_length": {Type: FieldInt, Required: true},
		},
	})

	err := s.UpdateService("tts", map[string]any{"max_text_length": "not-a-number"})
	require.Error(t, err)

	cfg := s.Get("tts")
	_, present := cfg["max_text_length"]
	assert.False(t, present, "rejected patch should not be committed")
}

func TestStore_ValidationRequiresField(t *testing.T) {
	s := newTestStore(t)
	s.RegisterSchema("tts", &Schema{
		Fields: map[string]Field{
			"engine": {Type: FieldString, Required: true},
		},
	})

	err := s.UpdateService("tts", map[string]any{"other": "value"})
	assert.Error(t, err, "missing required field should fail validation")
}

func TestStore_HistoryRecordsUpdates(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpdateService("tts", map[string]any{"engine": "piper"}))
	require.NoError(t, s.UpdateService("tts", map[string]any{"engine": "azure"}))

	history := s.History("tts")
	require.Len(t, history, 2)
	assert.Equal(t, "azure", history[1].New["engine"])
}

func TestStore_PersistsAndReloads(t *testing.T) {
	root := t.TempDir()
	dir, err := NewDir(root)
	require.NoError(t, err)
	s := NewStore(dir)

	require.NoError(t, s.UpdateGlobal(map[string]any{"environment": "staging"}))
	require.NoError(t, s.UpdateService("discovery", map[string]any{"status_update_interval": 60}))

	reloadDir, err := NewDir(root)
	require.NoError(t, err)
	reloaded := NewStore(reloadDir)
	require.NoError(t, reloaded.Load())

	cfg := reloaded.Get("discovery")
	assert.Equal(t, float64(60), cfg["status_update_interval"])
}

func TestStore_BackupWritesTimestampedFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpdateGlobal(map[string]any{"environment": "production"}))

	path, err := s.Backup()
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))
}

func TestStore_PurgeOldHistory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpdateService("tts", map[string]any{"engine": "piper"}))

	s.mu.Lock()
	s.history["tts"][0].Timestamp = time.Now().Add(-60 * 24 * time.Hour)
	s.mu.Unlock()

	s.PurgeOldHistory()

	assert.Empty(t, s.History("tts"))
}
