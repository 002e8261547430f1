package bootconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsZeroValue(t *testing.T) {
	b, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, &Bootstrap{}, b)
}

func TestLoad_MissingFileReturnsZeroValue(t *testing.T) {
	b, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Bootstrap{}, b)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	content := `
broker: mqtt://broker.local:1883
mqtt_username: alicia
mqtt_password: secret
http_addr: 0.0.0.0:8080
metrics_addr: 0.0.0.0:9090
log_level: debug
log_json: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mqtt://broker.local:1883", b.Broker)
	assert.Equal(t, "alicia", b.MQTTUsername)
	assert.Equal(t, "debug", b.LogLevel)
	assert.True(t, b.LogJSON)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("broker: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
