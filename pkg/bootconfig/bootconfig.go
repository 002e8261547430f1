// Package bootconfig loads the local, file-based settings every Alicia
// service binary needs before it can reach the broker or the propagated
// Configuration Service: the bus connection and listen addresses.
package bootconfig

import (
	"os"

	"github.com/aliciabus/alicia/pkg/errs"
	"gopkg.in/yaml.v3"
)

// Bootstrap is one service's local startup configuration.
type Bootstrap struct {
	Broker       string `yaml:"broker"`
	MQTTUsername string `yaml:"mqtt_username"`
	MQTTPassword string `yaml:"mqtt_password"`
	HTTPAddr     string `yaml:"http_addr"`
	MetricsAddr  string `yaml:"metrics_addr"`
	LogLevel     string `yaml:"log_level"`
	LogJSON      bool   `yaml:"log_json"`
}

// Load reads and parses a YAML bootstrap file. An empty path or a
// missing file is not an error — callers fall back to their own
// defaults (typically command-line flags).
func Load(path string) (*Bootstrap, error) {
	if path == "" {
		return &Bootstrap{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Bootstrap{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "read bootstrap config", err)
	}
	var b Bootstrap
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, errs.Wrap(errs.KindValidation, "parse bootstrap config", err)
	}
	return &b, nil
}
