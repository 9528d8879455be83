// Package config loads tooling configuration for the devtools server and
// the strata CLI. Values come from strata.json, searched from the working
// directory upward, with STRATA_* environment variables overriding the
// file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/strata-dev/strata/internal/errors"
)

// FileName is the configuration file name.
const FileName = "strata.json"

// Config is the tooling configuration.
type Config struct {
	// Addr is the devtools listen address.
	Addr string `json:"addr,omitempty" env:"STRATA_ADDR"`

	// DevtoolsURL is the endpoint the CLI connects to.
	DevtoolsURL string `json:"devtoolsUrl,omitempty" env:"STRATA_DEVTOOLS_URL"`

	// MetricsNamespace is the Prometheus namespace.
	MetricsNamespace string `json:"metricsNamespace,omitempty" env:"STRATA_METRICS_NAMESPACE"`

	// PingSeconds is the websocket keepalive interval in seconds.
	PingSeconds int `json:"pingSeconds,omitempty" env:"STRATA_PING_SECONDS"`

	// SendBuffer is the per-client outbound frame buffer.
	SendBuffer int `json:"sendBuffer,omitempty" env:"STRATA_SEND_BUFFER"`

	// PersistDir is the file persistence directory, empty to disable.
	PersistDir string `json:"persistDir,omitempty" env:"STRATA_PERSIST_DIR"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Addr:             "localhost:6360",
		DevtoolsURL:      "ws://localhost:6360/ws",
		MetricsNamespace: "strata",
		PingSeconds:      30,
		SendBuffer:       64,
	}
}

// Load resolves the configuration: defaults, then strata.json if found,
// then environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path, ok := find(); ok {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.New("E101").Wrap(err)
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.New("E101").Wrap(err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.New("E103").Wrap(err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.SendBuffer < 0 {
		return errors.New("E102").WithSuggestion("sendBuffer must be >= 0")
	}
	if c.PingSeconds < 0 {
		return errors.New("E102").WithSuggestion("pingSeconds must be >= 0")
	}
	return nil
}

// find walks from the working directory toward the root looking for
// strata.json.
func find() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
