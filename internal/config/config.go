package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the global ~/.sakhi/config.toml, with SAKHI_* environment
// variables taking precedence over file values.
type Config struct {
	DefaultProfile string `toml:"default_profile" envconfig:"PROFILE"`

	BackendURL  string `toml:"backend_url" envconfig:"BACKEND_URL"`
	RealtimeURL string `toml:"realtime_url" envconfig:"REALTIME_URL"`

	ProbeURL      string        `toml:"probe_url" envconfig:"PROBE_URL"`
	ProbeInterval time.Duration `toml:"probe_interval" envconfig:"PROBE_INTERVAL"`

	ReconnectAttempts int           `toml:"reconnect_attempts" envconfig:"RECONNECT_ATTEMPTS"`
	ReconnectDelay    time.Duration `toml:"reconnect_delay" envconfig:"RECONNECT_DELAY"`

	DrainInterval time.Duration `toml:"drain_interval" envconfig:"DRAIN_INTERVAL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BackendURL:        "http://localhost:8000",
		RealtimeURL:       "ws://localhost:8000/ws/chat",
		ProbeURL:          "http://localhost:8000/health",
		ProbeInterval:     15 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
		DrainInterval:     2 * time.Second,
	}
}

// Load reads config from the given path, layering file values over defaults
// and environment overrides over both. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err := envconfig.Process("sakhi", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
