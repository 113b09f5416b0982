// Package config holds bob's application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for bob
type Config struct {
	Watch   WatchConfig   `yaml:"watch"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Log     LogConfig     `yaml:"log"`
}

// WatchConfig controls filesystem watching and reconciliation
type WatchConfig struct {
	Debounce       time.Duration `yaml:"debounce"`        // Window for coalescing manifest change events
	RescanInterval time.Duration `yaml:"rescan_interval"` // How often the watched path set is re-checked
}

// RuntimeConfig controls acquisition of the script runtime binary
type RuntimeConfig struct {
	DownloadURL string `yaml:"download_url"` // Override for the release archive URL
	CacheDir    string `yaml:"cache_dir"`    // Override for the runtime cache directory
}

// LogConfig controls application logging
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Override for the log file path
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Watch: WatchConfig{
			Debounce:       500 * time.Millisecond,
			RescanInterval: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file, overlaying defaults.
// A missing file yields the defaults without error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Watch.RescanInterval < 0 {
		return fmt.Errorf("watch.rescan_interval must not be negative")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}
