// Package config loads chainscope configuration from YAML. Malformed files
// are an error; out-of-range field values fall back to defaults with a
// warning — never silently accepted, never fatal.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// StreamConfig holds poll-loop tuning.
type StreamConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	PageSize     int           `yaml:"page_size"`
}

// Config is the full chainscope configuration.
type Config struct {
	API       APIConfig    `yaml:"api"`
	Stream    StreamConfig `yaml:"stream"`
	SessionDB string       `yaml:"session_db"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8420",
		},
		Stream: StreamConfig{
			PollInterval: time.Second,
			PageSize:     200,
		},
		SessionDB: defaultSessionDB(),
	}
}

func defaultSessionDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chainscope.db"
	}
	return home + "/.chainscope/sessions.db"
}

// Load reads a config file, merging it over defaults. A missing path returns
// defaults. Returns the config plus warnings for any field that fell back.
func Load(path string) (*Config, []string, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil, nil
		}
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	warnings := cfg.merge(&loaded)
	return cfg, warnings, nil
}

// merge overlays loaded values onto defaults, validating each field and
// keeping the default when a value is unusable.
func (c *Config) merge(loaded *Config) []string {
	var warnings []string

	if loaded.API.BaseURL != "" {
		if strings.HasPrefix(loaded.API.BaseURL, "http://") || strings.HasPrefix(loaded.API.BaseURL, "https://") {
			c.API.BaseURL = loaded.API.BaseURL
		} else {
			warnings = append(warnings, fmt.Sprintf("api.base_url %q is not an http(s) URL; using %s", loaded.API.BaseURL, c.API.BaseURL))
		}
	}
	c.API.Token = loaded.API.Token

	if loaded.Stream.PollInterval != 0 {
		if loaded.Stream.PollInterval >= 100*time.Millisecond {
			c.Stream.PollInterval = loaded.Stream.PollInterval
		} else {
			warnings = append(warnings, fmt.Sprintf("stream.poll_interval %v is below 100ms; using %v", loaded.Stream.PollInterval, c.Stream.PollInterval))
		}
	}

	if loaded.Stream.PageSize != 0 {
		if loaded.Stream.PageSize > 0 && loaded.Stream.PageSize <= 1000 {
			c.Stream.PageSize = loaded.Stream.PageSize
		} else {
			warnings = append(warnings, fmt.Sprintf("stream.page_size %d is out of range (1..1000); using %d", loaded.Stream.PageSize, c.Stream.PageSize))
		}
	}

	if loaded.SessionDB != "" {
		c.SessionDB = loaded.SessionDB
	}

	return warnings
}
