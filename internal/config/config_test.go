package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, warnings, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if cfg.Stream.PollInterval != time.Second || cfg.Stream.PageSize != 200 {
		t.Errorf("expected defaults, got %+v", cfg.Stream)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://assess.example.com
  token: secret
stream:
  poll_interval: 2s
  page_size: 50
session_db: /tmp/test.db
`)

	cfg, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if cfg.API.BaseURL != "https://assess.example.com" || cfg.API.Token != "secret" {
		t.Errorf("unexpected api config: %+v", cfg.API)
	}
	if cfg.Stream.PollInterval != 2*time.Second || cfg.Stream.PageSize != 50 {
		t.Errorf("unexpected stream config: %+v", cfg.Stream)
	}
	if cfg.SessionDB != "/tmp/test.db" {
		t.Errorf("unexpected session db: %q", cfg.SessionDB)
	}
}

func TestLoadInvalidValuesFallBackWithWarnings(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: ftp://nope
stream:
  poll_interval: 5ms
  page_size: 100000
`)

	cfg, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", warnings)
	}
	if cfg.API.BaseURL != "http://localhost:8420" {
		t.Errorf("expected default base url, got %q", cfg.API.BaseURL)
	}
	if cfg.Stream.PollInterval != time.Second || cfg.Stream.PageSize != 200 {
		t.Errorf("expected default stream settings, got %+v", cfg.Stream)
	}
}

func TestLoadMalformedYAMLIsError(t *testing.T) {
	path := writeConfig(t, "api: [unclosed")
	if _, _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed yaml")
	}
}
