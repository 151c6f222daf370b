package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	if config.Sweeper.Interval != 5*time.Second {
		t.Errorf("expected 5s sweep interval, got %s", config.Sweeper.Interval)
	}
	if config.HTTP.Host != "127.0.0.1" || config.HTTP.Port != 8787 {
		t.Errorf("expected loopback defaults, got %s:%d", config.HTTP.Host, config.HTTP.Port)
	}
	if config.Socket.Path == "" {
		t.Error("default socket path should not be empty")
	}
}

func TestConfig_ValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil socket", func(c *Config) { c.Socket = nil }},
		{"empty socket path", func(c *Config) { c.Socket.Path = "" }},
		{"nil sweeper", func(c *Config) { c.Sweeper = nil }},
		{"zero sweep interval", func(c *Config) { c.Sweeper.Interval = 0 }},
		{"nil http", func(c *Config) { c.HTTP = nil }},
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"zero read timeout", func(c *Config) { c.HTTP.ReadTimeout = 0 }},
		{"zero write timeout", func(c *Config) { c.HTTP.WriteTimeout = 0 }},
		{"nil database", func(c *Config) { c.Database = nil }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation to fail")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ASKRELAY_SOCKET_PATH", "/tmp/custom.sock")
	t.Setenv("ASKRELAY_SWEEP_INTERVAL", "10s")
	t.Setenv("ASKRELAY_HTTP_HOST", "0.0.0.0")
	t.Setenv("ASKRELAY_HTTP_PORT", "9000")
	t.Setenv("ASKRELAY_DATABASE_PATH", "/tmp/custom.db")

	config := LoadFromEnv()

	if config.Socket.Path != "/tmp/custom.sock" {
		t.Errorf("socket path override not applied: %s", config.Socket.Path)
	}
	if config.Sweeper.Interval != 10*time.Second {
		t.Errorf("sweep interval override not applied: %s", config.Sweeper.Interval)
	}
	if config.HTTP.Host != "0.0.0.0" || config.HTTP.Port != 9000 {
		t.Errorf("HTTP overrides not applied: %s:%d", config.HTTP.Host, config.HTTP.Port)
	}
	if config.Database.Path != "/tmp/custom.db" {
		t.Errorf("database path override not applied: %s", config.Database.Path)
	}
}

func TestLoadFromEnv_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("ASKRELAY_SWEEP_INTERVAL", "not-a-duration")
	t.Setenv("ASKRELAY_HTTP_PORT", "not-a-number")

	config := LoadFromEnv()

	if config.Sweeper.Interval != 5*time.Second {
		t.Errorf("unparseable interval should keep the default, got %s", config.Sweeper.Interval)
	}
	if config.HTTP.Port != 8787 {
		t.Errorf("unparseable port should keep the default, got %d", config.HTTP.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"socket": {"path": "/tmp/file.sock"},
		"sweeper": {"interval": "2s"},
		"http": {"port": 9100, "read_timeout": "15s"},
		"database": {"path": "/tmp/file.db"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("failed to load config file: %v", err)
	}

	if config.Socket.Path != "/tmp/file.sock" {
		t.Errorf("socket path not loaded: %s", config.Socket.Path)
	}
	if config.Sweeper.Interval != 2*time.Second {
		t.Errorf("sweep interval not loaded: %s", config.Sweeper.Interval)
	}
	if config.HTTP.Port != 9100 {
		t.Errorf("HTTP port not loaded: %d", config.HTTP.Port)
	}
	if config.HTTP.ReadTimeout != 15*time.Second {
		t.Errorf("read timeout not loaded: %s", config.HTTP.ReadTimeout)
	}
	// Unset fields keep defaults
	if config.HTTP.Host != "127.0.0.1" {
		t.Errorf("unset host should keep the default, got %s", config.HTTP.Host)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestLoadConfigWithPrecedence(t *testing.T) {
	t.Setenv("ASKRELAY_HTTP_PORT", "9000")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"http": {"port": 9500}}`), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	// File wins over environment
	config := LoadConfigWithPrecedence(path)
	if config.HTTP.Port != 9500 {
		t.Errorf("file should override environment, got port %d", config.HTTP.Port)
	}

	// Missing file falls back to environment
	config = LoadConfigWithPrecedence(filepath.Join(t.TempDir(), "missing.json"))
	if config.HTTP.Port != 9000 {
		t.Errorf("environment should apply when the file is absent, got port %d", config.HTTP.Port)
	}

	// No file at all still yields a valid config
	config = LoadConfigWithPrecedence("")
	if err := config.Validate(); err != nil {
		t.Errorf("precedence result should validate: %v", err)
	}
}
