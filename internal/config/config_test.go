package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected default address %s", cfg.Server.Address)
	}
	if cfg.Model.Name != "flight-delay-model" {
		t.Fatalf("unexpected default model name %s", cfg.Model.Name)
	}
	if cfg.Registry.Timeout != 5*time.Second {
		t.Fatalf("unexpected registry timeout %s", cfg.Registry.Timeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  address: ":9090"
model:
  name: "delay-v2"
registry:
  baseURL: "http://registry:8000"
logging:
  level: debug
  json: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("address not overridden: %s", cfg.Server.Address)
	}
	if cfg.Model.Name != "delay-v2" {
		t.Fatalf("model name not overridden: %s", cfg.Model.Name)
	}
	if cfg.Registry.BaseURL != "http://registry:8000" {
		t.Fatalf("registry base URL not overridden: %s", cfg.Registry.BaseURL)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("logging config not applied: %+v", cfg.Logging)
	}
	// Untouched values keep their defaults.
	if cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("metrics address default lost: %s", cfg.Server.MetricsAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DELAY_ENGINE_SERVER_ADDRESS", ":7070")
	t.Setenv("DELAY_ENGINE_MODEL_NAME", "delay-canary")
	t.Setenv("DELAY_ENGINE_REGISTRY_URL", "http://registry:9999")
	t.Setenv("DELAY_ENGINE_CACHE_ENABLED", "true")
	t.Setenv("DELAY_ENGINE_CACHE_ADDR", "localhost:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("env address override lost: %s", cfg.Server.Address)
	}
	if cfg.Model.Name != "delay-canary" {
		t.Fatalf("env model name override lost: %s", cfg.Model.Name)
	}
	if cfg.Registry.BaseURL != "http://registry:9999" {
		t.Fatalf("env registry override lost: %s", cfg.Registry.BaseURL)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "localhost:6379" {
		t.Fatalf("env cache overrides lost: %+v", cfg.Cache)
	}
}
