package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every override so tests see only the YAML file.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"UPSTREAM_PROVIDER", "UPSTREAM_BASE_URL", "POLYGON_API_KEY", "HTTP_PORT",
		"DATA_DIR", "SQLITE_PATH", "LOG_LEVEL", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickbars.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  host: "0.0.0.0"
  port: 9000
  grpc_port: 9090
upstream:
  provider: "polygon"
  base_url: "http://upstream.local"
  api_key: "yaml-key"
  page_limit: 1000
  rate_limit_per_min: 5
  timeout: 45s
alpaca:
  api_key: "ak"
  api_secret: "as"
  feed: "iex"
storage:
  data_dir: "/tmp/tickbars"
  sqlite_path: "/tmp/tickbars/journal.db"
logging:
  level: "debug"
  format: "text"
  file: "/tmp/tickbars/tickbars.log"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:9000" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), "0.0.0.0:9000")
	}
	if cfg.Server.GRPCAddr() != "0.0.0.0:9090" {
		t.Errorf("Server.GRPCAddr() = %q, want %q", cfg.Server.GRPCAddr(), "0.0.0.0:9090")
	}
	if cfg.Upstream.BaseURL != "http://upstream.local" {
		t.Errorf("Upstream.BaseURL = %q, want %q", cfg.Upstream.BaseURL, "http://upstream.local")
	}
	if cfg.Upstream.APIKey != "yaml-key" {
		t.Errorf("Upstream.APIKey = %q, want %q", cfg.Upstream.APIKey, "yaml-key")
	}
	if cfg.Upstream.PageLimit != 1000 {
		t.Errorf("Upstream.PageLimit = %d, want %d", cfg.Upstream.PageLimit, 1000)
	}
	if cfg.Upstream.RateLimitPerMin != 5 {
		t.Errorf("Upstream.RateLimitPerMin = %d, want %d", cfg.Upstream.RateLimitPerMin, 5)
	}
	if cfg.Upstream.Timeout != 45*time.Second {
		t.Errorf("Upstream.Timeout = %v, want %v", cfg.Upstream.Timeout, 45*time.Second)
	}
	if !cfg.Alpaca.Enabled() {
		t.Error("Alpaca.Enabled() = false, want true")
	}
	if cfg.Alpaca.Feed != "iex" {
		t.Errorf("Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "iex")
	}
	if cfg.Storage.SQLitePath != "/tmp/tickbars/journal.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/tickbars/journal.db")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Upstream.Provider != ProviderPolygon {
		t.Errorf("Upstream.Provider = %q, want %q", cfg.Upstream.Provider, ProviderPolygon)
	}
	if cfg.Upstream.BaseURL != "https://api.polygon.io" {
		t.Errorf("Upstream.BaseURL = %q, want %q", cfg.Upstream.BaseURL, "https://api.polygon.io")
	}
	if cfg.Upstream.PageLimit != 50000 {
		t.Errorf("Upstream.PageLimit = %d, want %d", cfg.Upstream.PageLimit, 50000)
	}
	if cfg.Upstream.Timeout != 0 {
		t.Errorf("Upstream.Timeout = %v, want 0", cfg.Upstream.Timeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Storage.SQLitePath != "" {
		t.Errorf("Storage.SQLitePath = %q, want empty", cfg.Storage.SQLitePath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
upstream:
  api_key: "yaml-key"
storage:
  data_dir: "/original/data"
`)

	t.Setenv("POLYGON_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Upstream.APIKey != "env-key" {
		t.Errorf("Upstream.APIKey = %q, want %q (env override)", cfg.Upstream.APIKey, "env-key")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want %d (env override)", cfg.Server.Port, 7070)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
upstream:
  provider: "iex-cloud"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should reject an unknown provider")
	}
}

func TestLoadAlpacaProviderNeedsCredentials(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
upstream:
  provider: "alpaca"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should require Alpaca credentials for the alpaca provider")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail on malformed YAML")
	}
}
