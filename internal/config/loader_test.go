package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.jsonc")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
	// This is a JSONC comment
	"gateway": {
		"host": "0.0.0.0",
		"port": 9999,
	},
	"storage": {"driver": "file", "path": "/srv/dayplan/tasks"},
	"sync": {"debounce": "1.5s", "refresh_cron": "0 6 * * *"},
	"assistant": {
		"model": "gemini-2.5-pro",
		"api_key": "${{ .Env.GEMINI_API_KEY }}",
		"history_size": 20
	}
}`)
	t.Setenv("GEMINI_API_KEY", "test-key-123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Gateway.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Gateway.Port)
	}
	if cfg.Client.GatewayURL != "http://0.0.0.0:9999" {
		t.Errorf("expected derived gateway url, got %s", cfg.Client.GatewayURL)
	}
	if cfg.Storage.Driver != DriverFile || cfg.Storage.Path != "/srv/dayplan/tasks" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Sync.Debounce.Duration() != 1500*time.Millisecond {
		t.Errorf("expected debounce 1.5s, got %s", cfg.Sync.Debounce.Duration())
	}
	if cfg.Assistant.APIKey != "test-key-123" {
		t.Errorf("expected api_key test-key-123, got %s", cfg.Assistant.APIKey)
	}
	if !cfg.Assistant.Enabled() {
		t.Error("assistant should be enabled with an api key")
	}
	if cfg.Assistant.HistorySize != 20 || cfg.Assistant.MaxToolRounds != 5 {
		t.Errorf("assistant = %+v", cfg.Assistant)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DAYPLAN_PATH", "/tmp/test-dayplan")
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Gateway.Host != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %s", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 18420 {
		t.Errorf("expected default port 18420, got %d", cfg.Gateway.Port)
	}
	if cfg.Client.GatewayURL != "http://127.0.0.1:18420" {
		t.Errorf("expected default gateway url, got %s", cfg.Client.GatewayURL)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.Path != "/tmp/test-dayplan/dayplan.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Sync.Debounce.Duration() != 800*time.Millisecond {
		t.Errorf("expected debounce 800ms, got %s", cfg.Sync.Debounce.Duration())
	}
	if cfg.Sync.RefreshCron != "0 0 * * *" {
		t.Errorf("expected midnight refresh, got %q", cfg.Sync.RefreshCron)
	}
	if cfg.Assistant.HistorySize != 10 || cfg.Assistant.Enabled() {
		t.Errorf("assistant = %+v", cfg.Assistant)
	}
	if cfg.Events.BufferSize != 1024 {
		t.Errorf("expected default buffer 1024, got %d", cfg.Events.BufferSize)
	}
	if cfg.Heartbeat.StaleAfter.Duration() != 2*time.Minute {
		t.Errorf("expected stale_after 2m, got %s", cfg.Heartbeat.StaleAfter.Duration())
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.jsonc"))
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if cfg.Gateway.Port != 18420 {
		t.Errorf("expected defaults, got port %d", cfg.Gateway.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"syntax":  `{"gateway": `,
		"driver":  `{"storage": {"driver": "postgres"}}`,
		"cron":    `{"sync": {"refresh_cron": "every night"}}`,
		"timeout": `{"client": {"request_timeout": "soon"}}`,
	} {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestExpandEnvTemplates(t *testing.T) {
	t.Setenv("TEST_KEY", "my-secret")
	result := expandEnvTemplates(`{"key": "${{ .Env.TEST_KEY }}"}`)
	expected := `{"key": "my-secret"}`
	if result != expected {
		t.Errorf("expected %s, got %s", expected, result)
	}
}
