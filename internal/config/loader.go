package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/tailscale/hujson"

	"github.com/dohr-michael/dayplan/internal/scheduler"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// unmarshals it into Config, and applies defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = []byte("{}")
	} else if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variable templates (before standardizing, since templates are in strings)
	expanded := expandEnvTemplates(string(data))

	// Strip JSONC comments and trailing commas, then unmarshal
	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18420
	}
	if cfg.Client.GatewayURL == "" {
		cfg.Client.GatewayURL = fmt.Sprintf("http://%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	}
	if cfg.Client.RequestTimeout == 0 {
		cfg.Client.RequestTimeout = Duration(10 * time.Second)
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.Path == "" {
		if cfg.Storage.Driver == DriverFile {
			cfg.Storage.Path = filepath.Join(DayplanPath(), "tasks")
		} else {
			cfg.Storage.Path = filepath.Join(DayplanPath(), "dayplan.db")
		}
	}
	if cfg.Sync.Debounce == 0 {
		cfg.Sync.Debounce = Duration(800 * time.Millisecond)
	}
	if cfg.Sync.RefreshCron == "" {
		cfg.Sync.RefreshCron = scheduler.DailyRefresh
	}
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "gemini-2.5-flash"
	}
	if cfg.Assistant.HistorySize == 0 {
		cfg.Assistant.HistorySize = 10
	}
	if cfg.Assistant.MaxToolRounds == 0 {
		cfg.Assistant.MaxToolRounds = 5
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
	if cfg.Heartbeat.Interval == 0 {
		cfg.Heartbeat.Interval = Duration(30 * time.Second)
	}
	if cfg.Heartbeat.StaleAfter == 0 {
		cfg.Heartbeat.StaleAfter = Duration(2 * time.Minute)
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case DriverSQLite, DriverFile:
	default:
		return fmt.Errorf("config: unknown storage driver %q", cfg.Storage.Driver)
	}
	if _, err := scheduler.ParseCron(cfg.Sync.RefreshCron); err != nil {
		return fmt.Errorf("config: sync.refresh_cron: %w", err)
	}
	return nil
}
