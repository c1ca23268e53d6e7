package config

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Sections the gateway reads only at startup.
var restartSections = map[string]bool{"gateway": true, "storage": true, "events": true, "heartbeat": true}

// Change describes one successful reload.
type Change struct {
	Previous *Config
	Current  *Config
	// Sections lists the top-level keys whose values differ.
	Sections []string
}

// Has reports whether section changed.
func (c Change) Has(section string) bool {
	for _, s := range c.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// RestartRequired lists changed sections a running gateway ignores.
func (c Change) RestartRequired() []string {
	var out []string
	for _, s := range c.Sections {
		if restartSections[s] {
			out = append(out, s)
		}
	}
	return out
}

// Reloader re-reads the .env and config files on demand and tells its
// listeners what changed. A failed reload keeps the previous config.
type Reloader struct {
	configPath string
	dotenvPath string
	log        *slog.Logger

	mu        sync.Mutex
	current   *Config
	listeners []func(Change)
}

func NewReloader(configPath, dotenvPath string, initial *Config) *Reloader {
	return &Reloader{
		configPath: configPath,
		dotenvPath: dotenvPath,
		log:        slog.Default(),
		current:    initial,
	}
}

// OnReload registers fn for every reload that changes something.
func (r *Reloader) OnReload(fn func(Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Reload loads the files again. Listeners are not called when nothing
// changed.
func (r *Reloader) Reload() (Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ReloadDotenv(r.dotenvPath); err != nil {
		return Change{}, fmt.Errorf("reload dotenv: %w", err)
	}
	cfg, err := Load(r.configPath)
	if err != nil {
		return Change{}, fmt.Errorf("reload config: %w", err)
	}

	ch := Change{Previous: r.current, Current: cfg, Sections: diffSections(r.current, cfg)}
	r.current = cfg
	if len(ch.Sections) == 0 {
		r.log.Info("config reloaded, no changes")
		return ch, nil
	}

	r.log.Info("config reloaded", "changed", ch.Sections)
	if restart := ch.RestartRequired(); len(restart) > 0 {
		r.log.Warn("config changes need a restart", "sections", restart)
	}
	for _, fn := range r.listeners {
		fn(ch)
	}
	return ch, nil
}

func diffSections(a, b *Config) []string {
	if a == nil {
		a = &Config{}
	}
	var out []string
	add := func(name string, x, y any) {
		if !reflect.DeepEqual(x, y) {
			out = append(out, name)
		}
	}
	add("gateway", a.Gateway, b.Gateway)
	add("client", a.Client, b.Client)
	add("storage", a.Storage, b.Storage)
	add("sync", a.Sync, b.Sync)
	add("assistant", a.Assistant, b.Assistant)
	add("events", a.Events, b.Events)
	add("heartbeat", a.Heartbeat, b.Heartbeat)
	return out
}
