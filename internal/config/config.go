package config

import "time"

// Config is the root configuration for dayplan.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Client    ClientConfig    `json:"client"`
	Storage   StorageConfig   `json:"storage"`
	Sync      SyncConfig      `json:"sync"`
	Assistant AssistantConfig `json:"assistant"`
	Events    EventsConfig    `json:"events"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ClientConfig configures how CLI commands reach the gateway.
type ClientConfig struct {
	GatewayURL     string   `json:"gateway_url"` // default: http://<gateway.host>:<gateway.port>
	RequestTimeout Duration `json:"request_timeout"`
}

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// StorageConfig selects where the gateway keeps tasks and accounts.
type StorageConfig struct {
	Driver string `json:"driver"` // "sqlite" (default) or "file"
	Path   string `json:"path"`   // sqlite database file or task directory
}

// SyncConfig tunes the planner session.
type SyncConfig struct {
	Debounce    Duration `json:"debounce"`     // reorder persist delay (default 800ms)
	RefreshCron string   `json:"refresh_cron"` // board refresh in watch mode (default midnight)
}

// AssistantConfig configures the chat assistant.
type AssistantConfig struct {
	Model         string `json:"model"`
	APIKey        string `json:"api_key,omitempty"` // Direct API key or ${{ .Env.VAR }} template
	HistorySize   int    `json:"history_size"`
	MaxToolRounds int    `json:"max_tool_rounds"`
}

// Enabled reports whether an API key is configured.
func (a AssistantConfig) Enabled() bool { return a.APIKey != "" }

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// HeartbeatConfig configures the gateway liveness file.
type HeartbeatConfig struct {
	Interval   Duration `json:"interval"`
	StaleAfter Duration `json:"stale_after"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
