package config

import (
	"os"
	"path/filepath"
)

// DayplanPath returns the root directory for dayplan data.
// It uses $DAYPLAN_PATH if set, otherwise defaults to ~/.dayplan.
func DayplanPath() string {
	if v := os.Getenv("DAYPLAN_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".dayplan")
	}
	return filepath.Join(home, ".dayplan")
}

// ConfigPath returns the path to the dayplan config file.
func ConfigPath() string {
	return filepath.Join(DayplanPath(), "config.jsonc")
}

// DotenvPath returns the path to the dayplan .env file.
func DotenvPath() string {
	return filepath.Join(DayplanPath(), ".env")
}

// CredentialsPath returns where `dayplan login` stores the session token.
func CredentialsPath() string {
	return filepath.Join(DayplanPath(), "credentials.json")
}

// HeartbeatPath returns the gateway heartbeat file.
func HeartbeatPath() string {
	return filepath.Join(DayplanPath(), "heartbeat.json")
}

// ActivityDir returns the directory of per-user activity journals.
func ActivityDir() string {
	return filepath.Join(DayplanPath(), "activity")
}
