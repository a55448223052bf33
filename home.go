package vegascript

import (
	"os"
	"path/filepath"
)

// Home returns the vegascript home directory.
// It defaults to ~/.vegascript but can be overridden with the VEGASCRIPT_HOME environment variable.
func Home() string {
	if v := os.Getenv("VEGASCRIPT_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vegascript")
}

// DefaultDBPath returns the default SQLite database path (~/.vegascript/agents.db).
func DefaultDBPath() string {
	return filepath.Join(Home(), "agents.db")
}

// StatePath returns the default directory of the JSON agent store.
func StatePath() string {
	return filepath.Join(Home(), "agents")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// EnsureHome creates the home and state directories if they don't exist.
func EnsureHome() error {
	return os.MkdirAll(StatePath(), 0o755)
}
