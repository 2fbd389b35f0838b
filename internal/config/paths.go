package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	Database string // Local SQLite store (kv, cache entries, outbox)
	Logs     string // Log directory
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		Database: filepath.Join(cfg.BaseDir, "kisan.db"),
		Logs:     filepath.Join(cfg.BaseDir, "logs"),
	}
}

// DefaultBaseDir returns the default base directory (~/.kisan).
// An explicit XDG_DATA_HOME moves it to $XDG_DATA_HOME/kisan.
func DefaultBaseDir() string {
	if os.Getenv("XDG_DATA_HOME") != "" {
		return filepath.Join(xdg.DataHome, "kisan")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(xdg.DataHome, "kisan")
	}
	return filepath.Join(home, ".kisan")
}
