// Package config handles application configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all kisan data (~/.kisan)
	BaseDir string

	// Default language used when nothing else resolves
	DefaultLanguage string

	// Debug enables verbose logging and SQL tracing
	Debug bool

	// Backend (auth, rows, RPC, storage) settings
	Backend BackendConfig

	// Cached-query settings
	Cache CacheConfig

	// Mandi price feed settings
	Market MarketConfig

	// Remote mirror (outbox) settings
	Mirror MirrorConfig
}

// BackendConfig holds the backend-as-a-service connection settings.
type BackendConfig struct {
	// Project URL, e.g. https://xyzcompany.supabase.co
	URL string
	// Public anon key sent as the apikey header
	AnonKey string
	// Requests per second allowed against the backend
	RateLimit int
}

// CacheConfig holds cached-query settings.
type CacheConfig struct {
	// FetchTimeout bounds every background fetch (0 disables the bound)
	FetchTimeout time.Duration
	// MaxStaleness treats older cache entries as absent (0 keeps them forever)
	MaxStaleness time.Duration
}

// MarketConfig holds data.gov.in feed settings.
type MarketConfig struct {
	APIKey     string
	ResourceID string
	BaseURL    string
	// Records requested per refresh
	Limit int
}

// MirrorConfig holds best-effort remote mirror settings.
type MirrorConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Interval    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if home := os.Getenv("KISAN_HOME"); home != "" {
		cfg.BaseDir = home
	}

	if url := os.Getenv("KISAN_BACKEND_URL"); url != "" {
		cfg.Backend.URL = strings.TrimRight(url, "/")
	}

	if key := os.Getenv("KISAN_ANON_KEY"); key != "" {
		cfg.Backend.AnonKey = key
	}

	if lang := os.Getenv("KISAN_DEFAULT_LANGUAGE"); lang != "" {
		cfg.DefaultLanguage = strings.ToLower(lang)
	}

	if apiKey := os.Getenv("DATA_GOV_API_KEY"); apiKey != "" {
		cfg.Market.APIKey = apiKey
	}

	if os.Getenv("KISAN_DEBUG") == "true" || os.Getenv("KISAN_DEBUG") == "1" {
		cfg.Debug = true
	}

	if raw := os.Getenv("KISAN_RATE_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid KISAN_RATE_LIMIT %q", raw)
		}
		cfg.Backend.RateLimit = n
	}

	var err error
	if cfg.Cache.FetchTimeout, err = durationEnv("KISAN_FETCH_TIMEOUT", cfg.Cache.FetchTimeout); err != nil {
		return nil, err
	}
	if cfg.Cache.MaxStaleness, err = durationEnv("KISAN_CACHE_MAX_STALENESS", cfg.Cache.MaxStaleness); err != nil {
		return nil, err
	}

	// Ensure directories exist
	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// durationEnv parses a Go duration from an env var, keeping def when unset.
func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a duration like 30s", name, raw)
	}
	return d, nil
}

// HasBackend reports whether a backend project is configured.
func (c *Config) HasBackend() bool {
	return c.Backend.URL != "" && c.Backend.AnonKey != ""
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	dirs := []string{
		cfg.BaseDir,
		filepath.Join(cfg.BaseDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
