package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, 15*time.Second, cfg.Cache.FetchTimeout)
	assert.Zero(t, cfg.Cache.MaxStaleness) // No TTL unless configured
	assert.Equal(t, 8, cfg.Mirror.MaxAttempts)
	assert.False(t, cfg.HasBackend())
}

func TestLoad_BackendFromEnv(t *testing.T) {
	t.Setenv("KISAN_HOME", t.TempDir())
	t.Setenv("KISAN_BACKEND_URL", "https://example.supabase.co/")
	t.Setenv("KISAN_ANON_KEY", "anon-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.supabase.co", cfg.Backend.URL)
	assert.Equal(t, "anon-123", cfg.Backend.AnonKey)
	assert.True(t, cfg.HasBackend())
}

func TestLoad_CreatesDirectories(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested", "kisan")
	t.Setenv("KISAN_HOME", home)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, home, cfg.BaseDir)
	assert.DirExists(t, filepath.Join(home, "logs"))
	assert.Equal(t, filepath.Join(home, "kisan.db"), GetPaths(cfg).Database)
}

func TestLoad_Durations(t *testing.T) {
	t.Setenv("KISAN_HOME", t.TempDir())
	t.Setenv("KISAN_FETCH_TIMEOUT", "3s")
	t.Setenv("KISAN_CACHE_MAX_STALENESS", "72h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Cache.FetchTimeout)
	assert.Equal(t, 72*time.Hour, cfg.Cache.MaxStaleness)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"bad timeout", "KISAN_FETCH_TIMEOUT", "soon"},
		{"negative staleness", "KISAN_CACHE_MAX_STALENESS", "-1h"},
		{"bad rate", "KISAN_RATE_LIMIT", "zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KISAN_HOME", t.TempDir())
			t.Setenv(tt.env, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_DefaultLanguageAndDebug(t *testing.T) {
	t.Setenv("KISAN_HOME", t.TempDir())
	t.Setenv("KISAN_DEFAULT_LANGUAGE", "HI")
	t.Setenv("KISAN_DEBUG", "1")
	t.Setenv("DATA_GOV_API_KEY", "gov-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "hi", cfg.DefaultLanguage)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "gov-key", cfg.Market.APIKey)
}

func TestDefaultBaseDir_XDGDataHome(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_DATA_HOME", dir)
	xdg.Reload()

	assert.Equal(t, filepath.Join(dir, "kisan"), DefaultBaseDir())
}

func TestDefaultBaseDir_Home(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".kisan"), DefaultBaseDir())
}
