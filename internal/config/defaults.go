package config

import "time"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir:         DefaultBaseDir(),
		DefaultLanguage: "en",

		Backend: BackendConfig{
			RateLimit: 10,
		},

		Cache: CacheConfig{
			FetchTimeout: 15 * time.Second,
			MaxStaleness: 0, // Cached values never expire on their own
		},

		Market: MarketConfig{
			ResourceID: "9ef84268-d588-465a-a308-a864a43d0070",
			BaseURL:    "https://api.data.gov.in/resource",
			Limit:      2000,
		},

		Mirror: MirrorConfig{
			MaxAttempts: 8,
			BaseBackoff: 2 * time.Second,
			MaxBackoff:  10 * time.Minute,
			Interval:    30 * time.Second,
		},
	}
}
