// internal/workers/matching/rebuild-matches/config.go
package rebuildmatches

import "time"

type Config struct {
	Timeout         time.Duration
	DefaultPageSize int
	// Limit is the per-listing match count kept by a rebuild.
	Limit int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         10 * time.Minute,
		DefaultPageSize: 100,
	}
}
