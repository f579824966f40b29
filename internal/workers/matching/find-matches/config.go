// internal/workers/matching/find-matches/config.go
package findmatches

import "time"

type Config struct {
	Timeout time.Duration
	// DefaultLimit applies when the job does not set a limit. Zero defers to
	// the ranker's own default.
	DefaultLimit int
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
