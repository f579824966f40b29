// internal/workers/matching/batch-find-matches/config.go
package batchfindmatches

import "time"

type Config struct {
	Timeout      time.Duration
	DefaultLimit int
	// MaxListings caps listingIds per job.
	MaxListings int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     60 * time.Second,
		MaxListings: 100,
	}
}
