package jobs

import "time"

// Config holds configuration for the job queue system.
type Config struct {
	// Workers is the number of concurrent job workers. Default: 1
	Workers int

	// ReleaseAfter is when stuck jobs are released back to queue. Default: 30m
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed jobs. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long to keep completed jobs. Default: 24h
	RetentionDuration time.Duration
}

// DefaultConfig returns a Config with sensible defaults. Catalog refreshes
// crawl a throttled remote, so a single worker is the right default.
func DefaultConfig() Config {
	return Config{
		Workers:           1,
		ReleaseAfter:      30 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
