// Package worker provides background job processing for FieldRoute.
package worker

import (
	"time"
)

// SweepConfig holds configuration for the re-optimization sweep job.
type SweepConfig struct {
	// Concurrency is the number of routes optimized in parallel.
	// Default: 3
	Concurrency int

	// Timeout bounds the optimization of a single route, including
	// retries. Default: 60 seconds
	Timeout time.Duration

	// MaxAttempts is the number of tries per route before giving up.
	// Only transient failures are retried. Default: 3
	MaxAttempts int

	// RetryInterval is the initial backoff between attempts.
	// Default: 2 seconds
	RetryInterval time.Duration
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Concurrency:   3,
		Timeout:       60 * time.Second,
		MaxAttempts:   3,
		RetryInterval: 2 * time.Second,
	}
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 2 * time.Second
	}
	return c
}
