package driver

import (
	"fmt"
	"time"
)

// Config represents driver configuration
type Config struct {
	// Workers is the number of goroutines consuming tickets.
	Workers int `yaml:"workers" json:"workers"`

	// TickBudget bounds the wall time of one tick.
	TickBudget time.Duration `yaml:"tickBudget" json:"tickBudget"`

	// StepsPerTick bounds the number of Resume calls per tick; zero means
	// only TickBudget applies.
	StepsPerTick int `yaml:"stepsPerTick" json:"stepsPerTick"`

	// CancelOnFailure cancels the rest of a job's graph when a step fails.
	CancelOnFailure bool `yaml:"cancelOnFailure" json:"cancelOnFailure"`

	// MaxAttempts is the number of times Run builds and runs a graph.
	MaxAttempts int `yaml:"maxAttempts" json:"maxAttempts"`

	// RetryDelay is the pause between Run attempts.
	RetryDelay time.Duration `yaml:"retryDelay" json:"retryDelay"`
}

// DefaultConfig returns the default driver configuration
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		TickBudget:      10 * time.Millisecond,
		StepsPerTick:    16,
		CancelOnFailure: true,
		MaxAttempts:     1,
		RetryDelay:      100 * time.Millisecond,
	}
}

// Validate checks that the configuration can drive jobs.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("driver: workers must be positive, got %d", c.Workers)
	}
	if c.TickBudget < 0 {
		return fmt.Errorf("driver: tick budget must not be negative, got %v", c.TickBudget)
	}
	if c.StepsPerTick < 0 {
		return fmt.Errorf("driver: steps per tick must not be negative, got %d", c.StepsPerTick)
	}
	if c.TickBudget == 0 && c.StepsPerTick == 0 {
		return fmt.Errorf("driver: either tick budget or steps per tick must be set")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("driver: max attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("driver: retry delay must not be negative, got %v", c.RetryDelay)
	}
	return nil
}
