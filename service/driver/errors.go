package driver

import "errors"

var (
	// ErrStopped is returned by Submit after Shutdown.
	ErrStopped = errors.New("driver: stopped")

	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("driver: job not found")
)
