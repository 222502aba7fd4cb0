// Package progress defines primitives for reporting and aggregating the
// progress of long-running operations.  Progress is an immutable value
// computed on demand from whatever owns the work, while Tracker keeps
// aggregated job counters for a driver that runs many operation graphs.
package progress
