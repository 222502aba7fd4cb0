// Package driver schedules operation graphs as jobs.  Workers take job
// tickets from a messaging queue, resume the job root for one bounded tick
// and put the ticket back while work remains, so many jobs interleave on a
// small worker pool.
package driver
