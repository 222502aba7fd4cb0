// Package mutation contains sample bulk-edit operations over an addressable
// space.  Each operation edits a bounded slice of the space per Resume call,
// stopping early when the tick budget of the run context is spent.
package mutation
