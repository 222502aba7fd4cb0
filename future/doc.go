// Package future provides a write-once completion value that can be awaited
// from other goroutines.  Operations use it to hand their final result to a
// consumer that is not part of the driver loop.
package future
