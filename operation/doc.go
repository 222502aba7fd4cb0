// Package operation defines resumable units of work that are advanced by an
// external driver one bounded step at a time.  Instead of running to
// completion in a single call, every Operation performs a slice of work per
// Resume call and reports back through a Signal whether it wants to be called
// again, is finished, or hands control to another Operation.
//
// Composites such as Queue run their members strictly in order, while
// decorators such as AffectedFuture observe the steps of the wrapped
// operation and publish a result once it completes.
package operation
