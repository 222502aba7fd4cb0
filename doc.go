// Package opflow runs cooperative, resumable operations.
//
// Long running work is expressed as operation.Operation values that do a
// bounded amount of work per Resume call.  Operations compose with
// operation.Queue (sequential) and operation.AffectedFuture (affected unit
// counting), and a driver interleaves many of them on a small worker pool.
//
// The root package wires the driver with its job store, ticket queue, event
// publisher, counters, logger and tracing:
//
//	srv, _ := opflow.New()
//	_ = srv.Start(ctx)
//	defer srv.Shutdown()
//	job, _ := srv.Driver().Submit(ctx, "fill", op)
//	state, err := job.Wait(ctx)
package opflow
