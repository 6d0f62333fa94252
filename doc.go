// Package sparsecore provides the memory and execution-context layer of a
// sparse-matrix runtime.
//
// Every matrix operation allocates through a safe allocator and completes
// either immediately (blocking mode) or when the caller waits (non-blocking
// mode).  The root package wires the pieces from a Config:
//
//   - allocator: overflow-checked, counted allocation with fault injection
//   - pending: ordered deferred work, drained by Wait
//   - workspace: reusable mark, work and flag scratch buffers
//   - execution: the per-worker Context tying them together
//
// Typical use:
//
//	srv, _ := sparsecore.New(sparsecore.WithMode(execution.NonBlocking))
//	c := srv.Context()
//	_ = c.Register(matrix, pending.Func(assemble))
//	err := srv.Shutdown(ctx)
package sparsecore
