// Package pending keeps the deferred matrix work registered while an
// execution context runs in non-blocking mode.  Entries are drained head
// to tail; each is removed before it runs, so it runs at most once.
//
// The queue does not isolate deferred work from the caller: anything a
// work item reads that the caller may still change must either be frozen
// at registration (see Snapshot) or the caller must wait before changing it.
package pending
