// Package progress keeps aggregated counters of deferred matrix work for a
// single execution-context lifecycle: how much was registered, completed,
// failed, discarded and is still pending.
package progress
