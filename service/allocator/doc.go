// Package allocator owns every heap request made by the sparse-matrix
// runtime.  Requests are validated (zero sizes clamped to one unit,
// overflow-checked multiplication, per-dimension index limit) before they
// reach the underlying Strategy, and every successful request is counted
// until the returned Block is released.
//
// A Service is not safe for concurrent use; each execution context owns
// exactly one.
package allocator
