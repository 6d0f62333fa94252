package allocator

import "errors"

var (
	// ErrOutOfMemory is returned for every failed allocation: size overflow,
	// index limit exceeded, simulated fault or a strategy that could not
	// supply memory.  Callers cannot and should not tell them apart.
	ErrOutOfMemory = errors.New("allocator: out of memory")

	// ErrReleased is returned when a block is released a second time.
	ErrReleased = errors.New("allocator: block already released")

	// ErrForeignBlock is returned when a block is released through an
	// allocator that did not produce it.
	ErrForeignBlock = errors.New("allocator: block owned by another allocator")

	// ErrNilBlock is returned when a nil block is released.
	ErrNilBlock = errors.New("allocator: nil block")
)
