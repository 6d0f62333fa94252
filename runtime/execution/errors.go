package execution

import (
	"errors"

	"github.com/viant/sparsecore/service/allocator"
)

var (
	// ErrInvalidValue is returned when an argument is outside its domain,
	// e.g. an unknown mode or a nil matrix handle.
	ErrInvalidValue = errors.New("execution: invalid value")

	// ErrOutOfMemory is returned for every failed allocation.
	ErrOutOfMemory = allocator.ErrOutOfMemory

	// ErrMisuse is returned when an operation is called outside the
	// initialized lifecycle, work is registered in blocking mode, or a block
	// is released against its contract.
	ErrMisuse = errors.New("execution: misuse")

	// ErrDeferredFailure wraps the first failure met while completing
	// deferred work.
	ErrDeferredFailure = errors.New("execution: deferred operation failed")
)

// Info classifies the outcome of a call for diagnostics.
type Info int

const (
	Success Info = iota
	InvalidValue
	OutOfMemory
	Misuse
	DeferredFailure
)

func (i Info) String() string {
	switch i {
	case Success:
		return "success"
	case InvalidValue:
		return "invalid value"
	case OutOfMemory:
		return "out of memory"
	case Misuse:
		return "misuse"
	case DeferredFailure:
		return "deferred failure"
	}
	return "unknown"
}

// Err returns the sentinel error for i, or nil for Success.
func (i Info) Err() error {
	switch i {
	case InvalidValue:
		return ErrInvalidValue
	case OutOfMemory:
		return ErrOutOfMemory
	case Misuse:
		return ErrMisuse
	case DeferredFailure:
		return ErrDeferredFailure
	}
	return nil
}

// InfoOf classifies err.  Errors outside the taxonomy count as deferred
// failures since they can only originate in user-supplied work.
func InfoOf(err error) Info {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrDeferredFailure):
		return DeferredFailure
	case errors.Is(err, ErrInvalidValue):
		return InvalidValue
	case errors.Is(err, ErrOutOfMemory):
		return OutOfMemory
	case errors.Is(err, ErrMisuse):
		return Misuse
	}
	return DeferredFailure
}
