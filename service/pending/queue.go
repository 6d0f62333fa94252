package pending

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/viant/sparsecore/internal/clock"
	"github.com/viant/sparsecore/internal/idgen"
)

// Work is the deferred-completion routine of a matrix operation.
type Work interface {
	Finish(ctx context.Context) error
}

// Func adapts a plain function to Work.
type Func func(ctx context.Context) error

// Finish calls f.
func (f Func) Finish(ctx context.Context) error {
	return f(ctx)
}

// Snapshot returns work bound to a copy of value taken now, so later
// changes the caller makes to its own variable do not reach fn.  Reference
// types (maps, slices, pointers) still share their backing data.
func Snapshot[T any](value T, fn func(ctx context.Context, value T) error) Work {
	return Func(func(ctx context.Context) error {
		return fn(ctx, value)
	})
}

// Entry is a unit of deferred work registered for a matrix.
type Entry struct {
	ID           string
	Matrix       any
	Work         Work
	RegisteredAt time.Time
}

// Run invokes the entry work; a panic is returned as an error.
func (e *Entry) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pending: entry %s panicked: %v", e.ID, r)
		}
	}()
	return e.Work.Finish(ctx)
}

// CheckHandle returns an error unless matrix can serve as a queue key:
// non-nil and comparable with == at run time, including values held in
// interface fields.
func CheckHandle(matrix any) error {
	if matrix == nil {
		return fmt.Errorf("pending: matrix was nil")
	}
	if !reflect.ValueOf(matrix).Comparable() {
		return fmt.Errorf("pending: matrix handle of type %T is not comparable", matrix)
	}
	return nil
}

// Queue keeps entries in registration order.  Matrix handles are compared
// with ==, so they must pass CheckHandle (typically pointers).
// Queue is not safe for concurrent use.
type Queue struct {
	entries []*Entry
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends work for matrix to the tail and returns the new entry.
func (q *Queue) Push(matrix any, work Work) (*Entry, error) {
	if err := CheckHandle(matrix); err != nil {
		return nil, err
	}
	if work == nil {
		return nil, fmt.Errorf("pending: work was nil")
	}
	entry := &Entry{
		ID:           idgen.New(),
		Matrix:       matrix,
		Work:         work,
		RegisteredAt: clock.Now(),
	}
	q.entries = append(q.entries, entry)
	return entry, nil
}

// Pop removes and returns the head entry, or nil when empty.
func (q *Queue) Pop() *Entry {
	if len(q.entries) == 0 {
		return nil
	}
	entry := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	return entry
}

// Remove drops every entry registered for matrix without running it and
// returns the removed entries.  A handle failing CheckHandle matches nothing.
func (q *Queue) Remove(matrix any) []*Entry {
	if CheckHandle(matrix) != nil {
		return nil
	}
	var removed []*Entry
	kept := q.entries[:0]
	for _, entry := range q.entries {
		if entry.Matrix == matrix {
			removed = append(removed, entry)
			continue
		}
		kept = append(kept, entry)
	}
	clear(q.entries[len(kept):])
	q.entries = kept
	return removed
}

// Contains reports whether matrix has outstanding work.
func (q *Queue) Contains(matrix any) bool {
	if CheckHandle(matrix) != nil {
		return false
	}
	for _, entry := range q.entries {
		if entry.Matrix == matrix {
			return true
		}
	}
	return false
}

// Discard empties the queue without running anything.
func (q *Queue) Discard() []*Entry {
	discarded := q.entries
	q.entries = nil
	return discarded
}

// Len returns the number of outstanding entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the outstanding entries, head first.
func (q *Queue) Entries() []*Entry {
	return append([]*Entry(nil), q.entries...)
}
