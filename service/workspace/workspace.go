// Package workspace holds the scratch buffers an execution context lends to
// matrix operations: Mark (watermarked int64 slots), Work (uninitialised
// bytes) and Flag (zeroed int8 slots).  All memory comes from the owning
// context's allocator.
package workspace

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/viant/sparsecore/service/allocator"
)

// Workspace is not safe for concurrent use.
type Workspace struct {
	allocator *allocator.Service
	mark      *allocator.Block
	watermark int64
	work      *allocator.Block
	flag      *allocator.Block
}

// New creates an empty workspace drawing memory from alloc.
func New(alloc *allocator.Service) *Workspace {
	return &Workspace{allocator: alloc, watermark: 1}
}

// Mark returns at least n slots.  Slot i is set for the current pass iff
// mark[i] == Watermark().  Growing the buffer zeroes it and restarts the
// watermark at 1; on allocation failure the previous buffer is kept.
func (w *Workspace) Mark(n int) ([]int64, error) {
	if n < 0 {
		return nil, fmt.Errorf("workspace: invalid mark size %d", n)
	}
	if n > w.MarkSize() || w.mark == nil {
		block, err := w.grow(w.mark, uint64(n), 8)
		if err != nil {
			return nil, err
		}
		w.mark = block
		clear(block.Bytes())
		w.watermark = 1
	}
	return w.marks(), nil
}

// Watermark returns the value marking a slot as set.
func (w *Workspace) Watermark() int64 {
	return w.watermark
}

// NextMark invalidates every slot in O(1) by advancing the watermark by
// span (at least 1).  Callers that store watermark+k for k < span reserve
// span values per pass.  When the watermark would overflow the buffer is
// zeroed and the watermark restarts at 1.
func (w *Workspace) NextMark(span int64) int64 {
	span = max(span, 1)
	if w.watermark >= math.MaxInt64-span {
		clear(w.mark.Bytes())
		w.watermark = 1
		return w.watermark
	}
	w.watermark += span
	return w.watermark
}

// SetMark marks slot i for the current pass.  Mark must have been called.
func (w *Workspace) SetMark(i int) {
	w.marks()[i] = w.watermark
}

// IsMarked reports whether slot i was marked during the current pass.
func (w *Workspace) IsMarked(i int) bool {
	return w.marks()[i] == w.watermark
}

// MarkSize returns the slot capacity of Mark.
func (w *Workspace) MarkSize() int {
	if w.mark == nil {
		return 0
	}
	return w.mark.Len() / 8
}

// Work returns at least nbytes of uninitialised scratch memory.
func (w *Workspace) Work(nbytes int) ([]byte, error) {
	if nbytes < 0 {
		return nil, fmt.Errorf("workspace: invalid work size %d", nbytes)
	}
	if nbytes > w.WorkSize() || w.work == nil {
		block, err := w.grow(w.work, uint64(nbytes), 1)
		if err != nil {
			return nil, err
		}
		w.work = block
	}
	return w.work.Bytes(), nil
}

// WorkSize returns the byte capacity of Work.
func (w *Workspace) WorkSize() int {
	return w.work.Len()
}

// Flag returns at least n slots, all zero.  Callers must reset every slot
// they touch back to zero before returning.
func (w *Workspace) Flag(n int) ([]int8, error) {
	if n < 0 {
		return nil, fmt.Errorf("workspace: invalid flag size %d", n)
	}
	if n > w.FlagSize() || w.flag == nil {
		block, err := w.grow(w.flag, uint64(n), 1)
		if err != nil {
			return nil, err
		}
		w.flag = block
		clear(block.Bytes())
	}
	data := w.flag.Bytes()
	return unsafe.Slice((*int8)(unsafe.Pointer(&data[0])), len(data)), nil
}

// FlagSize returns the slot capacity of Flag.
func (w *Workspace) FlagSize() int {
	return w.flag.Len()
}

// Release frees every buffer and returns how many were held.
func (w *Workspace) Release() (int, error) {
	released := 0
	var firstErr error
	for _, block := range []**allocator.Block{&w.mark, &w.work, &w.flag} {
		if *block == nil {
			continue
		}
		if err := w.allocator.Release(*block); err != nil && firstErr == nil {
			firstErr = err
		}
		*block = nil
		released++
	}
	w.watermark = 1
	return released, firstErr
}

// grow allocates the replacement before releasing prev so a failure keeps
// the current buffer usable.
func (w *Workspace) grow(prev *allocator.Block, items, itemSize uint64) (*allocator.Block, error) {
	block, err := w.allocator.Allocate(items, itemSize)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if prev != nil {
		if err := w.allocator.Release(prev); err != nil {
			_ = w.allocator.Release(block)
			return nil, err
		}
	}
	return block, nil
}

func (w *Workspace) marks() []int64 {
	data := w.mark.Bytes()
	return unsafe.Slice((*int64)(unsafe.Pointer(&data[0])), len(data)/8)
}
