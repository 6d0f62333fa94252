package allocator

import (
	"math"
	"runtime"
	"runtime/debug"

	sigar "github.com/cloudfoundry/gosigar"
)

// Strategy supplies raw memory to a Service.  Alloc returns nil when the
// request cannot be satisfied; Free receives exactly the slices Alloc
// returned.
type Strategy interface {
	Alloc(size uint64) []byte
	Free(data []byte)
}

// largeAlloc is the size above which Heap consults the runtime memory
// limit before allocating.
const largeAlloc = 1 << 20

// Heap allocates from the Go heap.  Limit, when non-zero, caps the bytes
// held through this strategy at any time.
type Heap struct {
	Limit uint64
	inUse uint64
}

// Alloc returns size bytes, or nil when the limit, the runtime memory limit
// or the runtime itself refuses the request.
func (h *Heap) Alloc(size uint64) (data []byte) {
	if h.Limit > 0 && (size > h.Limit || h.inUse > h.Limit-size) {
		return nil
	}
	if size > largeAlloc && size > memFree() {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			// e.g. "runtime error: makeslice: len out of range"
			data = nil
		}
	}()
	data = make([]byte, size)
	h.inUse += uint64(cap(data))
	return data
}

// Free drops the reference; the garbage collector reclaims the memory.
func (h *Heap) Free(data []byte) {
	h.inUse -= uint64(cap(data))
}

// InUse returns the bytes currently held through this strategy.
func (h *Heap) InUse() uint64 {
	return h.inUse
}

// memFree returns the bytes still available under the runtime memory
// limit, or the free physical memory when no limit is set.
var memFree = func() uint64 {
	limit := debug.SetMemoryLimit(-1)
	if limit == math.MaxInt64 {
		return sysFree()
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	used := int64(stats.Sys - stats.HeapReleased)
	if used >= limit {
		return 0
	}
	return uint64(limit - used)
}

func sysFree() uint64 {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil || mem.ActualFree == 0 {
		return math.MaxUint64
	}
	return mem.ActualFree
}

// Faulty wraps a strategy and lets only a fixed number of allocations
// succeed.  It is meant for exercising out-of-memory paths in tests.
type Faulty struct {
	inner     Strategy
	remaining int64
}

// NewFaulty returns a strategy that allows budget successful allocations
// from inner.
func NewFaulty(inner Strategy, budget int64) *Faulty {
	return &Faulty{inner: inner, remaining: budget}
}

// Alloc fails without touching inner once the budget is spent; the budget
// shrinks only when inner actually succeeds.
func (f *Faulty) Alloc(size uint64) []byte {
	if f.remaining <= 0 {
		return nil
	}
	data := f.inner.Alloc(size)
	if data != nil {
		f.remaining--
	}
	return data
}

// Free forwards to the wrapped strategy.
func (f *Faulty) Free(data []byte) {
	f.inner.Free(data)
}

// Remaining returns the successes left in the budget.
func (f *Faulty) Remaining() int64 {
	return f.remaining
}
