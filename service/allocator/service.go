package allocator

import (
	"fmt"
	"log"
	"math"
	"math/bits"
)

// MaxIndex is the largest item count or item size accepted by default.
const MaxIndex = uint64(1) << 60

// Config represents allocator service configuration
type Config struct {
	// MaxIndex caps both the item count and the item size of a request.
	MaxIndex uint64 `json:"maxIndex,omitempty" yaml:"maxIndex,omitempty"`

	// Trace logs every allocation and release.
	Trace bool `json:"trace,omitempty" yaml:"trace,omitempty"`
}

// DefaultConfig returns the default allocator configuration
func DefaultConfig() Config {
	return Config{
		MaxIndex: MaxIndex,
	}
}

// Service validates and counts allocations made through a Strategy.
type Service struct {
	config   Config
	base     Strategy
	strategy Strategy
	faulty   *Faulty
	count    int64
	inUse    uint64
}

// New creates an allocator service on top of strategy; a nil strategy
// selects the Go heap.
func New(strategy Strategy, config Config) *Service {
	if strategy == nil {
		strategy = &Heap{}
	}
	if config.MaxIndex == 0 {
		config.MaxIndex = MaxIndex
	}
	return &Service{
		config:   config,
		base:     strategy,
		strategy: strategy,
	}
}

// Allocate returns a block holding items*itemSize bytes.  A zero item count
// or item size is treated as one so that an empty object still yields a
// block distinguishable from failure.  The contents are not initialised.
func (s *Service) Allocate(items, itemSize uint64) (*Block, error) {
	items = max(items, 1)
	itemSize = max(itemSize, 1)
	size, ok := multiply(items, itemSize)
	if !ok || items > s.config.MaxIndex || itemSize > s.config.MaxIndex {
		return nil, fmt.Errorf("%w: %d items of size %d", ErrOutOfMemory, items, itemSize)
	}
	data := s.strategy.Alloc(size)
	if data == nil {
		return nil, fmt.Errorf("%w: %d bytes", ErrOutOfMemory, size)
	}
	s.count++
	s.inUse += size
	if s.config.Trace {
		log.Printf("malloc:  %p %3d %t n %d size %d", &data[0], s.count, s.faulty != nil, items, itemSize)
	}
	return &Block{data: data, items: items, itemSize: itemSize, owner: s}, nil
}

// Release hands the block back to the strategy and decrements the live
// count.  A block can be released once; later calls fail with ErrReleased
// and leave the count untouched.
func (s *Service) Release(block *Block) error {
	if block == nil {
		return ErrNilBlock
	}
	if block.owner != s {
		return ErrForeignBlock
	}
	if block.data == nil {
		return ErrReleased
	}
	s.count--
	s.inUse -= uint64(len(block.data))
	if s.config.Trace {
		log.Printf("free:    %p %3d %t n %d size %d", &block.data[0], s.count, s.faulty != nil, block.items, block.itemSize)
	}
	s.strategy.Free(block.data)
	block.data = nil
	return nil
}

// Count returns the number of outstanding blocks.
func (s *Service) Count() int64 {
	return s.count
}

// InUse returns the bytes held by outstanding blocks.
func (s *Service) InUse() uint64 {
	return s.inUse
}

// EnableFaultInjection makes the next budget successful allocations succeed
// and every later one fail, until DisableFaultInjection is called.
func (s *Service) EnableFaultInjection(budget int64) {
	s.faulty = NewFaulty(s.base, budget)
	s.strategy = s.faulty
}

// DisableFaultInjection restores the base strategy.
func (s *Service) DisableFaultInjection() {
	s.faulty = nil
	s.strategy = s.base
}

// FaultInjection reports whether fault injection is active and how many
// successes remain in its budget.
func (s *Service) FaultInjection() (enabled bool, remaining int64) {
	if s.faulty == nil {
		return false, 0
	}
	return true, s.faulty.Remaining()
}

// SetTrace toggles allocation tracing.
func (s *Service) SetTrace(enabled bool) {
	s.config.Trace = enabled
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.config
}

// multiply returns a*b, and false when the product overflows or cannot be
// represented as a Go slice length.
func multiply(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}
	return lo, true
}
