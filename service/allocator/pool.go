package allocator

import "fmt"

// SizeInterval is the granularity of pool size classes; MinBlock and
// MaxBlock must be multiples of it.
const SizeInterval = uint64(32)

// MEMUtilization is the targeted ratio between requested bytes and bytes
// handed out by a size class.
const MEMUtilization = float64(0.95)

// DefaultMaxFree is the number of released blocks cached per size class.
const DefaultMaxFree = 64

// PoolConfig configures size-class pooling.
type PoolConfig struct {
	Enabled  bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MinBlock uint64 `json:"minBlock,omitempty" yaml:"minBlock,omitempty"`
	MaxBlock uint64 `json:"maxBlock,omitempty" yaml:"maxBlock,omitempty"`
	MaxFree  int    `json:"maxFree,omitempty" yaml:"maxFree,omitempty"`
}

// DefaultPoolConfig returns pooling settings for blocks between 32 bytes
// and 1MB.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinBlock: SizeInterval,
		MaxBlock: 1024 * 1024,
		MaxFree:  DefaultMaxFree,
	}
}

// Validate checks block bounds.
func (c PoolConfig) Validate() error {
	switch {
	case c.MinBlock == 0 || c.MaxBlock == 0:
		return fmt.Errorf("pool minBlock and maxBlock must be > 0")
	case c.MaxBlock < c.MinBlock:
		return fmt.Errorf("pool minBlock(%v) > maxBlock(%v)", c.MinBlock, c.MaxBlock)
	case c.MinBlock%SizeInterval != 0:
		return fmt.Errorf("pool minBlock %v is not multiple of %v", c.MinBlock, SizeInterval)
	case c.MaxBlock%SizeInterval != 0:
		return fmt.Errorf("pool maxBlock %v is not multiple of %v", c.MaxBlock, SizeInterval)
	}
	return nil
}

// Pool rounds requests up to a size class and keeps released blocks for
// reuse.  Requests above the largest class go straight to the inner
// strategy.
type Pool struct {
	inner   Strategy
	sizes   []uint64
	free    map[uint64][][]byte
	maxFree int
}

// NewPool creates a pooling strategy over inner.
func NewPool(inner Strategy, config PoolConfig) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if inner == nil {
		inner = &Heap{}
	}
	if config.MaxFree <= 0 {
		config.MaxFree = DefaultMaxFree
	}
	sizes := Blocksizes(config.MinBlock, config.MaxBlock)
	free := make(map[uint64][][]byte, len(sizes))
	for _, size := range sizes {
		free[size] = nil
	}
	return &Pool{inner: inner, sizes: sizes, free: free, maxFree: config.MaxFree}, nil
}

// Alloc returns a cached block of the matching class when available.
func (p *Pool) Alloc(size uint64) []byte {
	if size > p.sizes[len(p.sizes)-1] {
		return p.inner.Alloc(size)
	}
	class := SuitableSize(p.sizes, size)
	if cached := p.free[class]; len(cached) > 0 {
		data := cached[len(cached)-1]
		p.free[class] = cached[:len(cached)-1]
		return data[:size]
	}
	data := p.inner.Alloc(class)
	if data == nil {
		return nil
	}
	return data[:size]
}

// Free caches the block under its class, or returns it to the inner
// strategy when it belongs to no class or the class cache is full.
func (p *Pool) Free(data []byte) {
	class := uint64(cap(data))
	cached, ok := p.free[class]
	if !ok || len(cached) >= p.maxFree {
		p.inner.Free(data[:cap(data)])
		return
	}
	p.free[class] = append(cached, data[:class])
}

// Cached returns the number of released blocks held for reuse.
func (p *Pool) Cached() int {
	n := 0
	for _, cached := range p.free {
		n += len(cached)
	}
	return n
}

// Drain returns every cached block to the inner strategy.
func (p *Pool) Drain() {
	for class, cached := range p.free {
		for _, data := range cached {
			p.inner.Free(data)
		}
		p.free[class] = nil
	}
}

// Sizes returns the size classes.
func (p *Pool) Sizes() []uint64 {
	return p.sizes
}

// SuitableSize picks the smallest class that fits size.  blocksizes must be
// sorted and size must not exceed the last class.
func SuitableSize(blocksizes []uint64, size uint64) uint64 {
	for {
		switch len(blocksizes) {
		case 1:
			return blocksizes[0]

		case 2:
			if size <= blocksizes[0] {
				return blocksizes[0]
			}
			return blocksizes[1]

		default:
			pivot := len(blocksizes) / 2
			if blocksizes[pivot] < size {
				blocksizes = blocksizes[pivot+1:]
			} else {
				blocksizes = blocksizes[0 : pivot+1]
			}
		}
	}
}

// Blocksizes generates classes between minblock and maxblock so that a
// request wastes at most about 1-MEMUtilization of its class.
func Blocksizes(minblock, maxblock uint64) []uint64 {
	nextsize := func(from uint64) uint64 {
		addby := uint64(float64(from) * (1.0 - MEMUtilization))
		if addby <= SizeInterval {
			addby = SizeInterval
		} else if addby%SizeInterval != 0 {
			addby = (addby / SizeInterval) * SizeInterval
		}
		size := from + addby
		for (float64(from+size)/2.0)/float64(size) > MEMUtilization {
			size += addby
		}
		return size
	}

	sizes := make([]uint64, 0, 64)
	for size := minblock; size < maxblock; {
		sizes = append(sizes, size)
		size = nextsize(size)
	}
	sizes = append(sizes, maxblock)
	return sizes
}
