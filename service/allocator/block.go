package allocator

// Block is an owning handle over memory obtained from a Service.  It must
// be released through the Service that produced it, at most once.
type Block struct {
	data     []byte
	items    uint64
	itemSize uint64
	owner    *Service
}

// Bytes returns the block memory, or nil once the block was released.
func (b *Block) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the block size in bytes (0 once released).
func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Items returns the clamped item count the block was requested with.
func (b *Block) Items() uint64 { return b.items }

// ItemSize returns the clamped item size the block was requested with.
func (b *Block) ItemSize() uint64 { return b.itemSize }

// Released reports whether the block was handed back.
func (b *Block) Released() bool {
	return b == nil || b.data == nil
}

// Release hands the block back to its owner.
func (b *Block) Release() error {
	if b == nil {
		return ErrNilBlock
	}
	return b.owner.Release(b)
}
