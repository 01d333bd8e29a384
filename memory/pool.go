// Package memory provides pooled buffers for hot encoding paths.
package memory

import "sync"

// Default pool sizes.
const (
	// SmallBufferSize is the default size for small buffers (4KB).
	SmallBufferSize = 4 * 1024

	// MediumBufferSize is the default size for medium buffers (64KB).
	MediumBufferSize = 64 * 1024
)

// ByteSlicePool manages a pool of reusable byte slices. Store key and
// record encoding produces many short-lived slices; pooling them keeps
// allocation pressure off the spend/commit path.
type ByteSlicePool struct {
	pool        sync.Pool
	defaultSize int
}

// NewByteSlicePool creates a new byte slice pool with the specified default size.
func NewByteSlicePool(defaultSize int) *ByteSlicePool {
	if defaultSize <= 0 {
		defaultSize = SmallBufferSize
	}
	return &ByteSlicePool{
		pool: sync.Pool{
			New: func() interface{} {
				b := make([]byte, 0, defaultSize)
				return &b
			},
		},
		defaultSize: defaultSize,
	}
}

// Get returns a zero-length byte slice from the pool.
// Append to it and return it with Put when done.
func (p *ByteSlicePool) Get() []byte {
	b := *p.pool.Get().(*[]byte)
	return b[:0]
}

// Put returns a byte slice to the pool.
func (p *ByteSlicePool) Put(b []byte) {
	if b == nil {
		return
	}
	// Don't retain slices that grew far past the default size.
	if cap(b) > p.defaultSize*4 {
		return
	}
	p.pool.Put(&b)
}

// Global pools for common use cases.
var (
	// SmallBytePool is a global pool for small byte slices (4KB).
	SmallBytePool = NewByteSlicePool(SmallBufferSize)

	// MediumBytePool is a global pool for medium byte slices (64KB).
	MediumBytePool = NewByteSlicePool(MediumBufferSize)
)
