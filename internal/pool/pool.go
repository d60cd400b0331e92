// Package pool provides a pooled growable byte buffer used by the V1 and
// V2 output sinks, so that repeated short-lived streams (one per sensor
// packet) don't each pay a fresh allocation.
package pool

import "sync"

const (
	// DefaultBufferSize is the initial capacity handed out by the pool,
	// sized for a handful of BLE MTU-class packets (spec §1, §5).
	DefaultBufferSize = 512
	// MaxPooledBuffer caps how large a buffer the pool will retain;
	// larger buffers are discarded on Put to avoid memory bloat from one
	// unusually large stream.
	MaxPooledBuffer = 64 * 1024
)

// Buffer is a thin, reusable wrapper over a growable byte slice.
type Buffer struct {
	B []byte
}

// Reset empties the buffer while retaining its backing array.
func (b *Buffer) Reset() {
	b.B = b.B[:0]
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int {
	return len(b.B)
}

// Grow ensures the buffer can accept at least n more bytes without a
// further reallocation.
func (b *Buffer) Grow(n int) {
	if cap(b.B)-len(b.B) >= n {
		return
	}

	growBy := DefaultBufferSize
	if cap(b.B) > 4*DefaultBufferSize {
		growBy = cap(b.B) / 4
	}
	if growBy < n {
		growBy = n
	}

	next := make([]byte, len(b.B), len(b.B)+growBy)
	copy(next, b.B)
	b.B = next
}

// ExtendOrGrow extends the buffer's length by n bytes, growing the backing
// array first if necessary.
func (b *Buffer) ExtendOrGrow(n int) {
	b.Grow(n)
	b.B = b.B[:len(b.B)+n]
}

var bufferPool = sync.Pool{
	New: func() any { return &Buffer{B: make([]byte, 0, DefaultBufferSize)} },
}

// Get retrieves an empty Buffer from the pool.
func Get() *Buffer {
	buf, _ := bufferPool.Get().(*Buffer)
	return buf
}

// Put returns a Buffer to the pool for reuse. Buffers larger than
// MaxPooledBuffer are discarded instead of retained.
func Put(b *Buffer) {
	if b == nil {
		return
	}
	if cap(b.B) > MaxPooledBuffer {
		return
	}
	b.Reset()
	bufferPool.Put(b)
}
