// Package queue implements the bounded ring buffer that feeds the V2
// zigzag group codec (spec §4.5). Each pipeline (delta and delta-delta)
// owns one queue per column: values are pushed in already zigzag-encoded,
// and the queue additionally tracks each slot's minimum bit width so the
// group selector (package group) can inspect leading samples without a
// second pass over the raw values.
package queue

import "math/bits"

// DefaultCapacity is the effective capacity used by the V2 engine (spec
// §4.5: "used value 10, physical ceiling 16").
const DefaultCapacity = 10

// PhysicalCeiling is the largest capacity a Queue may be constructed with.
const PhysicalCeiling = 16

// Queue is a fixed-capacity FIFO ring buffer of zigzag-encoded values.
type Queue struct {
	values []uint64
	widths []uint8
	head   int
	length int
}

// New creates a Queue with the given capacity (1-PhysicalCeiling).
func New(capacity int) *Queue {
	if capacity <= 0 || capacity > PhysicalCeiling {
		panic("queue: capacity out of range")
	}
	return &Queue{
		values: make([]uint64, capacity),
		widths: make([]uint8, capacity),
	}
}

// Push stores an already zigzag-encoded value, recording its minimum bit
// width. If the queue is full, the oldest value is dropped to make room;
// this never happens in normal operation because the V2 column compressor
// emits a group via PopN as soon as the queue is full, before the next
// Push (spec §4.5).
func (q *Queue) Push(zigzag uint64) {
	if q.length == len(q.values) {
		q.head = q.next(q.head)
		q.length--
	}

	idx := (q.head + q.length) % len(q.values)
	q.values[idx] = zigzag
	q.widths[idx] = uint8(bits.Len64(zigzag))
	q.length++
}

func (q *Queue) next(i int) int {
	return (i + 1) % len(q.values)
}

// Pop removes and returns the oldest value. ok is false if the queue is
// empty.
func (q *Queue) Pop() (value uint64, ok bool) {
	if q.length == 0 {
		return 0, false
	}

	v := q.values[q.head]
	q.head = q.next(q.head)
	q.length--
	return v, true
}

// PopN removes and returns the n oldest values in FIFO order. The caller
// must ensure n does not exceed Len(); PopN panics otherwise, since this
// is a programmer invariant, not a runtime condition (mirroring the
// caller-guaranteed precondition of the original queue's pop_n).
func (q *Queue) PopN(n int) []uint64 {
	if n < 0 || n > q.length {
		panic("queue: PopN requested more elements than available")
	}

	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = q.values[(q.head+i)%len(q.values)]
	}
	q.head = (q.head + n) % len(q.values)
	q.length -= n
	return out
}

// PeekBitcounts inspects the minimum bit widths of the oldest n slots
// without popping them, for use by the group selection rule. ok is false
// if fewer than n values are present.
func (q *Queue) PeekBitcounts(n int) (widths []int, ok bool) {
	if n < 0 || n > q.length {
		return nil, false
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = int(q.widths[(q.head+i)%len(q.values)])
	}
	return out, true
}

// PeekValues inspects the oldest n zigzag-encoded values without popping
// them.
func (q *Queue) PeekValues(n int) (values []uint64, ok bool) {
	if n < 0 || n > q.length {
		return nil, false
	}

	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = q.values[(q.head+i)%len(q.values)]
	}
	return out, true
}

// Len returns the number of values currently queued.
func (q *Queue) Len() int {
	return q.length
}

// Cap returns the queue's configured capacity.
func (q *Queue) Cap() int {
	return len(q.values)
}
