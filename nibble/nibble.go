// Package nibble implements the nibble-aligned sink/source that backs the
// V2 column-oriented engine's wire format (spec §4.4, §4.8, §4.9). Every
// V2 field - tags, full lead values, and group payloads - is a whole
// number of 4-bit nibbles; this package is the byte-materialization layer
// that packs two nibbles per byte, upper nibble first, the way the
// original queue/halfvec split tracked half-words before flattening to
// bytes.
package nibble

import "github.com/qsib-cbie/tsz-sub000/internal/pool"

// PadNibble is written into a dangling low nibble when a stream ends on
// an odd nibble count, per spec §4.8 ("padding the final nibble with
// `1011` if needed to achieve byte alignment").
const PadNibble = 0b1011

// StartOfColumn is the sentinel nibble separating columns in the combined
// V2 byte stream (spec §4.4's tag `1001`).
const StartOfColumn = 0b1001

// Sink is an append-only nibble writer.
type Sink struct {
	buf          *pool.Buffer
	pendingUpper int8 // -1 if no nibble is waiting for its partner
	count        int  // total nibbles written
}

// NewSink creates an empty nibble sink.
func NewSink() *Sink {
	return &Sink{buf: pool.Get(), pendingUpper: -1}
}

// WriteNibble appends the low 4 bits of v as one nibble.
func (s *Sink) WriteNibble(v uint8) {
	v &= 0xF
	s.count++

	if s.pendingUpper < 0 {
		s.pendingUpper = int8(v)
		return
	}

	b := byte(s.pendingUpper)<<4 | v
	s.buf.ExtendOrGrow(1)
	s.buf.B[len(s.buf.B)-1] = b
	s.pendingUpper = -1
}

// WriteNibblesBE writes the low count*4 bits of value as count nibbles,
// most-significant nibble first.
func (s *Sink) WriteNibblesBE(value uint64, count int) {
	for i := count - 1; i >= 0; i-- {
		s.WriteNibble(uint8(value >> uint(i*4)))
	}
}

// WriteNibblesLE writes the low count*4 bits of value as count nibbles,
// least-significant nibble first ("little-endian within nibble stream",
// spec §6, used for a column's row-0 full lead value).
func (s *Sink) WriteNibblesLE(value uint64, count int) {
	for i := 0; i < count; i++ {
		s.WriteNibble(uint8(value >> uint(i*4)))
	}
}

// Len returns the total number of nibbles written so far.
func (s *Sink) Len() int {
	return s.count
}

// Bytes materializes the written nibbles into a byte slice, padding a
// dangling final nibble with PadNibble in the low position. The returned
// slice shares memory with the sink's internal buffer and is valid until
// the next write.
func (s *Sink) Bytes() []byte {
	if s.pendingUpper < 0 {
		return s.buf.B
	}

	out := make([]byte, len(s.buf.B)+1)
	copy(out, s.buf.B)
	out[len(out)-1] = byte(s.pendingUpper)<<4 | PadNibble
	return out
}

// AppendTo copies exactly s's written nibbles (ignoring any trailing pad
// nibble from an odd count) onto the end of dst, preserving nibble-level
// continuity even though both sinks independently byte-pack their own
// content. This lets several sinks be built up independently and then
// spliced into one continuous stream without spurious padding nibbles
// appearing mid-stream.
func (s *Sink) AppendTo(dst *Sink) {
	src := NewSource(s.Bytes())
	for i := 0; i < s.count; i++ {
		v, _ := src.ReadNibble()
		dst.WriteNibble(v)
	}
}

// Reset clears the sink for reuse.
func (s *Sink) Reset() {
	s.buf.Reset()
	s.pendingUpper = -1
	s.count = 0
}

// Finish returns the sink's backing buffer to the pool. The sink must not
// be used afterward.
func (s *Sink) Finish() {
	pool.Put(s.buf)
	s.buf = nil
}

// Source is a sequential nibble reader over a byte slice, reading the
// upper nibble of each byte before its lower nibble.
type Source struct {
	data []byte
	pos  int // absolute nibble position
}

// NewSource creates a nibble reader over data.
func NewSource(data []byte) *Source {
	return &Source{data: data}
}

// ReadNibble reads one nibble. ok is false if the stream is exhausted.
func (r *Source) ReadNibble() (value uint8, ok bool) {
	if r.pos >= len(r.data)*2 {
		return 0, false
	}

	b := r.data[r.pos/2]
	if r.pos%2 == 0 {
		value = b >> 4
	} else {
		value = b & 0xF
	}
	r.pos++
	return value, true
}

// PeekNibble reads the next nibble without consuming it.
func (r *Source) PeekNibble() (value uint8, ok bool) {
	save := r.pos
	value, ok = r.ReadNibble()
	r.pos = save
	return value, ok
}

// ReadNibblesBE reads count nibbles and reassembles them
// most-significant-nibble-first, the counterpart of WriteNibblesBE.
func (r *Source) ReadNibblesBE(count int) (value uint64, ok bool) {
	for i := 0; i < count; i++ {
		nib, ok2 := r.ReadNibble()
		if !ok2 {
			return 0, false
		}
		value = value<<4 | uint64(nib)
	}
	return value, true
}

// ReadNibblesLE reads count nibbles and reassembles them
// least-significant-nibble-first, the counterpart of WriteNibblesLE.
func (r *Source) ReadNibblesLE(count int) (value uint64, ok bool) {
	var result uint64
	for i := 0; i < count; i++ {
		nib, ok2 := r.ReadNibble()
		if !ok2 {
			return 0, false
		}
		result |= uint64(nib) << uint(i*4)
	}
	return result, true
}

// Remaining returns the number of unread nibbles left in the stream.
func (r *Source) Remaining() int {
	return len(r.data)*2 - r.pos
}

// Exhausted reports whether every nibble in data has been consumed.
func (r *Source) Exhausted() bool {
	return r.pos >= len(r.data)*2
}
