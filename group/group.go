// Package group implements the V2 zigzag group codec (spec §4.4): fixed
// shape packings of N residuals into a nibble-aligned payload, each led
// by a 4-bit tag, plus the largest-sample-count selection rule that picks
// a shape from the leading queued samples.
package group

import (
	"fmt"

	"github.com/qsib-cbie/tsz-sub000/errs"
	"github.com/qsib-cbie/tsz-sub000/nibble"
)

// Pipeline selector nibbles. The wire format's tag space reserves
// 0b1000-0b1111 for group shapes and the column sentinel (spec §4.4); the
// low half (0b0000-0b0111) is unused by the table, so two values from it
// are spent here as an explicit per-column marker of which residual
// pipeline (delta vs delta-delta) produced the column's groups. Without
// this the decoder has no way to pick a reconstruction formula for a
// column whose pipeline was chosen dynamically by the encoder's race/cull
// (spec §4.8): see the Open Question decision in DESIGN.md.
const (
	PipelineDelta      uint8 = 0b0001
	PipelineDeltaDelta uint8 = 0b0010
)

// Shape describes one fixed group packing from the spec §4.4 table.
type Shape struct {
	Tag          uint8
	Samples      int
	Bits         int // bits per sample
	TotalNibbles int // nibbles including the leading tag
}

func (s Shape) payloadBits() int {
	return s.TotalNibbles*4 - 4
}

func (s Shape) payloadNibbles() int {
	return s.TotalNibbles - 1
}

func (s Shape) padBits() int {
	return s.payloadBits() - s.Samples*s.Bits
}

// Shapes is the selection order from spec §4.4: largest sample count
// first, matching the table top to bottom.
var Shapes = []Shape{
	{Tag: 0b1111, Samples: 10, Bits: 3, TotalNibbles: 9},
	{Tag: 0b1110, Samples: 8, Bits: 4, TotalNibbles: 9},
	{Tag: 0b1100, Samples: 4, Bits: 8, TotalNibbles: 9},
	{Tag: 0b1010, Samples: 3, Bits: 10, TotalNibbles: 9},
	{Tag: 0b1000, Samples: 2, Bits: 16, TotalNibbles: 9},
	{Tag: 0b1011, Samples: 1, Bits: 32, TotalNibbles: 9},
	{Tag: 0b1101, Samples: 1, Bits: 64, TotalNibbles: 17},
}

func shapeByTag(tag uint8) (Shape, bool) {
	for _, s := range Shapes {
		if s.Tag == tag {
			return s, true
		}
	}
	return Shape{}, false
}

// Select picks the largest-sample-count shape whose per-sample bit-width
// constraint is satisfied by every leading sample it would consume.
//
// widths holds the minimum zigzag bit width of the available leading
// samples (as produced by queue.Queue.PeekBitcounts), in queue order.
// allow64 gates the 1-sample/64-bit shape; package rowv2 passes true for
// every 32- or 64-bit column, signed or unsigned.
func Select(widths []int, allow64 bool) (Shape, bool) {
	for _, s := range Shapes {
		if s.Bits == 64 && !allow64 {
			continue
		}
		if s.Samples > len(widths) {
			continue
		}

		fits := true
		for i := 0; i < s.Samples; i++ {
			if widths[i] > s.Bits {
				fits = false
				break
			}
		}
		if fits {
			return s, true
		}
	}

	return Shape{}, false
}

// Encode writes one group: the shape's tag nibble followed by its packed
// payload. values must hold exactly shape.Samples already zigzag-encoded
// magnitudes, each fitting in shape.Bits bits; samples are packed
// most-significant-sample-first, with any padding bits zero at the low
// end (spec §4.4's "Padding" column).
func Encode(sink *nibble.Sink, shape Shape, values []uint64) {
	if len(values) != shape.Samples {
		panic("group: Encode got wrong sample count for shape")
	}

	var word uint64
	mask := uint64(1)<<uint(shape.Bits) - 1
	for _, v := range values {
		word = word<<uint(shape.Bits) | (v & mask)
	}
	word <<= uint(shape.padBits())

	sink.WriteNibble(shape.Tag)
	sink.WriteNibblesBE(word, shape.payloadNibbles())
}

// Decode reads one group given its already-consumed tag, returning the
// shape.Samples zigzag-encoded magnitudes in original order.
func Decode(src *nibble.Source, tag uint8) ([]uint64, error) {
	shape, ok := shapeByTag(tag)
	if !ok {
		return nil, fmt.Errorf("%w: tag %04b", errs.ErrInvalidTag, tag)
	}

	word, ok := src.ReadNibblesBE(shape.payloadNibbles())
	if !ok {
		return nil, errs.ErrNotEnoughBits
	}
	word >>= uint(shape.padBits())

	mask := uint64(1)<<uint(shape.Bits) - 1
	values := make([]uint64, shape.Samples)
	for i := shape.Samples - 1; i >= 0; i-- {
		values[i] = word & mask
		word >>= uint(shape.Bits)
	}

	return values, nil
}
