package group

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsib-cbie/tsz-sub000/errs"
	"github.com/qsib-cbie/tsz-sub000/nibble"
)

func TestEncodeDecodeAllShapes(t *testing.T) {
	for _, s := range Shapes {
		values := make([]uint64, s.Samples)
		mask := uint64(1)<<uint(s.Bits) - 1
		for i := range values {
			values[i] = mask // max magnitude for this shape
		}

		sink := nibble.NewSink()
		Encode(sink, s, values)

		src := nibble.NewSource(sink.Bytes())
		tag, ok := src.ReadNibble()
		require.True(t, ok)
		assert.Equal(t, s.Tag, tag)

		got, err := Decode(src, tag)
		require.NoError(t, err)
		assert.Equal(t, values, got)
	}
}

func TestGroupTotalBitsMatchTable(t *testing.T) {
	for _, s := range Shapes {
		want := 36
		if s.Bits == 64 {
			want = 68
		}
		assert.Equal(t, want, s.TotalNibbles*4, "tag %04b", s.Tag)
	}
}

func TestSelectPrefersLargestSampleCount(t *testing.T) {
	widths := make([]int, 10)
	for i := range widths {
		widths[i] = 3
	}

	s, ok := Select(widths, true)
	require.True(t, ok)
	assert.Equal(t, 10, s.Samples)
	assert.Equal(t, uint8(0b1111), s.Tag)
}

func TestSelectFallsBackWhenLeadingSampleTooWide(t *testing.T) {
	widths := []int{3, 3, 3, 3, 3, 3, 3, 3, 3, 9} // 10th sample needs 9 bits
	s, ok := Select(widths, true)
	require.True(t, ok)
	assert.Equal(t, 8, s.Samples) // 8x4 is next largest and 4 >= 3 for all of the first 8
}

func TestSelectDisqualifiesShapeNeedingMoreSamplesThanAvailable(t *testing.T) {
	widths := []int{1, 1, 1} // only 3 samples available
	s, ok := Select(widths, true)
	require.True(t, ok)
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, uint8(0b1010), s.Tag)
}

func TestSelect64GatedByAllow64(t *testing.T) {
	widths := []int{40} // needs the 64-bit bucket, 32 won't do
	_, ok := Select(widths, false)
	assert.False(t, ok)

	s, ok := Select(widths, true)
	require.True(t, ok)
	assert.Equal(t, 64, s.Bits)
}

func TestSelectNoneFitsReturnsFalse(t *testing.T) {
	_, ok := Select(nil, true)
	assert.False(t, ok)
}

func TestDecodeInvalidTag(t *testing.T) {
	sink := nibble.NewSink()
	sink.WriteNibble(0b0101) // not a group tag
	sink.WriteNibblesBE(0, 8)

	src := nibble.NewSource(sink.Bytes())
	tag, _ := src.ReadNibble()
	_, err := Decode(src, tag)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidTag))
}

func TestDecodeNotEnoughBits(t *testing.T) {
	sink := nibble.NewSink()
	sink.WriteNibble(0b1111) // 10x3 tag, but no payload follows

	src := nibble.NewSource(sink.Bytes())
	tag, _ := src.ReadNibble()
	_, err := Decode(src, tag)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotEnoughBits))
}

func TestPackingOrderMostSignificantSampleFirst(t *testing.T) {
	// For the 4x8 shape, the first value should land in the highest byte
	// of the 32-bit payload.
	shape := Shapes[2]
	require.Equal(t, 4, shape.Samples)
	require.Equal(t, 8, shape.Bits)

	values := []uint64{0x11, 0x22, 0x33, 0x44}
	sink := nibble.NewSink()
	Encode(sink, shape, values)

	src := nibble.NewSource(sink.Bytes())
	src.ReadNibble() // tag
	word, ok := src.ReadNibblesBE(shape.payloadNibbles())
	require.True(t, ok)
	assert.Equal(t, uint64(0x11223344), word)
}
