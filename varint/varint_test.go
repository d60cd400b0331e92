package varint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, math.MaxUint32, math.MaxUint64}
	for _, v := range values {
		buf := AppendUvarint(nil, v)
		got, n, ok := DecodeUvarint(buf, 0)
		require.True(t, ok)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestUvarintZeroIsOneByte(t *testing.T) {
	buf := AppendUvarint(nil, 0)
	assert.Equal(t, []byte{0}, buf)
}

func TestUvarintWidthOverflow(t *testing.T) {
	buf := AppendUvarint(nil, 256)
	_, _, ok := DecodeUvarintWidth(buf, 0, 8)
	assert.False(t, ok)

	buf8 := AppendUvarint(nil, 255)
	v, _, ok := DecodeUvarintWidth(buf8, 0, 8)
	require.True(t, ok)
	assert.EqualValues(t, 255, v)
}

func TestUvarintNotEnoughBits(t *testing.T) {
	buf := []byte{0x80, 0x80}
	_, _, ok := DecodeUvarint(buf, 0)
	assert.False(t, ok)
}

func TestSvarintRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, -64, 64, -65, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64}
	for _, v := range values {
		buf := AppendSvarint(nil, v)
		got, n, ok := DecodeSvarint(buf, 0)
		require.True(t, ok)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestSvarintWidthRange(t *testing.T) {
	// i8 range is [-128, 127]; the extra negative value (-128) must be permitted.
	buf := AppendSvarint(nil, -128)
	v, _, ok := DecodeSvarintWidth(buf, 0, 8)
	require.True(t, ok)
	assert.EqualValues(t, -128, v)

	buf = AppendSvarint(nil, 128)
	_, _, ok = DecodeSvarintWidth(buf, 0, 8)
	assert.False(t, ok)

	buf = AppendSvarint(nil, -129)
	_, _, ok = DecodeSvarintWidth(buf, 0, 8)
	assert.False(t, ok)
}

func TestSvarintStreamingOffsets(t *testing.T) {
	var buf []byte
	buf = AppendSvarint(buf, 5)
	buf = AppendSvarint(buf, -1000)
	buf = AppendSvarint(buf, math.MinInt64)

	v1, off1, ok := DecodeSvarint(buf, 0)
	require.True(t, ok)
	assert.EqualValues(t, 5, v1)

	v2, off2, ok := DecodeSvarint(buf, off1)
	require.True(t, ok)
	assert.EqualValues(t, -1000, v2)

	v3, off3, ok := DecodeSvarint(buf, off2)
	require.True(t, ok)
	assert.EqualValues(t, math.MinInt64, v3)
	assert.Equal(t, len(buf), off3)
}
