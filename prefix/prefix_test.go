package prefix

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsib-cbie/tsz-sub000/bitio"
	"github.com/qsib-cbie/tsz-sub000/errs"
)

func roundTrip(t *testing.T, width int, values []int64) {
	t.Helper()

	sink := bitio.NewSink()
	for _, v := range values {
		require.NoError(t, Write(sink, width, v))
	}

	src := bitio.NewSource(sink.Bytes())
	for _, want := range values {
		got, err := Read(src, width)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRoundTripAllBucketsI64(t *testing.T) {
	values := []int64{0, 1, -1, 7, -8, 8, -9, 63, -64, 64, -65, 255, -256, 256, -257,
		2047, -2048, 2048, -2049, 16383, -16384, 16384, -16385,
		131071, -131072, 131072, -131073,
		2147483647, -2147483648, -9223372036854775808, 9223372036854775807}
	roundTrip(t, 64, values)
}

func TestZeroBucketIsOneBit(t *testing.T) {
	sink := bitio.NewSink()
	require.NoError(t, Write(sink, 64, 0))
	assert.Equal(t, 1, sink.Len())
}

func TestPrefixMonotonicity(t *testing.T) {
	// Residuals from the same bucket row cost the same number of bits
	// regardless of magnitude within that bucket.
	small := bitio.NewSink()
	require.NoError(t, Write(small, 64, 9))
	large := bitio.NewSink()
	require.NoError(t, Write(large, 64, 63))
	assert.Equal(t, small.Len(), large.Len())
}

func TestI8ToppingOutAt9Bits(t *testing.T) {
	sink := bitio.NewSink()
	err := Write(sink, 8, 257)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrOutOfRange))

	sink2 := bitio.NewSink()
	require.NoError(t, Write(sink2, 8, 256))
}

func TestDecodeInvalidEncodingForWidth(t *testing.T) {
	// Encode a value that needs the 32-bit bucket, then try to decode it
	// as an i8 column: the prefix (7 leading ones) exceeds i8's 9-bit
	// bucket limit (index 3), so decoding must fail.
	sink := bitio.NewSink()
	require.NoError(t, Write(sink, 64, 1<<20))

	src := bitio.NewSource(sink.Bytes())
	_, err := Read(src, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidEncoding))
}

func TestReadNotEnoughBits(t *testing.T) {
	sink := bitio.NewSink()
	// Eight 1-bits select the 64-bit bucket, and no payload bits follow.
	// (A shorter run would not do: Bytes pads with 0-bits, which would
	// terminate the prefix and supply a payload.)
	sink.WriteBits(0xFF, 8)

	src := bitio.NewSource(sink.Bytes())
	_, err := Read(src, 64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotEnoughBits))
}

func TestDecodeRejectsForbiddenMaxInt64(t *testing.T) {
	// Hand-construct the bitstream Write can never produce: prefix
	// 11111111 (7 ones + discriminator bit 1, selecting the 64-bit bucket)
	// followed by 64 payload bits that decode to raw math.MaxInt64. A
	// legitimate encoder's classify-- transform tops out one below this.
	sink := bitio.NewSink()
	for n := 0; n < 7; n++ {
		sink.WriteBits(1, 1)
	}
	sink.WriteBits(1, 1) // discriminator bit selecting bucket 8 (64-bit payload)
	sink.WriteBits(uint64(math.MaxInt64), 64)

	src := bitio.NewSource(sink.Bytes())
	_, err := Read(src, 64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidEncoding))
}

func TestNegativeSymmetry(t *testing.T) {
	// -8 and 7 both land in the 4-bit bucket (range [-8,7] after -1 on
	// positives maps 7 -> 6, and -8 stays -8; both fit in 4 signed bits).
	roundTrip(t, 16, []int64{-8, 7})
}
