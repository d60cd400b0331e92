// Package prefix implements the V1 delta prefix codec (spec §4.3): each
// residual is written as a unary-terminated prefix selecting a bucket,
// followed by a fixed-width signed payload sized to that bucket.
//
// Buckets are made symmetric by subtracting 1 from positive residuals
// before classification and encoding, and adding 1 back after decoding a
// non-negative payload. This is distinct from zigzag encoding (used by
// the V2 group codec) and the two must not be mixed: see spec §9.
//
// The first seven buckets are a textbook unary prefix (0 to 6 leading
// 1-bits, each terminated by a 0-bit). The last two buckets (32-bit and
// 64-bit payloads) share the same 7-one prefix and are instead told apart
// by one extra discriminator bit, since a run of seven 1-bits already
// disambiguates them from every shorter bucket.
package prefix

import (
	"fmt"
	"math"

	"github.com/qsib-cbie/tsz-sub000/bitio"
	"github.com/qsib-cbie/tsz-sub000/errs"
	"github.com/qsib-cbie/tsz-sub000/schema"
)

// payloads holds the payload width, in bits, for bucket index 0 through 8,
// matching the table in spec §4.3 top to bottom.
var payloads = [9]int{0, 4, 7, 9, 12, 15, 18, 32, 64}

// maxBucketIndex returns the highest bucket index available to a column of
// the given bit width, per spec §4.3's "i8 tops out at 9 bits, i16 at 18,
// i32 at 32, i64 at 64" rule.
func maxBucketIndex(width int) int {
	switch {
	case width <= 8:
		return 3 // 9-bit payload bucket
	case width <= 16:
		return 6 // 18-bit payload bucket
	case width <= 32:
		return 7 // 32-bit payload bucket
	default:
		return 8 // 64-bit payload bucket
	}
}

// Write encodes one residual for a column of the given bit width.
//
// residual must already be the signed difference (delta or delta-delta)
// computed for the column; callers are responsible for that arithmetic
// (see internal/arith.Sub64).
func Write(sink *bitio.Sink, width int, residual int64) error {
	if residual == 0 {
		writePrefix(sink, 0)
		return nil
	}

	classify := residual
	if classify > 0 {
		classify--
	}

	// Bucket 0 is reserved for a zero residual; a residual of 1 classifies
	// to 0 but still needs a payload so the decoder's +1 can restore it.
	limit := maxBucketIndex(width)
	for i := 1; i <= limit; i++ {
		payload := payloads[i]
		if !fits(classify, payload) {
			continue
		}

		writePrefix(sink, i)
		if payload > 0 {
			sink.WriteBits(uint64(classify)&payloadMask(payload), payload)
		}
		return nil
	}

	return fmt.Errorf("%w: residual %d escapes all buckets for width %d", errs.ErrOutOfRange, residual, width)
}

// writePrefix writes the unary-or-discriminated prefix selecting bucket i.
func writePrefix(sink *bitio.Sink, i int) {
	if i < 7 {
		sink.WriteUnary(i)
		return
	}

	for n := 0; n < 7; n++ {
		sink.WriteBits(1, 1)
	}
	if i == 7 {
		sink.WriteBits(0, 1)
	} else {
		sink.WriteBits(1, 1)
	}
}

// Read decodes one residual previously written by Write.
func Read(src *bitio.Source, width int) (int64, error) {
	index, err := readPrefix(src)
	if err != nil {
		return 0, err
	}

	limit := maxBucketIndex(width)
	if index > limit {
		return 0, fmt.Errorf("%w: prefix index %d exceeds width-%d table", errs.ErrInvalidEncoding, index, width)
	}
	if index == 0 {
		return 0, nil
	}

	payload := payloads[index]
	var value int64
	if payload > 0 {
		raw, ok := src.ReadBits(payload)
		if !ok {
			return 0, errs.ErrNotEnoughBits
		}
		value = signExtend(raw, payload)
	}

	// Write's classify-- transform can never produce math.MaxInt64 in the
	// 64-bit bucket: residual tops out at math.MaxInt64, which classifies
	// to math.MaxInt64-1. A decoded value of math.MaxInt64 here is only
	// reachable by a malformed stream, and the +1 adjustment below would
	// silently wrap it to math.MinInt64 via defined signed overflow.
	if index == 8 && value == math.MaxInt64 {
		return 0, fmt.Errorf("%w: decoded max-positive value is forbidden in the 64-bit bucket", errs.ErrInvalidEncoding)
	}

	if value >= 0 {
		value++
	}

	return value, nil
}

// readPrefix reads one prefix code and returns its bucket index (0-8).
func readPrefix(src *bitio.Source) (int, error) {
	ones := 0
	terminated := false

	for ones < 7 {
		bit, ok := src.ReadBits(1)
		if !ok {
			return 0, errs.ErrNotEnoughBits
		}
		if bit == 0 {
			terminated = true
			break
		}
		ones++
	}

	if terminated {
		return ones, nil
	}

	disc, ok := src.ReadBits(1)
	if !ok {
		return 0, errs.ErrNotEnoughBits
	}
	if disc == 0 {
		return 7, nil
	}
	return 8, nil
}

// fits reports whether v's symmetric-bucket representation fits in a
// signed field of width bits (0 for the zero-only bucket).
func fits(v int64, width int) bool {
	if width == 0 {
		return v == 0
	}
	lo := int64(-1) << uint(width-1)
	hi := (int64(1) << uint(width-1)) - 1
	return v >= lo && v <= hi
}

func payloadMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

func signExtend(raw uint64, width int) int64 {
	if width >= 64 {
		return int64(raw)
	}
	shift := uint(64 - width)
	return int64(raw<<shift) >> shift
}

// MaxWidth returns the widest payload bucket (in bits) available to a
// schema.Kind, chosen by maxBucketIndex from the kind's column width.
func MaxWidth(k schema.Kind) int {
	return payloads[maxBucketIndex(k.Width())]
}
