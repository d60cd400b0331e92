// Package arith provides the small set of overflow-checked integer helpers
// shared by the V1 and V2 engines: checked 64-bit subtraction (for
// delta/delta-delta residuals) and 64-bit zigzag encode/decode.
package arith

// Sub64 computes a-b and reports whether the true mathematical difference
// fits in an int64. Row values are stored as raw 64-bit words (see
// schema.Row); a column's residual is conceptually one type wider than the
// column itself, but every codec in this module caps its widest bucket at a
// 64-bit signed payload (spec §4.3, §4.4), so the overflow condition that
// matters in practice is always "does the true difference fit in int64".
//
// This is the standard two's-complement subtraction-overflow check: a-b
// overflows iff a and b have different signs and the result's sign differs
// from a's.
func Sub64(a, b int64) (int64, bool) {
	d := a - b
	overflow := (a^b) < 0 && (a^d) < 0
	return d, !overflow
}

// ZigZagEncode64 maps a signed value to an unsigned one so that small
// magnitude values (positive or negative) map to small unsigned values.
func ZigZagEncode64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// ZigZagDecode64 reverses ZigZagEncode64.
func ZigZagDecode64(z uint64) int64 {
	return int64(z>>1) ^ -int64(z&1)
}
