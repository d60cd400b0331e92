// Package varint implements the UVLQ and SVLQ variable-length integer
// codecs used to encode the lead (first-row) value of every column (spec
// §4.2).
//
// UVLQ splits a value into 7-bit groups, least-significant group first,
// with the top bit of each byte as a continuation flag. SVLQ reserves the
// first byte's top bit as a sign flag and its next bit as the continuation
// flag, carrying 6 magnitude bits in the first byte and 7 in every byte
// after, following UVLQ's layout.
package varint

import "math"

// AppendUvarint appends the UVLQ encoding of v to buf and returns the
// extended slice. A zero value emits a single zero byte.
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}

	return append(buf, byte(v))
}

// DecodeUvarint decodes a UVLQ value from data starting at offset.
//
// It returns the decoded value, the offset just past the encoding, and
// whether decoding succeeded. Decoding fails if data runs out before a
// terminating byte (MSB clear) is found.
func DecodeUvarint(data []byte, offset int) (value uint64, next int, ok bool) {
	var shift uint
	pos := offset

	for {
		if pos >= len(data) {
			return 0, offset, false
		}

		b := data[pos]
		pos++

		if shift >= 64 {
			return 0, offset, false
		}

		value |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return value, pos, true
		}
		shift += 7
	}
}

// DecodeUvarintWidth decodes a UVLQ value and additionally verifies it fits
// within an unsigned integer of the given bit width (8/16/32/64). Surplus
// high bits beyond width must be zero, or decoding fails with ok=false.
func DecodeUvarintWidth(data []byte, offset int, width int) (value uint64, next int, ok bool) {
	value, next, ok = DecodeUvarint(data, offset)
	if !ok {
		return 0, offset, false
	}

	if width < 64 && value>>uint(width) != 0 {
		return 0, offset, false
	}

	return value, next, true
}

// AppendSvarint appends the SVLQ encoding of v to buf and returns the
// extended slice.
func AppendSvarint(buf []byte, v int64) []byte {
	sign := byte(0)
	var mag uint64
	if v < 0 {
		sign = 0x80
		if v == math.MinInt64 {
			mag = 1 << 63
		} else {
			mag = uint64(-v)
		}
	} else {
		mag = uint64(v)
	}

	first := sign | byte(mag&0x3F)
	mag >>= 6

	if mag == 0 {
		return append(buf, first)
	}

	buf = append(buf, first|0x40)
	for mag >= 0x80 {
		buf = append(buf, byte(mag)|0x80)
		mag >>= 7
	}

	return append(buf, byte(mag))
}

// DecodeSvarint decodes an SVLQ value from data starting at offset.
func DecodeSvarint(data []byte, offset int) (value int64, next int, ok bool) {
	if offset >= len(data) {
		return 0, offset, false
	}

	b0 := data[offset]
	sign := b0&0x80 != 0
	cont := b0&0x40 != 0
	mag := uint64(b0 & 0x3F)
	pos := offset + 1

	if cont {
		var shift uint = 6
		for {
			if pos >= len(data) {
				return 0, offset, false
			}
			if shift >= 70 {
				return 0, offset, false
			}

			b := data[pos]
			pos++
			mag |= uint64(b&0x7F) << shift
			if b < 0x80 {
				break
			}
			shift += 7
		}
	}

	if sign {
		if mag == 1<<63 {
			value = math.MinInt64
		} else {
			value = -int64(mag)
		}
	} else {
		value = int64(mag)
	}

	return value, pos, true
}

// DecodeSvarintWidth decodes an SVLQ value and verifies it fits within a
// signed integer of the given bit width (8/16/32/64), i.e. within
// [-(2^(width-1)), 2^(width-1)-1].
func DecodeSvarintWidth(data []byte, offset int, width int) (value int64, next int, ok bool) {
	value, next, ok = DecodeSvarint(data, offset)
	if !ok {
		return 0, offset, false
	}

	if width >= 64 {
		return value, next, true
	}

	lo := int64(-1) << (width - 1)
	hi := (int64(1) << (width - 1)) - 1
	if value < lo || value > hi {
		return 0, offset, false
	}

	return value, next, true
}
