// Package errs defines the sentinel errors returned by the codec packages.
//
// Callers match on these with errors.Is; a codec error is either one of
// these or wraps one via fmt.Errorf("%w: ...", ...). A few errors carry no
// sentinel, e.g. schema.Validate's and rowv2.Compressor.Finish's
// one-row error.
package errs

import "errors"

var (
	// ErrNotEnoughBits is returned when a decoder runs off the end of the
	// buffer mid-value or mid-group.
	ErrNotEnoughBits = errors.New("not enough bits remaining")

	// ErrInvalidTag is returned by the V2 decoder when it encounters an
	// unknown 4-bit group tag.
	ErrInvalidTag = errors.New("invalid group tag")

	// ErrOverflow is returned when a decoded value exceeds the target
	// integer width.
	ErrOverflow = errors.New("decoded value overflows target width")

	// ErrInvalidEncoding is returned by the V1 decoder when a prefix is
	// valid in shape but forbidden for the column's declared width.
	ErrInvalidEncoding = errors.New("invalid prefix encoding for column width")

	// ErrOutOfRange is returned by an encoder when a residual exceeds the
	// widest bucket available for its column width.
	ErrOutOfRange = errors.New("residual out of range for column width")

	// ErrSchemaMismatch is returned when a declared schema does not match
	// the stream being decoded.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrTruncated is returned by the V1 row iterator when the bit buffer
	// ends partway through a row.
	ErrTruncated = errors.New("truncated row")

	// ErrPoisoned is returned by any further read from a decoder that has
	// already returned an error once.
	ErrPoisoned = errors.New("decoder poisoned by previous error")
)
