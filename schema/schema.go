// Package schema describes the typed, ordered row layout that the codec
// packages assume has already been agreed between producer and consumer.
//
// The schema itself carries no runtime framing: it is not written into the
// compressed stream (spec §3, §6). A decoder must be constructed with the
// same Schema the encoder used. Schema.Fingerprint lets a caller detect a
// mismatch cheaply without re-transmitting the column list.
package schema

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/qsib-cbie/tsz-sub000/errs"
)

// Kind identifies the declared bit width and signedness of a column.
type Kind uint8

const (
	I8 Kind = iota + 1
	I16
	I32
	I64
	U8
	U16
	U32
	U64
)

// Width returns the declared bit width of the kind: 8, 16, 32, or 64.
func (k Kind) Width() int {
	switch k {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32:
		return 32
	case I64, U64:
		return 64
	default:
		return 0
	}
}

// Signed reports whether the kind is a signed integer type.
func (k Kind) Signed() bool {
	switch k {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	default:
		return "invalid"
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= I8 && k <= U64
}

// Column is a single named, typed field within a Row.
type Column struct {
	Name string
	Kind Kind
}

// Schema is the fixed, ordered tuple of columns a Row conforms to.
//
// A Schema is immutable once constructed and safe for concurrent read-only
// use by multiple compressors/decompressors.
type Schema struct {
	Columns []Column
}

// New constructs a Schema from an ordered column list.
func New(columns ...Column) Schema {
	return Schema{Columns: columns}
}

// Len returns the number of columns in the schema.
func (s Schema) Len() int {
	return len(s.Columns)
}

// Validate checks that every column has a valid kind and a non-empty name.
func (s Schema) Validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema: no columns declared")
	}

	for i, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("schema: column %d has empty name", i)
		}
		if !c.Kind.Valid() {
			return fmt.Errorf("schema: column %q has invalid kind %d", c.Name, c.Kind)
		}
	}

	return nil
}

// Fingerprint returns a deterministic 64-bit hash of the column name/kind
// sequence, used by decoders to detect a schema mismatch against the schema
// an encoder actually used. The compressed stream itself carries no schema
// metadata, so this is an out-of-band check a caller opts into.
func (s Schema) Fingerprint() uint64 {
	var buf []byte
	for _, c := range s.Columns {
		buf = append(buf, c.Name...)
		buf = append(buf, 0, byte(c.Kind))
	}

	return xxhash.Sum64(buf)
}

// Row is one tuple of column values, stored as the raw 64-bit two's
// complement bit pattern of each column's logical value.
//
// For a signed column the stored word is the sign-extended int64 bit
// pattern of the value. For an unsigned column the stored word is the
// zero-extended uint64 value. Subtracting two raw words with ordinary
// int64 arithmetic yields the correct signed residual regardless of the
// column's declared signedness, because two's complement subtraction is
// identical whether the operands are considered signed or unsigned.
type Row []uint64

// NewRow allocates a zeroed row sized for the schema.
func NewRow(s Schema) Row {
	return make(Row, len(s.Columns))
}

// SetInt stores a signed logical value into column i.
func (r Row) SetInt(i int, v int64) {
	r[i] = uint64(v)
}

// SetUint stores an unsigned logical value into column i.
func (r Row) SetUint(i int, v uint64) {
	r[i] = v
}

// Int returns the logical signed value stored at column i.
func (r Row) Int(i int) int64 {
	return int64(r[i])
}

// Uint returns the logical unsigned value stored at column i.
func (r Row) Uint(i int) uint64 {
	return r[i]
}

// Fits reports whether the raw word at column i is representable within
// the column's declared width/signedness, i.e. whether it is a value an
// honest producer of this schema could have emitted.
func (c Column) Fits(raw uint64) bool {
	w := c.Kind.Width()
	if w == 64 {
		return true
	}

	if c.Kind.Signed() {
		v := int64(raw)
		lo := int64(-1) << (w - 1)
		hi := (int64(1) << (w - 1)) - 1
		return v >= lo && v <= hi
	}

	hi := (uint64(1) << w) - 1
	return raw <= hi
}

// ValidateRow checks that row has exactly len(s.Columns) values and that
// each value fits its column's declared width/signedness.
func (s Schema) ValidateRow(row Row) error {
	if len(row) != len(s.Columns) {
		return fmt.Errorf("%w: row has %d columns, schema has %d", errs.ErrSchemaMismatch, len(row), len(s.Columns))
	}

	for i, c := range s.Columns {
		if !c.Fits(row[i]) {
			return fmt.Errorf("%w: column %q value does not fit %s", errs.ErrOutOfRange, c.Name, c.Kind)
		}
	}

	return nil
}
