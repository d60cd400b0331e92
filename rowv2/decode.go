package rowv2

import (
	"fmt"

	"github.com/qsib-cbie/tsz-sub000/errs"
	"github.com/qsib-cbie/tsz-sub000/group"
	"github.com/qsib-cbie/tsz-sub000/internal/arith"
	"github.com/qsib-cbie/tsz-sub000/nibble"
	"github.com/qsib-cbie/tsz-sub000/schema"
)

// minGroupNibbles is the smallest possible tag+payload size (a 1-sample,
// 32-bit group): any run of fewer nibbles left in the stream can only be
// the single alignment-padding nibble from Finish, never a real group.
const minGroupNibbles = 9

// Result is the materialized output of decoding a V2 byte stream: one
// column vector per schema column, plus a row-rotation view over them
// (spec §4.9).
type Result struct {
	schema  schema.Schema
	columns [][]uint64 // raw two's-complement words, one slice per column
}

// Rows returns the number of rows materialized (0 if the stream was
// empty).
func (r *Result) Rows() int {
	if len(r.columns) == 0 {
		return 0
	}
	return len(r.columns[0])
}

// ColumnInt returns column i's values interpreted as signed integers.
func (r *Result) ColumnInt(i int) []int64 {
	out := make([]int64, len(r.columns[i]))
	for j, v := range r.columns[i] {
		out[j] = int64(v)
	}
	return out
}

// ColumnUint returns column i's values interpreted as unsigned integers.
func (r *Result) ColumnUint(i int) []uint64 {
	return append([]uint64(nil), r.columns[i]...)
}

// Row materializes row i by indexing every column vector at position i.
func (r *Result) Row(i int) schema.Row {
	row := make(schema.Row, len(r.columns))
	for c := range r.columns {
		row[c] = r.columns[c][i]
	}
	return row
}

// signExtendRaw turns a zero-extended w-bit field read off the wire back
// into the schema's raw two's-complement word convention: signed columns
// are sign-extended to the full 64 bits, unsigned columns are returned
// unchanged (they are already the correct zero-extended word).
func signExtendRaw(raw uint64, w int, signed bool) uint64 {
	if !signed || w >= 64 {
		return raw
	}
	shift := uint(64 - w)
	return uint64(int64(raw<<shift) >> shift)
}

// Decompress decodes a complete V2 byte stream produced by Compressor for
// schema s.
func Decompress(s schema.Schema, data []byte) (*Result, error) {
	if len(data) == 0 {
		columns := make([][]uint64, len(s.Columns))
		for i := range columns {
			columns[i] = []uint64{}
		}
		return &Result{schema: s, columns: columns}, nil
	}

	src := nibble.NewSource(data)
	columns := make([][]uint64, len(s.Columns))

	for i, col := range s.Columns {
		if i > 0 {
			sep, ok := src.ReadNibble()
			if !ok {
				return nil, fmt.Errorf("%w: missing column separator before %q", errs.ErrNotEnoughBits, col.Name)
			}
			if sep != nibble.StartOfColumn {
				return nil, fmt.Errorf("%w: expected column separator before %q, got %04b", errs.ErrInvalidTag, col.Name, sep)
			}
		}

		rows, err := decodeColumn(src, col, i == len(s.Columns)-1)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		columns[i] = rows
	}

	return &Result{schema: s, columns: columns}, nil
}

func decodeColumn(src *nibble.Source, col schema.Column, isLast bool) ([]uint64, error) {
	pipelineTag, ok := src.ReadNibble()
	if !ok {
		return nil, errs.ErrNotEnoughBits
	}
	if pipelineTag != group.PipelineDelta && pipelineTag != group.PipelineDeltaDelta {
		return nil, fmt.Errorf("%w: unknown pipeline marker %04b", errs.ErrInvalidTag, pipelineTag)
	}

	w := col.Kind.Width()
	raw, ok := src.ReadNibblesLE(w / 4)
	if !ok {
		return nil, errs.ErrNotEnoughBits
	}
	lead := signExtendRaw(raw, w, col.Kind.Signed())
	if !col.Fits(lead) {
		return nil, fmt.Errorf("%w: row 0 value exceeds column width", errs.ErrOverflow)
	}

	tag0, ok := src.ReadNibble()
	if !ok {
		return nil, errs.ErrNotEnoughBits
	}
	first, err := group.Decode(src, tag0)
	if err != nil {
		return nil, err
	}
	if len(first) != 1 {
		return nil, fmt.Errorf("%w: row-1 delta group carried %d samples, want 1", errs.ErrInvalidTag, len(first))
	}

	prevPrevRaw := int64(lead)
	prevRaw := prevPrevRaw + arith.ZigZagDecode64(first[0])
	if !col.Fits(uint64(prevRaw)) {
		return nil, fmt.Errorf("%w: row 1 reconstruction exceeds column width", errs.ErrOverflow)
	}

	rows := []uint64{lead, uint64(prevRaw)}

	for {
		if src.Exhausted() {
			break
		}
		if isLast && src.Remaining() < minGroupNibbles {
			break
		}

		peeked, ok := src.PeekNibble()
		if !ok {
			break
		}
		if peeked == nibble.StartOfColumn {
			break
		}

		tag, _ := src.ReadNibble()
		values, err := group.Decode(src, tag)
		if err != nil {
			return nil, err
		}

		for _, z := range values {
			d := arith.ZigZagDecode64(z)

			var next int64
			if pipelineTag == group.PipelineDelta {
				next = prevRaw + d
			} else {
				next = prevRaw + (prevRaw - prevPrevRaw) + d
			}
			if !col.Fits(uint64(next)) {
				return nil, fmt.Errorf("%w: reconstruction exceeds column width", errs.ErrOverflow)
			}

			rows = append(rows, uint64(next))
			prevPrevRaw = prevRaw
			prevRaw = next
		}
	}

	return rows, nil
}
