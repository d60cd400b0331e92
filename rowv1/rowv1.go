// Package rowv1 implements the row-oriented V1 compression engine: a
// per-sample delta/delta-delta prefix-coded bit stream (spec §4.6, §4.7).
//
// A Compressor keeps exactly two rows of history and advances through the
// Empty -> One -> Two+ state machine described by the spec, emitting all
// columns of the current row in declared order before moving on. A
// Decompressor is a lazy iterator that mirrors the same state machine.
package rowv1

import (
	"errors"
	"fmt"
	"math"

	"github.com/qsib-cbie/tsz-sub000/bitio"
	"github.com/qsib-cbie/tsz-sub000/errs"
	"github.com/qsib-cbie/tsz-sub000/internal/arith"
	"github.com/qsib-cbie/tsz-sub000/prefix"
	"github.com/qsib-cbie/tsz-sub000/schema"
	"github.com/qsib-cbie/tsz-sub000/varint"
)

type state int

const (
	stateEmpty state = iota
	stateOne
	stateTwoPlus
)

// Compressor encodes a sequence of rows conforming to one Schema.
type Compressor struct {
	schema   schema.Schema
	sink     *bitio.Sink
	state    state
	prev     schema.Row
	prevPrev schema.Row
	rowCount int
}

// NewCompressor creates a Compressor for s.
func NewCompressor(s schema.Schema) *Compressor {
	return &Compressor{schema: s, sink: bitio.NewSink()}
}

// Push encodes one row, advancing the state machine.
func (c *Compressor) Push(row schema.Row) error {
	if err := c.schema.ValidateRow(row); err != nil {
		return err
	}

	switch c.state {
	case stateEmpty:
		for i, col := range c.schema.Columns {
			writeLead(c.sink, col, row[i])
		}
		c.prev = append(schema.Row(nil), row...)
		c.state = stateOne

	case stateOne:
		for i, col := range c.schema.Columns {
			delta, ok := arith.Sub64(row.Int(i), c.prev.Int(i))
			if !ok {
				return fmt.Errorf("%w: column %q delta overflows int64", errs.ErrOverflow, col.Name)
			}
			if err := prefix.Write(c.sink, col.Kind.Width(), delta); err != nil {
				return fmt.Errorf("column %q: %w", col.Name, err)
			}
		}
		c.prevPrev = c.prev
		c.prev = append(schema.Row(nil), row...)
		c.state = stateTwoPlus

	case stateTwoPlus:
		for i, col := range c.schema.Columns {
			d1, ok1 := arith.Sub64(row.Int(i), c.prev.Int(i))
			d0, ok0 := arith.Sub64(c.prev.Int(i), c.prevPrev.Int(i))
			dd, ok2 := arith.Sub64(d1, d0)
			if !ok1 || !ok0 || !ok2 {
				return fmt.Errorf("%w: column %q delta-delta overflows int64", errs.ErrOverflow, col.Name)
			}
			if err := prefix.Write(c.sink, col.Kind.Width(), dd); err != nil {
				return fmt.Errorf("column %q: %w", col.Name, err)
			}
		}
		c.prevPrev = c.prev
		c.prev = append(schema.Row(nil), row...)
	}

	c.rowCount++
	return nil
}

// Len returns the total number of bits emitted so far.
func (c *Compressor) Len() int {
	return c.sink.Len()
}

// BitRate returns the running average bits emitted per column value.
func (c *Compressor) BitRate() float64 {
	values := c.rowCount * len(c.schema.Columns)
	if values == 0 {
		return 0
	}
	return float64(c.sink.Len()) / float64(values)
}

// Finish returns the accumulated bit buffer as bytes.
func (c *Compressor) Finish() []byte {
	return c.sink.Bytes()
}

func writeLead(sink *bitio.Sink, col schema.Column, raw uint64) {
	var encoded []byte
	if col.Kind.Signed() {
		encoded = varint.AppendSvarint(nil, int64(raw))
	} else {
		encoded = varint.AppendUvarint(nil, raw)
	}
	for _, b := range encoded {
		sink.WriteBits(uint64(b), 8)
	}
}

// Decompressor is a lazy row iterator over a V1 byte stream.
type Decompressor struct {
	schema   schema.Schema
	src      *bitio.Source
	state    state
	prev     schema.Row
	prevPrev schema.Row
	err      error
}

// NewDecompressor creates a Decompressor for s over data.
func NewDecompressor(s schema.Schema, data []byte) *Decompressor {
	return &Decompressor{schema: s, src: bitio.NewSource(data)}
}

// Next decodes and returns the next row. It returns (nil, nil) when the
// stream is cleanly exhausted between rows. Running out of bits partway
// through a row is reported as errs.ErrTruncated; other decode errors
// (Overflow, InvalidEncoding) are returned as they are. Any error poisons
// the Decompressor: every subsequent call returns errs.ErrPoisoned.
func (d *Decompressor) Next() (schema.Row, error) {
	if d.err != nil {
		return nil, errs.ErrPoisoned
	}

	if d.src.Exhausted() {
		return nil, nil
	}

	row, err := d.decodeOne()
	if err != nil {
		d.err = err
		return nil, err
	}

	return row, nil
}

func (d *Decompressor) decodeOne() (schema.Row, error) {
	row := schema.NewRow(d.schema)

	switch d.state {
	case stateEmpty:
		for i, col := range d.schema.Columns {
			v, err := readLead(d.src, col)
			if err != nil {
				return nil, classifyDecodeErr(err)
			}
			row[i] = v
		}
		d.prev = append(schema.Row(nil), row...)
		d.state = stateOne

	case stateOne:
		for i, col := range d.schema.Columns {
			delta, err := prefix.Read(d.src, col.Kind.Width())
			if err != nil {
				return nil, classifyDecodeErr(err)
			}
			row.SetInt(i, d.prev.Int(i)+delta)
		}
		d.prevPrev = d.prev
		d.prev = append(schema.Row(nil), row...)
		d.state = stateTwoPlus

	case stateTwoPlus:
		for i, col := range d.schema.Columns {
			dd, err := prefix.Read(d.src, col.Kind.Width())
			if err != nil {
				return nil, classifyDecodeErr(err)
			}
			prevDelta := d.prev.Int(i) - d.prevPrev.Int(i)
			row.SetInt(i, d.prev.Int(i)+prevDelta+dd)
		}
		d.prevPrev = d.prev
		d.prev = append(schema.Row(nil), row...)
	}

	return row, nil
}

// classifyDecodeErr wraps a bare NotEnoughBits error as Truncated (spec
// §4.7: "a partially consumed row reports Truncated"), and passes any
// other decode error (Overflow, InvalidEncoding) through unchanged.
func classifyDecodeErr(err error) error {
	if errors.Is(err, errs.ErrNotEnoughBits) {
		return fmt.Errorf("%w: %v", errs.ErrTruncated, err)
	}
	return err
}

func readLead(src *bitio.Source, col schema.Column) (uint64, error) {
	var raw uint64
	if col.Kind.Signed() {
		v, err := readSvlq(src)
		if err != nil {
			return 0, err
		}
		raw = uint64(v)
	} else {
		v, err := readUvlq(src)
		if err != nil {
			return 0, err
		}
		raw = v
	}

	if !col.Fits(raw) {
		return 0, fmt.Errorf("%w: lead value for column %q exceeds declared width", errs.ErrOverflow, col.Name)
	}
	return raw, nil
}

func readUvlq(src *bitio.Source) (uint64, error) {
	var value uint64
	var shift uint
	for {
		b, ok := src.ReadBits(8)
		if !ok {
			return 0, errs.ErrNotEnoughBits
		}
		if shift >= 64 {
			return 0, errs.ErrNotEnoughBits
		}
		value |= (b & 0x7F) << shift
		if b < 0x80 {
			return value, nil
		}
		shift += 7
	}
}

func readSvlq(src *bitio.Source) (int64, error) {
	b0, ok := src.ReadBits(8)
	if !ok {
		return 0, errs.ErrNotEnoughBits
	}

	sign := b0&0x80 != 0
	cont := b0&0x40 != 0
	mag := b0 & 0x3F

	if cont {
		var shift uint = 6
		for {
			b, ok := src.ReadBits(8)
			if !ok {
				return 0, errs.ErrNotEnoughBits
			}
			if shift >= 70 {
				return 0, errs.ErrNotEnoughBits
			}
			mag |= (b & 0x7F) << shift
			if b < 0x80 {
				break
			}
			shift += 7
		}
	}

	if sign {
		if mag == 1<<63 {
			return math.MinInt64, nil
		}
		return -int64(mag), nil
	}
	return int64(mag), nil
}
