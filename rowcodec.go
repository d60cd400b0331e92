// Package rowcodec provides convenient top-level wrappers around the
// columnar delta/delta-delta row compression engines.
//
// Two engines are available, chosen by Engine:
//
//   - V1 is row-oriented: each row is written and read one at a time,
//     decoding lazily via an iterator. Best when rows are consumed as they
//     arrive and random access into the compressed stream is not needed.
//   - V2 is column-oriented: the whole stream is decoded at once into
//     per-column vectors plus a row-rotation view, racing independent
//     delta and delta-delta pipelines per column and keeping whichever
//     produced less output. Best for batch decode of a complete stream
//     where per-column access or better compression matters more than
//     streaming decode.
//
// Either engine's output may optionally be run through a second-stage
// byte-level compressor (see the compress subpackage) before being sent
// over the air; this package does not do that wrapping itself, since
// whether it is worthwhile depends on the transport and payload in ways
// the core has no visibility into.
//
// Example:
//
//	s := schema.New(schema.Column{Name: "hr", Kind: schema.U16})
//	c := rowcodec.NewCompressor(s, rowcodec.V2)
//	for _, v := range samples {
//	    row := schema.NewRow(s)
//	    row.SetUint(0, v)
//	    if err := c.Push(row); err != nil {
//	        return err
//	    }
//	}
//	data, err := c.Finish()
package rowcodec

import (
	"fmt"
	"sync/atomic"

	"github.com/qsib-cbie/tsz-sub000/errs"
	"github.com/qsib-cbie/tsz-sub000/rowv1"
	"github.com/qsib-cbie/tsz-sub000/rowv2"
	"github.com/qsib-cbie/tsz-sub000/schema"
)

// Engine selects which compression engine a Compressor/Decompressor uses.
type Engine int

const (
	// V1 is the row-oriented prefix-coded bit stream engine.
	V1 Engine = iota + 1
	// V2 is the column-oriented nibble-grouped engine.
	V2
)

func (e Engine) String() string {
	switch e {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return "invalid"
	}
}

// Compressor wraps one engine's compressor behind a single interface.
type Compressor struct {
	engine Engine
	v1     *rowv1.Compressor
	v2     *rowv2.Compressor
}

// NewCompressor creates a Compressor for schema s using the given engine.
// v2Opts is forwarded to rowv2.NewCompressor and ignored for V1.
func NewCompressor(s schema.Schema, engine Engine, v2Opts ...rowv2.Option) *Compressor {
	c := &Compressor{engine: engine}
	switch engine {
	case V1:
		c.v1 = rowv1.NewCompressor(s)
	case V2:
		c.v2 = rowv2.NewCompressor(s, v2Opts...)
	}
	return c
}

// Push encodes one row.
func (c *Compressor) Push(row schema.Row) error {
	switch c.engine {
	case V1:
		return c.v1.Push(row)
	case V2:
		return c.v2.Push(row)
	default:
		return fmt.Errorf("rowcodec: invalid engine %v", c.engine)
	}
}

// Len returns the compressed size in bits so far.
func (c *Compressor) Len() int {
	switch c.engine {
	case V1:
		return c.v1.Len()
	case V2:
		return c.v2.Len()
	default:
		return 0
	}
}

// BitRate returns the running average bits emitted per column value.
func (c *Compressor) BitRate() float64 {
	switch c.engine {
	case V1:
		return c.v1.BitRate()
	case V2:
		return c.v2.BitRate()
	default:
		return 0
	}
}

// Finish consumes the compressor and returns the finished byte stream.
// For V1 this always succeeds; for V2 it returns (nil, nil) if no row was
// pushed and errors if exactly one row was pushed (see
// rowv2.Compressor.Finish).
func (c *Compressor) Finish() ([]byte, error) {
	switch c.engine {
	case V1:
		return c.v1.Finish(), nil
	case V2:
		return c.v2.Finish()
	default:
		return nil, fmt.Errorf("rowcodec: invalid engine %v", c.engine)
	}
}

// Rows is the decoded output of a V2 stream: per-column vectors plus a
// row-rotation view, matching rowv2.Result.
type Rows = rowv2.Result

// Decompressor wraps one engine's decompressor behind a single interface.
// V1 decodes lazily via Next; V2 decodes eagerly and exposes Result.
type Decompressor struct {
	engine Engine
	v1     *rowv1.Decompressor
	v2     *Rows
}

// DecompressOption configures NewDecompressor.
type DecompressOption func(*decompressConfig)

type decompressConfig struct {
	expectedFingerprint *uint64
}

// WithExpectedFingerprint makes NewDecompressor verify that s's
// Fingerprint matches fp before decoding, returning errs.ErrSchemaMismatch
// if not. The wire format carries no schema metadata of its own (spec
// §4.9, §6), so this is how a caller pins the schema a stream was
// compressed against without re-transmitting the column list.
func WithExpectedFingerprint(fp uint64) DecompressOption {
	return func(c *decompressConfig) { c.expectedFingerprint = &fp }
}

// NewDecompressor constructs a Decompressor for schema s over data,
// encoded by the given engine. V2 decodes the entire stream immediately;
// any error is returned here rather than from a later call.
func NewDecompressor(s schema.Schema, engine Engine, data []byte, opts ...DecompressOption) (*Decompressor, error) {
	var cfg decompressConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.expectedFingerprint != nil {
		if got := s.Fingerprint(); got != *cfg.expectedFingerprint {
			return nil, fmt.Errorf("%w: schema fingerprint %016x != expected %016x", errs.ErrSchemaMismatch, got, *cfg.expectedFingerprint)
		}
	}

	switch engine {
	case V1:
		return &Decompressor{engine: engine, v1: rowv1.NewDecompressor(s, data)}, nil
	case V2:
		res, err := rowv2.Decompress(s, data)
		if err != nil {
			return nil, err
		}
		return &Decompressor{engine: engine, v2: res}, nil
	default:
		return nil, fmt.Errorf("rowcodec: invalid engine %v", engine)
	}
}

// Next returns the next row for a V1 decompressor, or (nil, nil) once the
// stream is exhausted. Next panics if called on a V2 decompressor — use
// Result instead, since V2 decodes the whole stream up front.
func (d *Decompressor) Next() (schema.Row, error) {
	if d.engine != V1 {
		panic("rowcodec: Next is only valid for the V1 engine; use Result for V2")
	}
	return d.v1.Next()
}

// Result returns the decoded column vectors and row-rotation view for a
// V2 decompressor. Result panics if called on a V1 decompressor.
func (d *Decompressor) Result() *Rows {
	if d.engine != V2 {
		panic("rowcodec: Result is only valid for the V2 engine; use Next for V1")
	}
	return d.v2
}

// initialized guards the one-shot allocator hook below.
var initialized atomic.Bool

// Init is the process-wide allocator hook for [heapBase, heapBase+heapSize).
// It installs no allocator: Go programs always run with the runtime's own
// garbage-collected heap, so heapBase and heapSize are ignored. It only
// sets a compare-and-swap-guarded flag, preserving the contract a caller
// porting code from the bare-metal original might expect: idempotent, and
// it returns true for the first call only.
func Init(heapBase, heapSize uintptr) bool {
	return initialized.CompareAndSwap(false, true)
}
