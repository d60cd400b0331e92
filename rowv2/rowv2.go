// Package rowv2 implements the column-oriented V2 compression engine
// (spec §4.8, §4.9): per-column delta and delta-delta pipelines race
// against each other, the loser is culled, and the survivor's
// nibble-aligned groups are concatenated into one byte stream.
package rowv2

import (
	"fmt"

	"github.com/qsib-cbie/tsz-sub000/errs"
	"github.com/qsib-cbie/tsz-sub000/group"
	"github.com/qsib-cbie/tsz-sub000/internal/arith"
	"github.com/qsib-cbie/tsz-sub000/nibble"
	"github.com/qsib-cbie/tsz-sub000/queue"
	"github.com/qsib-cbie/tsz-sub000/schema"
)

// DefaultCullFactor is the race-and-cull threshold suggested by spec
// §4.8: a pipeline is dropped once its own output exceeds its sibling's
// by more than this factor.
const DefaultCullFactor = 5

// Option configures a Compressor.
type Option func(*config)

type config struct {
	cullFactor int
}

// WithCullFactor overrides the race-and-cull threshold.
func WithCullFactor(n int) Option {
	return func(c *config) { c.cullFactor = n }
}

type pipeline struct {
	queue     *queue.Queue
	nb        *nibble.Sink
	abandoned bool
}

func newPipeline() *pipeline {
	return &pipeline{queue: queue.New(queue.DefaultCapacity), nb: nibble.NewSink()}
}

type columnState struct {
	col          schema.Column
	rowCount     int
	prevRaw      int64
	prevPrevRaw  int64
	preamble     *nibble.Sink
	delta        *pipeline
	deltaDelta   *pipeline
}

func newColumnState(col schema.Column) *columnState {
	return &columnState{
		col:        col,
		preamble:   nibble.NewSink(),
		delta:      newPipeline(),
		deltaDelta: newPipeline(),
	}
}

func allow64(col schema.Column) bool {
	return col.Kind.Width() >= 32
}

// Compressor encodes a sequence of rows conforming to one Schema into the
// V2 columnar byte stream.
type Compressor struct {
	schema   schema.Schema
	cols     []*columnState
	cfg      config
	rowCount int
}

// NewCompressor creates a Compressor for s.
func NewCompressor(s schema.Schema, opts ...Option) *Compressor {
	cfg := config{cullFactor: DefaultCullFactor}
	for _, o := range opts {
		o(&cfg)
	}

	cols := make([]*columnState, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = newColumnState(c)
	}

	return &Compressor{schema: s, cols: cols, cfg: cfg}
}

// Push encodes one row.
func (c *Compressor) Push(row schema.Row) error {
	if err := c.schema.ValidateRow(row); err != nil {
		return err
	}

	for i, col := range c.schema.Columns {
		cs := c.cols[i]
		raw := row.Int(i)

		switch cs.rowCount {
		case 0:
			w := col.Kind.Width()
			cs.preamble.WriteNibblesLE(uint64(raw)&widthMask(w), w/4)
			cs.prevRaw = raw

		case 1:
			delta, ok := arith.Sub64(raw, cs.prevRaw)
			if !ok {
				return fmt.Errorf("%w: column %q row-1 delta overflows int64", errs.ErrOverflow, col.Name)
			}
			z := arith.ZigZagEncode64(delta)
			shape, ok := group.Select([]int{bitWidth(z)}, allow64(col))
			if !ok {
				return fmt.Errorf("%w: column %q row-1 delta has no fitting group", errs.ErrOutOfRange, col.Name)
			}
			group.Encode(cs.preamble, shape, []uint64{z})
			cs.prevPrevRaw = cs.prevRaw
			cs.prevRaw = raw

		default:
			d1, ok1 := arith.Sub64(raw, cs.prevRaw)
			d0, ok0 := arith.Sub64(cs.prevRaw, cs.prevPrevRaw)
			dd, ok2 := arith.Sub64(d1, d0)
			if !ok0 || !ok1 || !ok2 {
				return fmt.Errorf("%w: column %q residual overflows int64", errs.ErrOverflow, col.Name)
			}

			if err := pushResidual(cs.delta, arith.ZigZagEncode64(d1), col); err != nil {
				return err
			}
			if err := pushResidual(cs.deltaDelta, arith.ZigZagEncode64(dd), col); err != nil {
				return err
			}
			raceAndCull(cs, c.cfg.cullFactor)

			cs.prevPrevRaw = cs.prevRaw
			cs.prevRaw = raw
		}

		cs.rowCount++
	}

	c.rowCount++
	return nil
}

// Len returns an estimate of the compressed size in bits so far: exact for
// every already-emitted group, approximate (zero) for samples still
// sitting in a pipeline's queue awaiting enough siblings to form a group
// (spec §6's "estimate of compressed size so far").
func (c *Compressor) Len() int {
	bits := 0
	for _, cs := range c.cols {
		bits += cs.preamble.Len() * 4
		winner, _ := chooseWinner(cs)
		bits += winner.nb.Len() * 4
	}
	return bits
}

// BitRate returns the running average bits emitted per column value.
func (c *Compressor) BitRate() float64 {
	values := c.rowCount * len(c.schema.Columns)
	if values == 0 {
		return 0
	}
	return float64(c.Len()) / float64(values)
}

func widthMask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(w) - 1
}

func bitWidth(v uint64) int {
	n := 0
	for v != 0 {
		n++
		v >>= 1
	}
	return n
}

// pushResidual feeds one zigzag-encoded residual into p's queue, emitting
// a best-fit group whenever the queue reaches capacity.
func pushResidual(p *pipeline, z uint64, col schema.Column) error {
	if p.abandoned {
		return nil
	}

	p.queue.Push(z)
	if p.queue.Len() != queue.DefaultCapacity {
		return nil
	}

	return emitOneGroup(p, col, queue.DefaultCapacity)
}

func emitOneGroup(p *pipeline, col schema.Column, avail int) error {
	widths, ok := p.queue.PeekBitcounts(avail)
	if !ok {
		return fmt.Errorf("%w: column %q queue underrun selecting a group", errs.ErrOutOfRange, col.Name)
	}

	shape, ok := group.Select(widths, allow64(col))
	if !ok {
		return fmt.Errorf("%w: column %q residual has no fitting group", errs.ErrOutOfRange, col.Name)
	}

	values, _ := p.queue.PeekValues(shape.Samples)
	group.Encode(p.nb, shape, values)
	p.queue.PopN(shape.Samples)
	return nil
}

// raceAndCull compares the two pipelines' accumulated output sizes and
// abandons whichever has fallen behind by more than cullFactor (spec
// §4.8). Once a pipeline is abandoned its queue is simply left to be
// garbage collected; nothing further is pushed into it.
func raceAndCull(cs *columnState, cullFactor int) {
	if cs.delta.abandoned || cs.deltaDelta.abandoned {
		return
	}

	dSize := cs.delta.nb.Len()
	ddSize := cs.deltaDelta.nb.Len()
	if dSize == 0 || ddSize == 0 {
		return
	}

	if dSize > ddSize*cullFactor {
		cs.delta.abandoned = true
	} else if ddSize > dSize*cullFactor {
		cs.deltaDelta.abandoned = true
	}
}

// Finish drains every column's surviving pipeline and concatenates the
// whole columnar stream, inserting the start-of-column sentinel between
// columns. Finish returns (nil, nil) if no row was pushed, and an error if
// exactly one row was pushed, since the V2 wire format requires at least a
// row-0 full value and a row-1 delta group per column.
func (c *Compressor) Finish() ([]byte, error) {
	if c.rowCount == 0 {
		return nil, nil
	}
	if c.rowCount == 1 {
		return nil, fmt.Errorf("rowv2: at least 2 rows are required, got 1")
	}

	out := nibble.NewSink()
	for i, cs := range c.cols {
		if i > 0 {
			out.WriteNibble(nibble.StartOfColumn)
		}

		winner, tag := chooseWinner(cs)
		if err := drain(winner, cs.col); err != nil {
			return nil, err
		}

		out.WriteNibble(tag)
		cs.preamble.AppendTo(out)
		winner.nb.AppendTo(out)
	}

	return out.Bytes(), nil
}

func chooseWinner(cs *columnState) (*pipeline, uint8) {
	if cs.deltaDelta.abandoned {
		return cs.delta, group.PipelineDelta
	}
	if cs.delta.abandoned {
		return cs.deltaDelta, group.PipelineDeltaDelta
	}
	if cs.deltaDelta.nb.Len() < cs.delta.nb.Len() {
		return cs.deltaDelta, group.PipelineDeltaDelta
	}
	return cs.delta, group.PipelineDelta
}

// drain flushes a pipeline's remaining queued residuals, allowing
// shorter-than-capacity groups (spec §4.8's finish-time flush).
func drain(p *pipeline, col schema.Column) error {
	for p.queue.Len() > 0 {
		avail := p.queue.Len()
		if avail > queue.DefaultCapacity {
			avail = queue.DefaultCapacity
		}
		if err := emitOneGroup(p, col, avail); err != nil {
			return err
		}
	}
	return nil
}
