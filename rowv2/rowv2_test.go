package rowv2

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsib-cbie/tsz-sub000/schema"
)

func testSchema() schema.Schema {
	return schema.New(
		schema.Column{Name: "a", Kind: schema.I16},
		schema.Column{Name: "b", Kind: schema.U8},
	)
}

func pushAll(t *testing.T, c *Compressor, s schema.Schema, values [][]int64) {
	t.Helper()
	for _, v := range values {
		row := schema.NewRow(s)
		for i, col := range s.Columns {
			if col.Kind.Signed() {
				row.SetInt(i, v[i])
			} else {
				row.SetUint(i, uint64(v[i]))
			}
		}
		require.NoError(t, c.Push(row))
	}
}

func requireRoundTrip(t *testing.T, s schema.Schema, values [][]int64) {
	t.Helper()
	c := NewCompressor(s)
	pushAll(t, c, s, values)

	data, err := c.Finish()
	require.NoError(t, err)
	require.Zero(t, len(data)%1, "sanity: byte slice")

	res, err := Decompress(s, data)
	require.NoError(t, err)
	require.Equal(t, len(values), res.Rows())

	for i, col := range s.Columns {
		got := res.ColumnUint(i)
		require.Len(t, got, len(values))
		for r, want := range values {
			if col.Kind.Signed() {
				assert.EqualValues(t, want[i], int64(got[r]), "col %d row %d", i, r)
			} else {
				assert.EqualValues(t, want[i], got[r], "col %d row %d", i, r)
			}
		}
	}
}

func TestRoundTripConstantStream(t *testing.T) {
	s := testSchema()
	var values [][]int64
	for i := 0; i < 200; i++ {
		values = append(values, []int64{42, 42})
	}
	requireRoundTrip(t, s, values)
}

func TestRoundTripRamp(t *testing.T) {
	s := testSchema()
	var values [][]int64
	for i := 0; i < 60; i++ {
		values = append(values, []int64{int64(i * 5), int64(i % 200)})
	}
	requireRoundTrip(t, s, values)
}

func TestRoundTripStepFunction(t *testing.T) {
	s := schema.New(schema.Column{Name: "v", Kind: schema.I32})
	raw := []int64{0, 0, 0, 0, 0, 1000, 1000, 1000, 1000, 1000}
	var values [][]int64
	for _, v := range raw {
		values = append(values, []int64{v})
	}
	requireRoundTrip(t, s, values)
}

func TestRoundTripNegativeValues(t *testing.T) {
	s := schema.New(schema.Column{Name: "v", Kind: schema.I16})
	raw := []int64{100, -5000, 32767, -32768, 0, 1, -1, -2, 17000 - 32768}
	var values [][]int64
	for _, v := range raw {
		values = append(values, []int64{v})
	}
	requireRoundTrip(t, s, values)
}

func TestRoundTripI8DeltaDelta(t *testing.T) {
	s := schema.New(schema.Column{Name: "v", Kind: schema.I8})
	raw := []int64{-128, -100, -50, 0, 1, 2, 4, 8, 16, 32, 64, 127, 100, -128}
	var values [][]int64
	for _, v := range raw {
		values = append(values, []int64{v})
	}
	requireRoundTrip(t, s, values)
}

func TestRoundTripCrossBucketStress(t *testing.T) {
	s := schema.New(schema.Column{Name: "v", Kind: schema.I16})
	rng := rand.New(rand.NewSource(1))

	var values [][]int64
	cur := int64(0)
	for i := 0; i < 2000; i++ {
		cur += int64(rng.Intn(21) - 10)
		if cur > 32767 {
			cur = 32767
		}
		if cur < -32768 {
			cur = -32768
		}
		values = append(values, []int64{cur})
	}
	requireRoundTrip(t, s, values)
}

func TestRaceAndCullPicksCheaperPipeline(t *testing.T) {
	// A pure monotonic ramp has zero delta-delta residual throughout
	// (10x3 groups) while every delta is 7 (8x4 groups), so the
	// delta-delta pipeline's output is the smaller one and it must never
	// be the pipeline that gets culled. Its lead (about 1.25x) stays below
	// a cull factor of 2, so the delta pipeline need not be culled either.
	s := schema.New(schema.Column{Name: "v", Kind: schema.I32})
	c := NewCompressor(s, WithCullFactor(2))

	for i := 0; i < 100; i++ {
		row := schema.NewRow(s)
		row.SetInt(0, int64(i*7))
		require.NoError(t, c.Push(row))
	}

	assert.True(t, c.cols[0].delta.abandoned || !c.cols[0].deltaDelta.abandoned)

	data, err := c.Finish()
	require.NoError(t, err)

	res, err := Decompress(s, data)
	require.NoError(t, err)
	require.Equal(t, 100, res.Rows())
	for i, v := range res.ColumnInt(0) {
		assert.EqualValues(t, i*7, v)
	}
}

func TestEmptyStreamYieldsNoRows(t *testing.T) {
	s := testSchema()
	c := NewCompressor(s)

	data, err := c.Finish()
	require.NoError(t, err)
	assert.Nil(t, data)

	res, err := Decompress(s, data)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rows())
}

func TestSingleRowIsRejected(t *testing.T) {
	s := testSchema()
	c := NewCompressor(s)

	row := schema.NewRow(s)
	row.SetInt(0, 1)
	row.SetUint(1, 1)
	require.NoError(t, c.Push(row))

	_, err := c.Finish()
	require.Error(t, err)
}

func TestByteAlignedOutput(t *testing.T) {
	s := testSchema()
	c := NewCompressor(s)

	for i := 0; i < 37; i++ {
		row := schema.NewRow(s)
		row.SetInt(0, int64(i))
		row.SetUint(1, uint64(i%5))
		require.NoError(t, c.Push(row))
	}

	data, err := c.Finish()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestMultiColumnIndependentPipelines(t *testing.T) {
	s := schema.New(
		schema.Column{Name: "ramp", Kind: schema.I32},
		schema.Column{Name: "jitter", Kind: schema.I16},
	)

	rng := rand.New(rand.NewSource(7))
	var values [][]int64
	for i := 0; i < 80; i++ {
		values = append(values, []int64{int64(i * 3), int64(rng.Intn(2000) - 1000)})
	}
	requireRoundTrip(t, s, values)
}
