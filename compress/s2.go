package compress

import (
	"github.com/klauspost/compress/s2"

	"github.com/qsib-cbie/tsz-sub000/internal/pool"
)

// S2Codec compresses with klauspost/compress's S2, a Snappy-compatible
// format tuned for throughput over ratio.
type S2Codec struct{}

var _ Codec = S2Codec{}

// NewS2Codec returns an S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

// Compress encodes data into a pooled scratch buffer, sized up front via
// s2.MaxEncodedLen, rather than handing s2 a nil dst to allocate fresh
// every call — the same buffer-reuse idiom bitio and nibble use for the
// first-stage streams this codec wraps.
func (S2Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	buf := pool.Get()
	defer pool.Put(buf)
	buf.Grow(s2.MaxEncodedLen(len(data)))

	encoded := s2.Encode(buf.B[:cap(buf.B)], data)
	return append([]byte(nil), encoded...), nil
}

func (S2Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, err
	}

	buf := pool.Get()
	defer pool.Put(buf)
	buf.Grow(n)

	decoded, err := s2.Decode(buf.B[:cap(buf.B)], data)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), decoded...), nil
}
