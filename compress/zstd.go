package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/qsib-cbie/tsz-sub000/internal/pool"
)

// zstdDecoderPool pools zstd decoders: klauspost/compress/zstd is designed
// for decoder reuse and is allocation-free after warmup.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("compress: failed to create zstd decoder: %v", err))
		}
		return d
	},
}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(fmt.Sprintf("compress: failed to create zstd encoder: %v", err))
		}
		return e
	},
}

// ZstdCodec compresses with klauspost/compress's pure-Go zstd
// implementation. Unlike the cgo-based zstd bindings some codebases reach
// for, this has no cgo dependency and is safe to cross-compile for
// constrained targets.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// NewZstdCodec returns a zstd codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

// Compress encodes data into a pooled scratch buffer rather than handing
// EncodeAll a nil dst, matching the buffer-reuse idiom the rest of this
// module uses for its own first-stage streams.
func (ZstdCodec) Compress(data []byte) ([]byte, error) {
	e := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(e)

	buf := pool.Get()
	defer pool.Put(buf)
	buf.Grow(len(data))

	encoded := e.EncodeAll(data, buf.B[:0])
	return append([]byte(nil), encoded...), nil
}

func (ZstdCodec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	d := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(d)

	buf := pool.Get()
	defer pool.Put(buf)
	buf.Grow(len(data) * 4)

	out, err := d.DecodeAll(data, buf.B[:0])
	if err != nil {
		return nil, fmt.Errorf("compress: zstd stream rejected: %w", err)
	}
	return append([]byte(nil), out...), nil
}
