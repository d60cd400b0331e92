// Package compress implements an optional second-stage byte-stream codec
// wrapping the finished V1/V2 output (spec §9's "optional further
// general-purpose compression of the already-delta-coded stream"). The
// delta/delta-delta engines already remove most of the redundancy a BLE
// time-series payload carries; this stage exists for the residual
// byte-level redundancy a general-purpose compressor can still find
// (repeated group tags, runs of zero residuals, and the like) before the
// result goes out over the air.
package compress

import "fmt"

// Algorithm identifies a second-stage compression scheme.
type Algorithm uint8

const (
	None Algorithm = iota + 1
	S2
	LZ4
	Zstd
)

// String returns the algorithm's name.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case S2:
		return "s2"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return "invalid"
	}
}

// Compressor compresses a byte slice.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses a byte slice produced by the matching
// Compressor.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions of one algorithm.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[Algorithm]Codec{
	None: NewNoOpCodec(),
	S2:   NewS2Codec(),
	LZ4:  NewLZ4Codec(),
	Zstd: NewZstdCodec(),
}

// Get retrieves the built-in Codec for algorithm a.
func Get(a Algorithm) (Codec, error) {
	if c, ok := builtinCodecs[a]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("compress: unsupported algorithm %v", a)
}

// MinWorthwhileSize is the smallest first-stage stream size, in bytes, a
// general-purpose codec's own framing overhead can plausibly pay for
// (S2's stream header, LZ4's block header, zstd's frame magic plus
// descriptor). A BLE MTU-class payload (spec §1, §5) regularly lands
// below this, in which case a second-stage pass can cost more than it
// saves even when it technically shrinks the byte count.
const MinWorthwhileSize = 64

// Report describes the outcome of one Apply call: how big the first-stage
// (delta/delta-delta) and second-stage (byte codec) streams were, and
// whether the second stage was actually worth sending over the air.
type Report struct {
	Algorithm        Algorithm
	EngineBitRate    float64
	FirstStageBytes  int
	SecondStageBytes int
	Worthwhile       bool
}

// Ratio returns SecondStageBytes/FirstStageBytes; values below 1.0
// indicate the second stage shrank the stream.
func (r Report) Ratio() float64 {
	if r.FirstStageBytes == 0 {
		return 0
	}
	return float64(r.SecondStageBytes) / float64(r.FirstStageBytes)
}

// SpaceSavings returns the percentage of bytes the second stage removed
// (0-100; negative if it grew the stream).
func (r Report) SpaceSavings() float64 {
	return (1.0 - r.Ratio()) * 100.0
}

// Apply runs algorithm alg's second stage over firstStage, the byte
// stream a rowv1/rowv2 Compressor already produced, and reports whether
// doing so paid off.
//
// Apply always performs the compression and returns its output: the
// V1/V2 wire format carries no length prefix or magic header for the
// caller to branch on later (spec §4.9, §6 — "caller's responsibility"),
// so silently falling back to the raw bytes here would make the returned
// slice ambiguous to a Decompress call downstream. Instead Apply reports
// Worthwhile so the caller can decide, in its own protocol's framing,
// whether to transmit the compressed bytes or the original ones.
//
// engineBitRate is the first-stage Compressor's BitRate() at Finish time
// (spec §6's ambient bit_rate() feature). It is recorded in the Report
// only; Worthwhile does not depend on it. Worthwhile is true when alg is
// not None, firstStage is at least MinWorthwhileSize bytes, and the
// output is smaller than firstStage.
func Apply(alg Algorithm, firstStage []byte, engineBitRate float64) ([]byte, Report, error) {
	codec, err := Get(alg)
	if err != nil {
		return nil, Report{}, err
	}

	out, err := codec.Compress(firstStage)
	if err != nil {
		return nil, Report{}, err
	}

	report := Report{
		Algorithm:        alg,
		EngineBitRate:    engineBitRate,
		FirstStageBytes:  len(firstStage),
		SecondStageBytes: len(out),
	}
	report.Worthwhile = alg != None &&
		len(firstStage) >= MinWorthwhileSize &&
		len(out) < len(firstStage)

	return out, report, nil
}
