// Package compress implements the per-algorithm streaming
// compressor/decompressor façade from spec.md §4.A: zstd, gzip, bzip2,
// and zip. Per the spec.md §9 Open Question, the gzip and zstd
// compressors here produce real incremental output at every CompressChunk
// call (via an underlying Flush), not just at Finish — the teacher
// source's buffer-until-finish behavior is treated as a bug and not
// reproduced. bzip2 is block-oriented in both the stdlib decoder and the
// ecosystem encoder this module uses, so it legitimately buffers until
// Finish, matching spec.md's explicit carve-out for that one algorithm.
package compress

import (
	"context"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// Algorithm tags the supported compression format.
type Algorithm int

const (
	Gzip Algorithm = iota
	Zstd
	Bzip2
	Zip
)

// Compressor is the common streaming-compress capability set from spec.md
// §4.A: CompressChunk appends bytes and returns whatever compressed output
// is available so far (possibly empty for a frame still buffering);
// Finish flushes and closes the stream, returning any trailing bytes.
type Compressor interface {
	CompressChunk(ctx context.Context, chunk []byte) ([]byte, error)
	Finish(ctx context.Context) ([]byte, error)
}

// Decompressor is the mirror-image streaming-decompress capability set.
type Decompressor interface {
	DecompressChunk(ctx context.Context, chunk []byte) ([]byte, error)
	Finish(ctx context.Context) ([]byte, error)
}

// NewCompressor builds a streaming compressor for alg.
func NewCompressor(alg Algorithm) (Compressor, error) {
	switch alg {
	case Gzip:
		return newGzipCompressor(), nil
	case Zstd:
		return newZstdCompressor()
	case Bzip2:
		return newBzip2Compressor()
	case Zip:
		return newZipCompressor(), nil
	default:
		return nil, errUnsupported(alg)
	}
}

// NewDecompressor builds a streaming decompressor for alg.
func NewDecompressor(alg Algorithm) (Decompressor, error) {
	switch alg {
	case Gzip:
		return newGzipDecompressor(), nil
	case Zstd:
		return newZstdDecompressor()
	case Bzip2:
		return newBzip2Decompressor(), nil
	case Zip:
		return newZipDecompressor(), nil
	default:
		return nil, errUnsupported(alg)
	}
}

// CompressAll is a one-shot convenience wrapper used by callers (and the
// CLI) that don't need chunked incremental output.
func CompressAll(ctx context.Context, alg Algorithm, data []byte) ([]byte, error) {
	c, err := NewCompressor(alg)
	if err != nil {
		return nil, err
	}
	first, err := c.CompressChunk(ctx, data)
	if err != nil {
		return nil, err
	}
	rest, err := c.Finish(ctx)
	if err != nil {
		return nil, err
	}
	return append(first, rest...), nil
}

// DecompressAll is the one-shot mirror of CompressAll.
func DecompressAll(ctx context.Context, alg Algorithm, data []byte) ([]byte, error) {
	d, err := NewDecompressor(alg)
	if err != nil {
		return nil, err
	}
	first, err := d.DecompressChunk(ctx, data)
	if err != nil {
		return nil, err
	}
	rest, err := d.Finish(ctx)
	if err != nil {
		return nil, err
	}
	return append(first, rest...), nil
}

func errUnsupported(alg Algorithm) error {
	names := map[Algorithm]string{Gzip: "gzip", Zstd: "zstd", Bzip2: "bzip2", Zip: "zip"}
	name, ok := names[alg]
	if !ok {
		name = "unknown"
	}
	return cryyptoerr.UnsupportedAlgorithm(name)
}
