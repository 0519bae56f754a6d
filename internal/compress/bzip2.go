package compress

import (
	"bytes"
	"compress/bzip2"
	"context"
	"io"

	dsbzip2 "github.com/dsnet/compress/bzip2"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// bzip2Compressor buffers all written bytes until Finish, per spec.md
// §4.A: "bzip2 buffers until finish()" is the one algorithm the spec
// explicitly exempts from the true-streaming requirement, since bzip2's
// block-sort transform has no meaningful partial-block output.
type bzip2Compressor struct {
	pending bytes.Buffer
}

func newBzip2Compressor() (*bzip2Compressor, error) {
	return &bzip2Compressor{}, nil
}

func (c *bzip2Compressor) CompressChunk(ctx context.Context, chunk []byte) ([]byte, error) {
	c.pending.Write(chunk)
	return nil, nil
}

func (c *bzip2Compressor) Finish(ctx context.Context) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		var out bytes.Buffer
		zw, err := dsbzip2.NewWriter(&out, nil)
		if err != nil {
			return nil, cryyptoerr.Internal("bzip2: new writer", err)
		}
		if _, err := zw.Write(c.pending.Bytes()); err != nil {
			return nil, cryyptoerr.Internal("bzip2: write", err)
		}
		if err := zw.Close(); err != nil {
			return nil, cryyptoerr.Internal("bzip2: close", err)
		}
		return out.Bytes(), nil
	})
	return fut.Await(ctx)
}

// bzip2Decompressor likewise buffers until Finish: the stdlib decoder
// (compress/bzip2) only exposes a one-shot io.Reader, with no incremental
// re-entrant API.
type bzip2Decompressor struct {
	pending bytes.Buffer
}

func newBzip2Decompressor() *bzip2Decompressor {
	return &bzip2Decompressor{}
}

func (d *bzip2Decompressor) DecompressChunk(ctx context.Context, chunk []byte) ([]byte, error) {
	d.pending.Write(chunk)
	return nil, nil
}

func (d *bzip2Decompressor) Finish(ctx context.Context) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		r := bzip2.NewReader(bytes.NewReader(d.pending.Bytes()))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, cryyptoerr.DecryptionFailed()
		}
		return out, nil
	})
	return fut.Await(ctx)
}
