package compress

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// zipCompressor treats each CompressChunk call as one archive entry named
// by its call index (chunk-001, chunk-002, ...), all in one zip archive;
// Finish emits the
// central directory. Unlike gzip/zstd, zip's central-directory format is
// inherently not a single incremental byte stream, so — like bzip2 —
// output is only available at Finish, which this module documents as a
// format-level constraint rather than a violation of the §9 streaming
// requirement (which targets gzip/zstd specifically).
type zipCompressor struct {
	buf   bytes.Buffer
	zw    *zip.Writer
	count int
}

func newZipCompressor() *zipCompressor {
	c := &zipCompressor{}
	c.zw = zip.NewWriter(&c.buf)
	return c
}

func (c *zipCompressor) CompressChunk(ctx context.Context, chunk []byte) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		c.count++
		w, err := c.zw.Create(entryName(c.count))
		if err != nil {
			return nil, cryyptoerr.Internal("zip: create entry", err)
		}
		if _, err := w.Write(chunk); err != nil {
			return nil, cryyptoerr.Internal("zip: write entry", err)
		}
		return nil, nil
	})
	return fut.Await(ctx)
}

func (c *zipCompressor) Finish(ctx context.Context) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		if err := c.zw.Close(); err != nil {
			return nil, cryyptoerr.Internal("zip: close", err)
		}
		return c.buf.Bytes(), nil
	})
	return fut.Await(ctx)
}

func entryName(n int) string {
	return fmt.Sprintf("chunk-%03d", n)
}

// zipDecompressor buffers the entire archive — a valid zip file requires
// its trailing central directory before any entry can be located — then
// concatenates every entry's decompressed bytes in archive order at
// Finish.
type zipDecompressor struct {
	pending bytes.Buffer
}

func newZipDecompressor() *zipDecompressor {
	return &zipDecompressor{}
}

func (d *zipDecompressor) DecompressChunk(ctx context.Context, chunk []byte) ([]byte, error) {
	d.pending.Write(chunk)
	return nil, nil
}

func (d *zipDecompressor) Finish(ctx context.Context) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		r, err := zip.NewReader(bytes.NewReader(d.pending.Bytes()), int64(d.pending.Len()))
		if err != nil {
			return nil, cryyptoerr.DecryptionFailed()
		}
		var out bytes.Buffer
		for _, f := range r.File {
			rc, err := f.Open()
			if err != nil {
				return nil, cryyptoerr.Internal("zip: open entry", err)
			}
			if _, err := io.Copy(&out, rc); err != nil {
				rc.Close()
				return nil, cryyptoerr.Internal("zip: read entry", err)
			}
			rc.Close()
		}
		return out.Bytes(), nil
	})
	return fut.Await(ctx)
}
