package compress

import (
	"bytes"
	"context"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// zstdCompressor flushes the zstd frame after every chunk, producing real
// incremental output (spec.md §9 Open Question) instead of withholding
// bytes until Finish.
type zstdCompressor struct {
	buf *bytes.Buffer
	zw  *zstd.Encoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	buf := &bytes.Buffer{}
	zw, err := zstd.NewWriter(buf)
	if err != nil {
		return nil, cryyptoerr.Internal("zstd: new writer", err)
	}
	return &zstdCompressor{buf: buf, zw: zw}, nil
}

func (c *zstdCompressor) CompressChunk(ctx context.Context, chunk []byte) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		if _, err := c.zw.Write(chunk); err != nil {
			return nil, cryyptoerr.Internal("zstd: write", err)
		}
		if err := c.zw.Flush(); err != nil {
			return nil, cryyptoerr.Internal("zstd: flush", err)
		}
		out := append([]byte(nil), c.buf.Bytes()...)
		c.buf.Reset()
		return out, nil
	})
	return fut.Await(ctx)
}

func (c *zstdCompressor) Finish(ctx context.Context) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		if err := c.zw.Close(); err != nil {
			return nil, cryyptoerr.Internal("zstd: close", err)
		}
		out := append([]byte(nil), c.buf.Bytes()...)
		c.buf.Reset()
		return out, nil
	})
	return fut.Await(ctx)
}

// zstdDecompressor pipes compressed bytes into a zstd.Decoder on a
// background goroutine, returning whatever plaintext has become available
// at each call. A partial frame (not enough data to find the zstd magic
// and a complete block) returns an empty chunk.
type zstdDecompressor struct {
	pw      *io.PipeWriter
	out     chan []byte
	done    chan error
	started bool
}

func newZstdDecompressor() (*zstdDecompressor, error) {
	return &zstdDecompressor{out: make(chan []byte, 64), done: make(chan error, 1)}, nil
}

func (d *zstdDecompressor) start() {
	pr, pw := io.Pipe()
	d.pw = pw
	d.started = true
	go func() {
		zr, err := zstd.NewReader(pr)
		if err != nil {
			d.done <- cryyptoerr.Internal("zstd: reader init", err)
			close(d.out)
			return
		}
		defer zr.Close()
		buf := make([]byte, 32*1024)
		for {
			n, err := zr.Read(buf)
			if n > 0 {
				d.out <- append([]byte(nil), buf[:n]...)
			}
			if err != nil {
				if err == io.EOF {
					d.done <- nil
				} else {
					d.done <- cryyptoerr.DecryptionFailed()
				}
				close(d.out)
				return
			}
		}
	}()
}

func (d *zstdDecompressor) DecompressChunk(ctx context.Context, chunk []byte) ([]byte, error) {
	if !d.started {
		d.start()
	}
	writeErrCh := make(chan error, 1)
	go func() {
		_, err := d.pw.Write(chunk)
		writeErrCh <- err
	}()

	var result []byte
	for {
		select {
		case b, ok := <-d.out:
			if !ok {
				return result, nil
			}
			result = append(result, b...)
		case err := <-writeErrCh:
			if err != nil {
				return result, cryyptoerr.IO(err)
			}
			for {
				select {
				case b, ok := <-d.out:
					if !ok {
						return result, nil
					}
					result = append(result, b...)
				default:
					return result, nil
				}
			}
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}
}

func (d *zstdDecompressor) Finish(ctx context.Context) ([]byte, error) {
	if !d.started {
		return nil, nil
	}
	_ = d.pw.Close()
	var result []byte
	for b := range d.out {
		result = append(result, b...)
	}
	if err := <-d.done; err != nil {
		return result, err
	}
	return result, nil
}
