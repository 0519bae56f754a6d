package compress

import (
	"bytes"
	"context"
	"io"

	"github.com/klauspost/pgzip"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// gzipCompressor wraps pgzip.Writer, flushing after every CompressChunk so
// the caller observes real incremental output rather than output withheld
// until Finish (spec.md §9 Open Question).
type gzipCompressor struct {
	buf *bytes.Buffer
	zw  *pgzip.Writer
}

func newGzipCompressor() *gzipCompressor {
	buf := &bytes.Buffer{}
	return &gzipCompressor{buf: buf, zw: pgzip.NewWriter(buf)}
}

func (c *gzipCompressor) CompressChunk(ctx context.Context, chunk []byte) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		if _, err := c.zw.Write(chunk); err != nil {
			return nil, cryyptoerr.Internal("gzip: write", err)
		}
		if err := c.zw.Flush(); err != nil {
			return nil, cryyptoerr.Internal("gzip: flush", err)
		}
		out := append([]byte(nil), c.buf.Bytes()...)
		c.buf.Reset()
		return out, nil
	})
	return fut.Await(ctx)
}

func (c *gzipCompressor) Finish(ctx context.Context) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		if err := c.zw.Close(); err != nil {
			return nil, cryyptoerr.Internal("gzip: close", err)
		}
		out := append([]byte(nil), c.buf.Bytes()...)
		c.buf.Reset()
		return out, nil
	})
	return fut.Await(ctx)
}

// gzipDecompressor pipes compressed bytes into a pgzip.Reader running on a
// background goroutine, so each DecompressChunk call can return whatever
// plaintext has become decodable so far rather than buffering until a
// single final call. A gzip frame too short to parse its header yet
// produces an empty chunk, per spec.md §4.A.
type gzipDecompressor struct {
	pw      *io.PipeWriter
	out     chan []byte
	done    chan error
	started bool
}

func newGzipDecompressor() *gzipDecompressor {
	return &gzipDecompressor{out: make(chan []byte, 64), done: make(chan error, 1)}
}

func (d *gzipDecompressor) start() {
	pr, pw := io.Pipe()
	d.pw = pw
	d.started = true
	go func() {
		zr, err := pgzip.NewReader(pr)
		if err != nil {
			d.done <- cryyptoerr.Internal("gzip: reader init", err)
			close(d.out)
			return
		}
		buf := make([]byte, 32*1024)
		for {
			n, err := zr.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				d.out <- chunk
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

func (d *gzipDecompressor) DecompressChunk(ctx context.Context, chunk []byte) ([]byte, error) {
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
			// Drain any bytes that became available as a direct result of this write.
			drain:
			for {
				select {
				case b, ok := <-d.out:
					if !ok {
						return result, nil
					}
					result = append(result, b...)
				default:
					break drain
				}
			}
			return result, nil
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}
}

func (d *gzipDecompressor) Finish(ctx context.Context) ([]byte, error) {
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
