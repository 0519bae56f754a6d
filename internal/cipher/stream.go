package cipher

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// ChunkedEncryptor implements spec.md §4.A's "chunked streaming cipher":
// each chunk is sealed independently under a fresh random nonce and
// prepended with its own 4-byte little-endian length prefix. There is no
// chaining between chunks, so chunks may be decrypted independently and
// out of order.
type ChunkedEncryptor struct {
	alg Algorithm
	key []byte
}

// NewChunkedEncryptor builds a chunked encryptor for alg/key. Key length is
// validated on first use.
func NewChunkedEncryptor(alg Algorithm, key []byte) *ChunkedEncryptor {
	return &ChunkedEncryptor{alg: alg, key: key}
}

// EncryptChunk seals a single chunk and returns [len u32le][nonce][ct+tag].
func (c *ChunkedEncryptor) EncryptChunk(ctx context.Context, chunk []byte) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		aead, err := newAEAD(c.alg, c.key)
		if err != nil {
			return nil, err
		}
		nonce := make([]byte, NonceSize)
		if _, err := rand.Read(nonce); err != nil {
			return nil, cryyptoerr.EncryptionFailed(err)
		}
		sealed := aead.Seal(nil, nonce, chunk, nil)
		body := make([]byte, NonceSize+len(sealed))
		n := copy(body, nonce)
		copy(body[n:], sealed)

		framed := make([]byte, 4+len(body))
		binary.LittleEndian.PutUint32(framed[:4], uint32(len(body)))
		copy(framed[4:], body)
		return framed, nil
	})
	return fut.Await(ctx)
}

// ChunkedDecryptor reads length-prefixed chunks produced by ChunkedEncryptor
// from an io.Reader and decrypts each independently.
type ChunkedDecryptor struct {
	alg Algorithm
	key []byte
	src io.Reader
}

// NewChunkedDecryptor wraps src, a stream of frames produced by EncryptChunk.
func NewChunkedDecryptor(alg Algorithm, key []byte, src io.Reader) *ChunkedDecryptor {
	return &ChunkedDecryptor{alg: alg, key: key, src: src}
}

// Next reads and decrypts the next chunk. Returns io.EOF when the
// underlying reader is exhausted at a frame boundary.
func (c *ChunkedDecryptor) Next(ctx context.Context) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.src, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, cryyptoerr.DataTooShort(4, 0)
		}
		return nil, err
	}
	frameLen := binary.LittleEndian.Uint32(lenBuf[:])
	if frameLen < NonceSize+tagSize {
		return nil, cryyptoerr.DataTooShort(NonceSize+tagSize, int(frameLen))
	}
	body := make([]byte, frameLen)
	if _, err := io.ReadFull(c.src, body); err != nil {
		return nil, cryyptoerr.IO(err)
	}

	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		aead, err := newAEAD(c.alg, c.key)
		if err != nil {
			return nil, err
		}
		nonce := body[:NonceSize]
		ct := body[NonceSize:]
		plain, err := aead.Open(nil, nonce, ct, nil)
		if err != nil {
			return nil, cryyptoerr.DecryptionFailed()
		}
		return plain, nil
	})
	return fut.Await(ctx)
}

// Stream adapts EncryptChunk over a channel of plaintext chunks into an
// asynctask.Stream of framed ciphertext, matching the "streaming terminator"
// shape from spec.md §4.D.
func (c *ChunkedEncryptor) Stream(ctx context.Context, chunks <-chan []byte) *asynctask.Stream[[]byte] {
	return asynctask.NewStream(ctx, asynctask.DefaultStreamCapacity, func(ctx context.Context, emit func([]byte) bool) {
		for chunk := range chunks {
			framed, err := c.EncryptChunk(ctx, chunk)
			if err != nil {
				return
			}
			if !emit(framed) {
				return
			}
		}
	})
}
