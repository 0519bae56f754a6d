// Package hash implements the hash/MAC primitive façade from spec.md §4.A:
// SHA-2, SHA-3, BLAKE2b, and HMAC over any of them. Input is processed in
// fixed-size chunks with an explicit yield (runtime.Gosched) between
// chunks so hashing a large buffer never monopolizes a goroutine's time
// slice on the cooperative scheduler — mirroring spec.md §5's suspension
// points ("each 8 KiB hash/MAC chunk boundary").
package hash

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"runtime"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// Algorithm tags the supported digest functions.
type Algorithm int

const (
	SHA256 Algorithm = iota
	SHA512
	SHA3_256
	SHA3_384
	SHA3_512
	BLAKE2b256
	BLAKE2b512
)

// DefaultChunkSize is the 8 KiB boundary spec.md §4.A mandates between
// explicit yield points.
const DefaultChunkSize = 8192

func newHasher(alg Algorithm) (hash.Hash, error) {
	switch alg {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case SHA3_256:
		return sha3.New256(), nil
	case SHA3_384:
		return sha3.New384(), nil
	case SHA3_512:
		return sha3.New512(), nil
	case BLAKE2b256:
		return blake2b.New256(nil)
	case BLAKE2b512:
		return blake2b.New512(nil)
	default:
		return nil, cryyptoerr.UnsupportedAlgorithm("hash algorithm")
	}
}

// Builder is the typestate-flavored entry point for a single hash/HMAC call.
type Builder struct {
	alg       Algorithm
	chunkSize int
	hmacKey   []byte
}

// New starts a hash builder for alg, using the default 8 KiB chunk size.
func New(alg Algorithm) *Builder {
	return &Builder{alg: alg, chunkSize: DefaultChunkSize}
}

// WithChunkSize overrides the yield-point granularity. Implements the
// original_source HashBuilder::with_chunk_size override supplemented into
// SPEC_FULL.md — useful when hashing very large files with a different
// yield cadence than the 8 KiB default.
func (b *Builder) WithChunkSize(n int) *Builder {
	if n > 0 {
		b.chunkSize = n
	}
	return b
}

// WithHMACKey turns this builder into an HMAC computation over the same
// underlying hash. An empty key is rejected at Action time with
// InvalidParameters, per spec.md: "HMAC key errors become InvalidParameters."
func (b *Builder) WithHMACKey(key []byte) *Builder {
	b.hmacKey = key
	return b
}

// Sum computes the digest of data, running the chunked hash loop on the
// blocking pool via asynctask.Spawn.
func (b *Builder) Sum(ctx context.Context, data []byte) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		return b.sumSync(data)
	})
	return fut.Await(ctx)
}

func (b *Builder) sumSync(data []byte) ([]byte, error) {
	var h hash.Hash
	if b.hmacKey != nil {
		if len(b.hmacKey) == 0 {
			return nil, cryyptoerr.InvalidParameters("HMAC key must not be empty")
		}
		h = hmac.New(func() hash.Hash {
			inner, _ := newHasher(b.alg)
			return inner
		}, b.hmacKey)
	} else {
		inner, err := newHasher(b.alg)
		if err != nil {
			return nil, err
		}
		h = inner
	}

	chunkSize := b.chunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}
		h.Write(data[:n])
		data = data[n:]
		if len(data) > 0 {
			runtime.Gosched() // explicit yield at each chunk boundary, spec.md §5
		}
	}
	return h.Sum(nil), nil
}

// NewStreamingHasher returns a Hasher that can be fed incrementally via
// Write and finalized via Sum, used by callers that already have a
// streaming source (e.g. an io.Reader) and want one-shot/streaming
// agreement as required by spec.md §8 invariant 3.
func NewStreamingHasher(alg Algorithm) (*StreamingHasher, error) {
	h, err := newHasher(alg)
	if err != nil {
		return nil, err
	}
	return &StreamingHasher{h: h}, nil
}

// StreamingHasher incrementally hashes Write calls; Sum finalizes.
type StreamingHasher struct {
	h hash.Hash
}

func (s *StreamingHasher) Write(p []byte) (int, error) { return s.h.Write(p) }

func (s *StreamingHasher) Sum() []byte { return s.h.Sum(nil) }
