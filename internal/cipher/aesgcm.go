// Package cipher implements the authenticated-cipher primitive façades
// (AES-256-GCM, ChaCha20-Poly1305) described in spec.md §4.A, including
// their on-disk/on-wire ciphertext layouts and the chunked streaming
// variant. Every terminal operation is dispatched through
// internal/asynctask so CPU-bound sealing/opening never runs on a
// cooperative goroutine inline with caller code.
package cipher

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

const (
	// KeySize256 is the required key length for AES-256-GCM and ChaCha20-Poly1305.
	KeySize256 = 32
	// NonceSize is the standard AEAD nonce length used throughout this package.
	NonceSize = 12
	tagSize   = 16
)

// Algorithm tags the AEAD cipher family, per spec.md's "tagged variant" guidance.
type Algorithm int

const (
	AES256GCM Algorithm = iota
	ChaCha20Poly1305
)

func (a Algorithm) String() string {
	if a == ChaCha20Poly1305 {
		return "chacha20-poly1305"
	}
	return "aes-256-gcm"
}

func newAEAD(alg Algorithm, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize256 {
		return nil, cryyptoerr.InvalidKeySize(KeySize256, len(key))
	}
	switch alg {
	case AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, cryyptoerr.Internal("aes: new cipher", err)
		}
		return cipher.NewGCM(block)
	case ChaCha20Poly1305:
		return newChaCha20Poly1305(key)
	default:
		return nil, cryyptoerr.UnsupportedAlgorithm(fmt.Sprint(int(alg)))
	}
}

// Builder is the typestate-flavored entry point for a single encrypt/decrypt
// call, following spec.md §4.D's Entry.method(...).with_X(...).action() shape.
type Builder struct {
	alg Algorithm
	key []byte
	aad []byte
}

// New starts a cipher builder for the given algorithm and key. Key length is
// validated lazily, at Action time, so construction itself never fails.
func New(alg Algorithm, key []byte) *Builder {
	return &Builder{alg: alg, key: key}
}

// WithAAD attaches associated authenticated data. Only meaningful for
// AES-256-GCM per spec.md's layout table; ChaCha20Poly1305 in this module
// always omits AAD, matching the "without AAD" wire format.
func (b *Builder) WithAAD(aad []byte) *Builder {
	b.aad = aad
	return b
}

// Encrypt seals plaintext and returns the wire-format ciphertext described
// in spec.md §4.A:
//
//	AES-GCM:            [aad_len u32le][aad][nonce 12][ct+tag]
//	ChaCha20-Poly1305:   [nonce 12][ct+tag]
func (b *Builder) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		aead, err := newAEAD(b.alg, b.key)
		if err != nil {
			return nil, err
		}
		nonce := make([]byte, NonceSize)
		if _, err := rand.Read(nonce); err != nil {
			return nil, cryyptoerr.EncryptionFailed(err)
		}
		aad := b.aad
		if b.alg != AES256GCM {
			aad = nil
		}
		sealed := aead.Seal(nil, nonce, plaintext, aad)

		if b.alg == AES256GCM {
			out := make([]byte, 4+len(b.aad)+NonceSize+len(sealed))
			binary.LittleEndian.PutUint32(out[0:4], uint32(len(b.aad)))
			n := 4
			n += copy(out[n:], b.aad)
			n += copy(out[n:], nonce)
			copy(out[n:], sealed)
			return out, nil
		}
		out := make([]byte, NonceSize+len(sealed))
		n := copy(out, nonce)
		copy(out[n:], sealed)
		return out, nil
	})
	return fut.Await(ctx)
}

// Decrypt reverses Encrypt. AAD passed here must match WithAAD's payload
// for AES-256-GCM; mismatches and any single-bit ciphertext tamper both
// surface as DecryptionFailed without distinguishing cause (spec.md §7).
func (b *Builder) Decrypt(ctx context.Context, wire []byte) ([]byte, error) {
	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		aead, err := newAEAD(b.alg, b.key)
		if err != nil {
			return nil, err
		}

		var nonce, ct, aad []byte
		if b.alg == AES256GCM {
			if len(wire) < 4 {
				return nil, cryyptoerr.DataTooShort(4, len(wire))
			}
			aadLen := int(binary.LittleEndian.Uint32(wire[0:4]))
			minLen := 4 + aadLen + NonceSize + tagSize
			if len(wire) < minLen {
				return nil, cryyptoerr.DataTooShort(minLen, len(wire))
			}
			aad = wire[4 : 4+aadLen]
			if !bytes.Equal(aad, b.aad) {
				return nil, cryyptoerr.DecryptionFailed()
			}
			nonce = wire[4+aadLen : 4+aadLen+NonceSize]
			ct = wire[4+aadLen+NonceSize:]
		} else {
			minLen := NonceSize + tagSize
			if len(wire) < minLen {
				return nil, cryyptoerr.DataTooShort(minLen, len(wire))
			}
			nonce = wire[:NonceSize]
			ct = wire[NonceSize:]
		}

		plain, err := aead.Open(nil, nonce, ct, aad)
		if err != nil {
			return nil, cryyptoerr.DecryptionFailed()
		}
		return plain, nil
	})
	return fut.Await(ctx)
}
