package key

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// KdfAlgorithm tags the supported key-derivation functions from spec.md §4.B.
type KdfAlgorithm int

const (
	PBKDF2SHA256 KdfAlgorithm = iota
	PBKDF2SHA512
	Argon2idKDF
	HKDFSHA256
	HKDFSHA512
)

// KdfConfig drives a pure (input, salt) -> output_size derivation, per
// spec.md §4.B.
type KdfConfig struct {
	Algorithm   KdfAlgorithm
	Iterations  int // PBKDF2 iteration count; 0 is rejected for PBKDF2 algorithms
	MemoryCost  uint32 // Argon2id memory cost in KiB
	Parallelism uint8  // Argon2id parallelism
	SaltSize    int
	OutputSize  int
}

// DefaultArgon2idConfig returns reasonable interactive-use Argon2id
// parameters (19 MiB, 2 passes, 1 thread, matching the OWASP minimum
// recommendation), with a 16-byte salt and 32-byte output.
func DefaultArgon2idConfig() KdfConfig {
	return KdfConfig{
		Algorithm:   Argon2idKDF,
		Iterations:  2,
		MemoryCost:  19 * 1024,
		Parallelism: 1,
		SaltSize:    16,
		OutputSize:  32,
	}
}

// Derive runs cfg's algorithm over (input, salt). If salt is nil, a fresh
// random salt of cfg.SaltSize is generated; the salt actually used is
// always returned so callers can persist it alongside the derived output.
func Derive(ctx context.Context, cfg KdfConfig, input, salt []byte) (output []byte, usedSalt []byte, err error) {
	if cfg.Algorithm == PBKDF2SHA256 || cfg.Algorithm == PBKDF2SHA512 {
		if cfg.Iterations <= 0 {
			return nil, nil, cryyptoerr.InvalidParameters("PBKDF2 requires a nonzero iteration count")
		}
	}
	if salt == nil {
		saltSize := cfg.SaltSize
		if saltSize <= 0 {
			saltSize = 16
		}
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, cryyptoerr.KeyDerivationFailed(err)
		}
	}

	fut := asynctask.Spawn(ctx, func() ([]byte, error) {
		return deriveSync(cfg, input, salt)
	})
	out, err := fut.Await(ctx)
	if err != nil {
		return nil, nil, err
	}
	return out, salt, nil
}

func deriveSync(cfg KdfConfig, input, salt []byte) ([]byte, error) {
	outSize := cfg.OutputSize
	if outSize <= 0 {
		outSize = 32
	}
	switch cfg.Algorithm {
	case PBKDF2SHA256:
		return pbkdf2.Key(input, salt, cfg.Iterations, outSize, sha256.New), nil
	case PBKDF2SHA512:
		return pbkdf2.Key(input, salt, cfg.Iterations, outSize, sha512.New), nil
	case Argon2idKDF:
		mem := cfg.MemoryCost
		if mem == 0 {
			mem = 19 * 1024
		}
		par := cfg.Parallelism
		if par == 0 {
			par = 1
		}
		iter := uint32(cfg.Iterations)
		if iter == 0 {
			iter = 2
		}
		return argon2.IDKey(input, salt, iter, mem, par, uint32(outSize)), nil
	case HKDFSHA256:
		return hkdfExpand(sha256.New, input, salt, outSize)
	case HKDFSHA512:
		return hkdfExpand(sha512.New, input, salt, outSize)
	default:
		return nil, cryyptoerr.UnsupportedAlgorithm("kdf algorithm")
	}
}

func hkdfExpand(newHash func() hash.Hash, input, salt []byte, outSize int) ([]byte, error) {
	r := hkdf.New(newHash, input, salt, nil)
	out := make([]byte, outSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, cryyptoerr.KeyDerivationFailed(err)
	}
	return out, nil
}

// DeriveFast is the variant of Derive that works on caller-supplied
// buffers: the caller supplies the salt and output buffers (sized exactly
// to cfg.SaltSize and cfg.OutputSize). The salt is used as given, never
// generated, and the derived bytes are copied into output. It is not
// allocation-free: the result is first computed into a fresh slice.
func DeriveFast(cfg KdfConfig, input []byte, salt, output []byte) error {
	if len(salt) != cfg.SaltSize {
		return cryyptoerr.InvalidParameters("salt buffer does not match configured salt size")
	}
	if len(output) != cfg.OutputSize {
		return cryyptoerr.InvalidParameters("output buffer does not match configured output size")
	}
	derived, err := deriveSync(cfg, input, salt)
	if err != nil {
		return err
	}
	copy(output, derived)
	return nil
}
