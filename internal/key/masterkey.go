package key

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"

	"golang.org/x/crypto/argon2"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// MasterKeyProvider is the capability set every master-key source
// implements, per spec.md §4.B's "tagged variant": raw 32-byte, passphrase
// (Argon2id), or environment variable.
type MasterKeyProvider interface {
	MasterKey(ctx context.Context) (*Material, error)
}

// RawProvider wraps a pre-existing 32-byte key.
type RawProvider struct {
	Key []byte
}

func (p RawProvider) MasterKey(ctx context.Context) (*Material, error) {
	if len(p.Key) != 32 {
		return nil, cryyptoerr.InvalidKeySize(32, len(p.Key))
	}
	b := make([]byte, 32)
	copy(b, p.Key)
	return NewMaterial(b, "master", 1, "raw"), nil
}

// PassphraseProvider derives a 32-byte master key from a passphrase via
// Argon2id, with a deterministic salt computed from a versioned SHA-256
// prefix over the passphrase itself — so the same passphrase always
// rederives the same master key without needing a separately stored salt
// (spec.md §4.B).
type PassphraseProvider struct {
	Passphrase string
}

// saltVersion namespaces the deterministic-salt derivation so a future
// change to the scheme doesn't silently collide with this one.
const saltVersion = "cryypt-masterkey-salt-v1"

func (p PassphraseProvider) MasterKey(ctx context.Context) (*Material, error) {
	if p.Passphrase == "" {
		return nil, cryyptoerr.InvalidParameters("passphrase must not be empty")
	}
	h := sha256.Sum256(append([]byte(saltVersion), []byte(p.Passphrase)...))
	salt := h[:16]
	derived := argon2.IDKey([]byte(p.Passphrase), salt, 2, 19*1024, 1, 32)
	return NewMaterial(derived, "master", 1, "passphrase"), nil
}

// EnvProvider reads a master key from an environment variable: hex or
// base64 if decoding yields exactly 32 bytes, else the raw string is
// passed through Argon2id exactly like PassphraseProvider.
type EnvProvider struct {
	VarName string
}

func (p EnvProvider) MasterKey(ctx context.Context) (*Material, error) {
	raw, ok := os.LookupEnv(p.VarName)
	if !ok || raw == "" {
		return nil, cryyptoerr.InvalidParameters("environment variable " + p.VarName + " is not set")
	}
	if b, err := hex.DecodeString(raw); err == nil && len(b) == 32 {
		return NewMaterial(b, "master", 1, "env-hex"), nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil && len(b) == 32 {
		return NewMaterial(b, "master", 1, "env-base64"), nil
	}
	return PassphraseProvider{Passphrase: raw}.MasterKey(ctx)
}
