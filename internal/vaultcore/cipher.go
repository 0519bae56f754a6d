package vaultcore

import (
	"context"

	"github.com/cyrup-ai/cryypt/internal/cipher"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// AtRestCipher selects the algorithm used to encrypt each vault value
// independently, per spec.md §4.F.
type AtRestCipher int

const (
	AtRestAESGCM AtRestCipher = iota
	AtRestChaCha20Poly1305
	AtRestCascade // AES-GCM then ChaCha20-Poly1305, even-split 64-byte session key
)

// sealValue encrypts plaintext under sessionKey with a fresh nonce,
// applying the cascade (cipher A then cipher B) when selected.
func sealValue(ctx context.Context, alg AtRestCipher, sessionKey, plaintext []byte) ([]byte, error) {
	switch alg {
	case AtRestAESGCM:
		return cipher.New(cipher.AES256GCM, sessionKey).Encrypt(ctx, plaintext)
	case AtRestChaCha20Poly1305:
		return cipher.New(cipher.ChaCha20Poly1305, sessionKey).Encrypt(ctx, plaintext)
	case AtRestCascade:
		keyA, keyB, err := splitSessionKey(sessionKey)
		if err != nil {
			return nil, err
		}
		stage1, err := cipher.New(cipher.AES256GCM, keyA).Encrypt(ctx, plaintext)
		if err != nil {
			return nil, err
		}
		return cipher.New(cipher.ChaCha20Poly1305, keyB).Encrypt(ctx, stage1)
	default:
		return nil, cryyptoerr.UnsupportedAlgorithm("vault at-rest cipher")
	}
}

// openValue reverses sealValue. The cascade decrypts in the opposite
// order it was applied: cipher B first, then cipher A.
func openValue(ctx context.Context, alg AtRestCipher, sessionKey, wire []byte) ([]byte, error) {
	switch alg {
	case AtRestAESGCM:
		return cipher.New(cipher.AES256GCM, sessionKey).Decrypt(ctx, wire)
	case AtRestChaCha20Poly1305:
		return cipher.New(cipher.ChaCha20Poly1305, sessionKey).Decrypt(ctx, wire)
	case AtRestCascade:
		keyA, keyB, err := splitSessionKey(sessionKey)
		if err != nil {
			return nil, err
		}
		stage1, err := cipher.New(cipher.ChaCha20Poly1305, keyB).Decrypt(ctx, wire)
		if err != nil {
			return nil, err
		}
		return cipher.New(cipher.AES256GCM, keyA).Decrypt(ctx, stage1)
	default:
		return nil, cryyptoerr.UnsupportedAlgorithm("vault at-rest cipher")
	}
}

// splitSessionKey divides a 64-byte session key evenly into two 32-byte
// sub-keys for the cascade cipher, per spec.md §4.F.
func splitSessionKey(sessionKey []byte) (keyA, keyB []byte, err error) {
	if len(sessionKey) != 64 {
		return nil, nil, cryyptoerr.InvalidKeySize(64, len(sessionKey))
	}
	return sessionKey[:32], sessionKey[32:], nil
}
