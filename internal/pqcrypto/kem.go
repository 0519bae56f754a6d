// Package pqcrypto provides the post-quantum key-encapsulation and
// signature primitives named in the toolbox overview: ML-KEM, ML-DSA,
// FALCON, and SPHINCS+. It wraps CIRCL's generic kem.Scheme / sign.Scheme
// registries so every algorithm shares one façade instead of one type per
// primitive family.
package pqcrypto

import (
	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/schemes"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// KemAlgorithm names a supported key-encapsulation mechanism. Only the
// three ML-KEM parameter sets used by the transport handshake (spec.md
// §4.J) are exposed; CIRCL's registry has others, but the toolbox's
// surface area is pinned to these.
type KemAlgorithm string

const (
	MLKEM512  KemAlgorithm = "ML-KEM-512"
	MLKEM768  KemAlgorithm = "ML-KEM-768"
	MLKEM1024 KemAlgorithm = "ML-KEM-1024"
)

func kemScheme(alg KemAlgorithm) (kem.Scheme, error) {
	s := schemes.ByName(string(alg))
	if s == nil {
		return nil, cryyptoerr.UnsupportedAlgorithm(string(alg))
	}
	return s, nil
}

// KemKeyPair holds a generated encapsulation key pair.
type KemKeyPair struct {
	Algorithm  KemAlgorithm
	PublicKey  kem.PublicKey
	PrivateKey kem.PrivateKey
}

// GenerateKemKeyPair creates a fresh key pair for alg.
func GenerateKemKeyPair(alg KemAlgorithm) (*KemKeyPair, error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, err
	}
	pub, priv, err := scheme.GenerateKeyPair()
	if err != nil {
		return nil, cryyptoerr.KeyDerivationFailed(err)
	}
	return &KemKeyPair{Algorithm: alg, PublicKey: pub, PrivateKey: priv}, nil
}

// Encapsulate produces a ciphertext and shared secret under peerPublicKey.
func Encapsulate(alg KemAlgorithm, peerPublicKey kem.PublicKey) (ciphertext, sharedSecret []byte, err error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, nil, err
	}
	ct, ss, err := scheme.Encapsulate(peerPublicKey)
	if err != nil {
		return nil, nil, cryyptoerr.EncryptionFailed(err)
	}
	return ct, ss, nil
}

// Decapsulate recovers the shared secret from ciphertext using priv.
func Decapsulate(alg KemAlgorithm, priv kem.PrivateKey, ciphertext []byte) ([]byte, error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, err
	}
	ss, err := scheme.Decapsulate(priv, ciphertext)
	if err != nil {
		return nil, cryyptoerr.DecryptionFailed()
	}
	return ss, nil
}

// UnmarshalKemPublicKey parses a wire-format public key for alg.
func UnmarshalKemPublicKey(alg KemAlgorithm, raw []byte) (kem.PublicKey, error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, err
	}
	pub, err := scheme.UnmarshalBinaryPublicKey(raw)
	if err != nil {
		return nil, cryyptoerr.Malformed("pqcrypto: invalid kem public key encoding")
	}
	return pub, nil
}
