package pqcrypto

import (
	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/schemes"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// SignAlgorithm names a supported post-quantum signature scheme.
// FALCON-1024 is deliberately absent: CIRCL ships Falcon-512 but not the
// 1024 parameter set, so requesting it surfaces UnsupportedAlgorithm
// rather than silently downgrading strength.
type SignAlgorithm string

const (
	MLDSA44     SignAlgorithm = "ML-DSA-44"
	MLDSA65     SignAlgorithm = "ML-DSA-65"
	MLDSA87     SignAlgorithm = "ML-DSA-87"
	Falcon512   SignAlgorithm = "Falcon-512"
	SPHINCSSHA2 SignAlgorithm = "SLH-DSA-SHA2-128s"
)

func signScheme(alg SignAlgorithm) (sign.Scheme, error) {
	s := schemes.ByName(string(alg))
	if s == nil {
		return nil, cryyptoerr.UnsupportedAlgorithm(string(alg))
	}
	return s, nil
}

// SignKeyPair holds a generated signing key pair.
type SignKeyPair struct {
	Algorithm  SignAlgorithm
	PublicKey  sign.PublicKey
	PrivateKey sign.PrivateKey
}

// GenerateSignKeyPair creates a fresh key pair for alg.
func GenerateSignKeyPair(alg SignAlgorithm) (*SignKeyPair, error) {
	scheme, err := signScheme(alg)
	if err != nil {
		return nil, err
	}
	pub, priv, err := scheme.GenerateKey()
	if err != nil {
		return nil, cryyptoerr.KeyDerivationFailed(err)
	}
	return &SignKeyPair{Algorithm: alg, PublicKey: pub, PrivateKey: priv}, nil
}

// Sign produces a detached signature over message.
func Sign(alg SignAlgorithm, priv sign.PrivateKey, message []byte) ([]byte, error) {
	scheme, err := signScheme(alg)
	if err != nil {
		return nil, err
	}
	return scheme.Sign(priv, message, nil), nil
}

// Verify checks sig over message under pub.
func Verify(alg SignAlgorithm, pub sign.PublicKey, message, sig []byte) (bool, error) {
	scheme, err := signScheme(alg)
	if err != nil {
		return false, err
	}
	return scheme.Verify(pub, message, sig, nil), nil
}

// UnmarshalSignPublicKey parses a wire-format public key for alg.
func UnmarshalSignPublicKey(alg SignAlgorithm, raw []byte) (sign.PublicKey, error) {
	scheme, err := signScheme(alg)
	if err != nil {
		return nil, err
	}
	pub, err := scheme.UnmarshalBinaryPublicKey(raw)
	if err != nil {
		return nil, cryyptoerr.Malformed("pqcrypto: invalid signature public key encoding")
	}
	return pub, nil
}
