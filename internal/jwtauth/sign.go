package jwtauth

import (
	"crypto/ecdsa"
	"crypto/rsa"

	"github.com/golang-jwt/jwt/v4"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// Signer produces a compact JWS for the given claims.
type Signer interface {
	Algorithm() Algorithm
	Sign(claims Claims) (string, error)
}

func signingMethod(alg Algorithm) jwt.SigningMethod {
	switch alg {
	case HS256:
		return jwt.SigningMethodHS256
	case RS256:
		return jwt.SigningMethodRS256
	case ES256:
		return jwt.SigningMethodES256
	default:
		return nil
	}
}

// HMACSigner signs with a shared secret (HS256).
type HMACSigner struct {
	Secret []byte
	Kid    string
}

func (s HMACSigner) Algorithm() Algorithm { return HS256 }

func (s HMACSigner) Sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	if s.Kid != "" {
		tok.Header["kid"] = s.Kid
	}
	signed, err := tok.SignedString(s.Secret)
	if err != nil {
		return "", cryyptoerr.Internal("jwtauth: hmac signing failed", err)
	}
	return signed, nil
}

// RSASigner signs with an RSA private key (RS256).
type RSASigner struct {
	Key *rsa.PrivateKey
	Kid string
}

func (s RSASigner) Algorithm() Algorithm { return RS256 }

func (s RSASigner) Sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	if s.Kid != "" {
		tok.Header["kid"] = s.Kid
	}
	signed, err := tok.SignedString(s.Key)
	if err != nil {
		return "", cryyptoerr.Internal("jwtauth: rsa signing failed", err)
	}
	return signed, nil
}

// ECSigner signs with an ECDSA P-256 private key, producing the fixed
// 64-byte r||s signature encoding spec.md §4.E requires for ES256 (this is
// exactly how jwt.SigningMethodES256 already encodes its output).
type ECSigner struct {
	Key *ecdsa.PrivateKey
	Kid string
}

func (s ECSigner) Algorithm() Algorithm { return ES256 }

func (s ECSigner) Sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims(claims))
	if s.Kid != "" {
		tok.Header["kid"] = s.Kid
	}
	signed, err := tok.SignedString(s.Key)
	if err != nil {
		return "", cryyptoerr.Internal("jwtauth: ecdsa signing failed", err)
	}
	return signed, nil
}
