package jwtauth

import (
	"github.com/golang-jwt/jwt/v4"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// KeyResolver returns the verification key for a token, given its
// algorithm and (possibly empty) "kid" header.
type KeyResolver interface {
	Algorithm() Algorithm
	ResolveKey(kid string) (any, error)
}

// Verifier checks a compact JWS's signature against a single pinned
// algorithm, then applies claims validation per spec.md §4.E.
type Verifier struct {
	Resolver KeyResolver
	Options  Options
}

// Verify parses tokenStr, rejects it outright if its header's "alg"
// differs from the verifier's pinned algorithm, checks the signature,
// then validates claims. When the resolver is a *Rotator and the token
// carries no "kid", every known public key is tried in turn.
func (v Verifier) Verify(tokenStr string) (Claims, error) {
	if rot, ok := v.Resolver.(*Rotator); ok {
		if kid := peekKid(tokenStr); kid == "" {
			return v.verifyWithFallback(tokenStr, rot)
		}
	}
	return v.verifyOnce(tokenStr, v.Resolver.ResolveKey)
}

func (v Verifier) verifyOnce(tokenStr string, resolve func(kid string) (any, error)) (Claims, error) {
	expected := signingMethod(v.Resolver.Algorithm())

	// Parse into Claims (whose Valid() always returns nil), not
	// jwt.MapClaims, so the library never runs its own exp/iat/nbf checks
	// during Parse — ValidateClaims below is the only thing that decides
	// expiry/not-yet-valid/malformed-claims errors.
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method.Alg() != expected.Alg() {
			return nil, cryyptoerr.AlgorithmMismatch(expected.Alg(), tok.Method.Alg())
		}
		kid, _ := tok.Header["kid"].(string)
		return resolve(kid)
	})
	if err != nil {
		if kind := cryyptoerr.KindOf(err); kind == cryyptoerr.KindAlgorithmMismatch {
			return nil, err
		}
		return nil, cryyptoerr.InvalidSignature()
	}
	if !parsed.Valid {
		return nil, cryyptoerr.InvalidSignature()
	}

	claims := *parsed.Claims.(*Claims)
	if err := ValidateClaims(claims, v.Options); err != nil {
		return nil, err
	}
	return claims, nil
}

// verifyWithFallback tries every known public key in turn, returning the
// first successful verification. Used only when the token has no kid.
func (v Verifier) verifyWithFallback(tokenStr string, rot *Rotator) (Claims, error) {
	keys := rot.AllPublicKeys()
	if len(keys) == 0 {
		return nil, cryyptoerr.InvalidSignature()
	}
	var lastErr error = cryyptoerr.InvalidSignature()
	for _, pub := range keys {
		claims, err := v.verifyOnce(tokenStr, func(string) (any, error) { return pub, nil })
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// peekKid reads the "kid" header without verifying the signature.
func peekKid(tokenStr string) string {
	parser := jwt.Parser{}
	tok, _, err := parser.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil || tok == nil {
		return ""
	}
	kid, _ := tok.Header["kid"].(string)
	return kid
}
