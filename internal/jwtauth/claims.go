// Package jwtauth implements the JWT subsystem from spec.md §4.E: signing,
// verification with strict algorithm pinning, claims validation, a
// revocation wrapper, and a key rotator that resolves signing/verification
// keys by "kid".
package jwtauth

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// Algorithm names the supported JWS signing algorithms.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	RS256 Algorithm = "RS256"
	ES256 Algorithm = "ES256"
)

// Claims is a thin wrapper around jwt.MapClaims. Valid() always returns
// nil so the underlying library's generic expiry/nbf checks never fire —
// validation follows spec.md §4.E's exact rules instead, applied in
// ValidateClaims below after signature verification succeeds.
type Claims jwt.MapClaims

func (c Claims) Valid() error { return nil }

// Options controls the claims validation a Verifier performs after
// cryptographic verification succeeds.
type Options struct {
	Leeway          time.Duration
	RequiredClaims  []string
	Issuer          string
	Audience        string
	now             func() time.Time // overridable for tests
}

func (o Options) clockNow() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

// ValidateClaims enforces spec.md §4.E's claims rules: exp > now - leeway,
// nbf <= now + leeway, iat <= now + 300s, the required-claim set, issuer
// match, and audience match (string or array membership).
func ValidateClaims(claims Claims, opts Options) error {
	now := opts.clockNow()
	leeway := opts.Leeway

	for _, name := range opts.RequiredClaims {
		if _, ok := claims[name]; !ok {
			return cryyptoerr.InvalidClaims("missing required claim: " + name)
		}
	}

	if expRaw, ok := claims["exp"]; ok {
		exp, ok := asTime(expRaw)
		if !ok {
			return cryyptoerr.InvalidClaims("exp claim is not a valid timestamp")
		}
		if !exp.After(now.Add(-leeway)) {
			return cryyptoerr.TokenExpired()
		}
	}

	if nbfRaw, ok := claims["nbf"]; ok {
		nbf, ok := asTime(nbfRaw)
		if !ok {
			return cryyptoerr.InvalidClaims("nbf claim is not a valid timestamp")
		}
		if nbf.After(now.Add(leeway)) {
			return cryyptoerr.TokenNotYetValid()
		}
	}

	if iatRaw, ok := claims["iat"]; ok {
		iat, ok := asTime(iatRaw)
		if !ok {
			return cryyptoerr.InvalidClaims("iat claim is not a valid timestamp")
		}
		if iat.After(now.Add(300 * time.Second)) {
			return cryyptoerr.InvalidClaims("iat claim is too far in the future")
		}
	}

	if opts.Issuer != "" {
		iss, _ := claims["iss"].(string)
		if iss != opts.Issuer {
			return cryyptoerr.InvalidClaims("issuer mismatch")
		}
	}

	if opts.Audience != "" && !audienceMatches(claims["aud"], opts.Audience) {
		return cryyptoerr.InvalidClaims("audience mismatch")
	}

	return nil
}

func asTime(v any) (time.Time, bool) {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0), true
	case int64:
		return time.Unix(n, 0), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(int64(f), 0), true
	default:
		return time.Time{}, false
	}
}

func audienceMatches(aud any, want string) bool {
	switch v := aud.(type) {
	case string:
		return v == want
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
		return false
	case []string:
		for _, s := range v {
			if s == want {
				return true
			}
		}
		return false
	default:
		return false
	}
}
