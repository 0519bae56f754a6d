package jwtauth

import (
	"sync"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// Rotator holds a map of kid -> public key plus a single current
// (kid, private key) pair used for signing, per spec.md §4.E. Signing
// always stamps the current kid; verification resolves by kid from the
// token header and falls back across all known keys when no kid is
// present.
type Rotator struct {
	mu         sync.RWMutex
	alg        Algorithm
	currentKid string
	signer     Signer
	publicKeys map[string]any
}

// NewRotator constructs a Rotator pinned to alg, starting with a single
// signing key under currentKid.
func NewRotator(alg Algorithm, currentKid string, signer Signer, publicKey any) *Rotator {
	return &Rotator{
		alg:        alg,
		currentKid: currentKid,
		signer:     signer,
		publicKeys: map[string]any{currentKid: publicKey},
	}
}

// Rotate installs a new current signing key, keeping the previous key's
// public half available for verification under its old kid.
func (r *Rotator) Rotate(kid string, signer Signer, publicKey any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentKid = kid
	r.signer = signer
	r.publicKeys[kid] = publicKey
}

func (r *Rotator) Algorithm() Algorithm { return r.alg }

// Sign signs claims with the current key and stamps its kid into the
// token header.
func (r *Rotator) Sign(claims Claims) (string, error) {
	r.mu.RLock()
	kid, signer := r.currentKid, r.signer
	r.mu.RUnlock()

	switch s := signer.(type) {
	case HMACSigner:
		s.Kid = kid
		return s.Sign(claims)
	case RSASigner:
		s.Kid = kid
		return s.Sign(claims)
	case ECSigner:
		s.Kid = kid
		return s.Sign(claims)
	default:
		return signer.Sign(claims)
	}
}

// ResolveKey implements KeyResolver. A known kid resolves to its key and
// an unknown kid is KeyNotFound. With no kid it returns the current key
// (or any known key); trying every known key for a kid-less token is done
// by Verifier.Verify itself, using AllPublicKeys.
func (r *Rotator) ResolveKey(kid string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if kid != "" {
		if k, ok := r.publicKeys[kid]; ok {
			return k, nil
		}
		return nil, cryyptoerr.KeyNotFound(kid, 0)
	}
	if len(r.publicKeys) == 0 {
		return nil, cryyptoerr.KeyNotFound("", 0)
	}
	// No kid in the token: return the current key; the jwt library calls
	// ResolveKey exactly once per parse, so the multi-key fallback is
	// implemented by Verifier.verifyWithFallback in verify.go.
	if k, ok := r.publicKeys[r.currentKid]; ok {
		return k, nil
	}
	for _, k := range r.publicKeys {
		return k, nil
	}
	return nil, cryyptoerr.KeyNotFound("", 0)
}

// AllPublicKeys returns a snapshot of every known kid -> public key pair,
// used by Verifier.verifyWithFallback to retry verification against each key in
// turn when a token carries no kid.
func (r *Rotator) AllPublicKeys() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.publicKeys))
	for k, v := range r.publicKeys {
		out[k] = v
	}
	return out
}
