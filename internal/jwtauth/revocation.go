package jwtauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// RevocationList wraps a Verifier with a set of revoked token hashes and
// an expiration-bounded cleanup task, per spec.md §4.E.
type RevocationList struct {
	verifier Verifier

	mu      sync.Mutex
	revoked map[string]time.Time // sha256(token) hex -> expiry

	cancel context.CancelFunc
}

// NewRevocationList wraps verifier with revocation tracking.
func NewRevocationList(verifier Verifier) *RevocationList {
	return &RevocationList{verifier: verifier, revoked: map[string]time.Time{}}
}

func tokenHash(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return hex.EncodeToString(sum[:])
}

// Revoke marks tokenStr revoked until expiresAt, after which the cleanup
// task may forget it.
func (r *RevocationList) Revoke(tokenStr string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[tokenHash(tokenStr)] = expiresAt
}

// Verify runs cryptographic verification, then consults the revocation
// set. A revoked token yields InvalidSignature, matching spec.md §4.E.
func (r *RevocationList) Verify(tokenStr string) (Claims, error) {
	claims, err := r.verifier.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	_, revoked := r.revoked[tokenHash(tokenStr)]
	r.mu.Unlock()
	if revoked {
		return nil, cryyptoerr.InvalidSignature()
	}
	return claims, nil
}

// StartCleanup runs a background sweep every interval that forgets
// revocation entries whose expiry has passed, until ctx is done or
// StopCleanup is called; StartCleanup is a no-op if already running.
func (r *RevocationList) StartCleanup(ctx context.Context, interval time.Duration) {
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.sweep(now)
			}
		}
	}()
}

func (r *RevocationList) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, expiry := range r.revoked {
		if now.After(expiry) {
			delete(r.revoked, hash)
		}
	}
}

// StopCleanup cancels the background sweep. Safe to call even if
// StartCleanup was never called.
func (r *RevocationList) StopCleanup() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
