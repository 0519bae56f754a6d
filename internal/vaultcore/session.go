package vaultcore

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/jwtauth"
	"github.com/cyrup-ai/cryypt/internal/key"
)

// State is one of the vault session's closed set of states, per
// spec.md §4.G.
type State int

const (
	Locked State = iota
	Unlocking
	Unlocked
	EmergencyLockdown
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	case EmergencyLockdown:
		return "emergency_lockdown"
	default:
		return "unknown"
	}
}

// Session guards access to the vault's master key and session token.
// The locked flag and the session token are protected by separate
// mutexes so check_unlocked can read one, then the other, and release
// both before running (lock-free) validation, per spec.md §4.G's
// ordering guarantee.
type Session struct {
	rsaKeyPath string

	stateMu sync.Mutex
	state   State

	tokenMu        sync.Mutex
	token          string
	lastValidated  time.Time

	sessionKeyMu sync.Mutex
	sessionKey   []byte // zeroized on lock

	jwtSigner   jwtauth.Signer
	jwtVerifier jwtauth.Verifier
	maxAge      time.Duration

	// onLock runs whenever the session transitions to Locked, whether via
	// an explicit Lock or EmergencyLockdown. Set by Vault to purge the
	// decrypted-value cache, since the session itself holds no cache
	// reference.
	onLock func()
}

// NewSession constructs a locked Session. rsaKeyPath names the PEM file
// holding the RSA keypair used to sign/verify session JWTs; it is read
// (or generated and written with 0600 permissions) on each Unlock.
// CheckUnlocked verifies against the public key captured at that Unlock
// and does not re-read the file.
func NewSession(rsaKeyPath string, maxAge time.Duration) *Session {
	return &Session{rsaKeyPath: rsaKeyPath, state: Locked, maxAge: maxAge}
}

func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// loadRSAKey reads (or generates and persists, on first use) the
// session-signing RSA keypair, never writing it anywhere but
// rsaKeyPath with 0600 permissions.
func (s *Session) loadRSAKey() (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(s.rsaKeyPath)
	if err == nil {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, cryyptoerr.Malformed("vaultcore: invalid session RSA key PEM")
		}
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, cryyptoerr.Malformed("vaultcore: invalid session RSA key: " + err.Error())
		}
		return priv, nil
	}
	if !os.IsNotExist(err) {
		return nil, cryyptoerr.IO(err)
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, cryyptoerr.KeyDerivationFailed(err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}
	if err := os.WriteFile(s.rsaKeyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, cryyptoerr.IO(err)
	}
	return priv, nil
}

// Unlock installs sessionKey (already derived and unwrapped by the
// caller, e.g. Vault.Unlock, since key derivation parameters are
// vault-scoped), then transitions Locked -> Unlocking -> Unlocked,
// issuing a new session JWT signed with the on-disk RSA key.
func (s *Session) Unlock(ctx context.Context, sessionKey []byte, unlockedBy string) error {
	s.stateMu.Lock()
	s.state = Unlocking
	s.stateMu.Unlock()

	rsaKey, err := s.loadRSAKey()
	if err != nil {
		s.toLocked()
		return err
	}

	signer := jwtauth.RSASigner{Key: rsaKey, Kid: "vault-session"}
	now := time.Now()
	claims := jwtauth.Claims{
		"sub": unlockedBy,
		"iat": now.Unix(),
		"exp": now.Add(s.maxAge).Unix(),
	}
	token, err := signer.Sign(claims)
	if err != nil {
		s.toLocked()
		return err
	}

	s.sessionKeyMu.Lock()
	s.sessionKey = sessionKey
	s.sessionKeyMu.Unlock()

	s.tokenMu.Lock()
	s.token = token
	s.lastValidated = now
	s.tokenMu.Unlock()

	s.jwtSigner = signer
	s.jwtVerifier = jwtauth.Verifier{
		Resolver: jwtauth.StaticResolver{Alg: jwtauth.RS256, Key: &rsaKey.PublicKey},
		Options:  jwtauth.Options{RequiredClaims: []string{"sub", "exp", "iat"}},
	}

	s.stateMu.Lock()
	s.state = Unlocked
	s.stateMu.Unlock()

	charmlog.Info("vault unlocked", "by", unlockedBy)
	return nil
}

// CheckUnlocked implements spec.md §4.G's check_unlocked: a fast locked
// check, then a JWT validity check with a 5-second timeout. Any
// timeout, verification failure, or missing token triggers emergency
// lockdown and fails with VaultLocked.
func (s *Session) CheckUnlocked(ctx context.Context) error {
	s.stateMu.Lock()
	locked := s.state != Unlocked
	s.stateMu.Unlock()
	if locked {
		return cryyptoerr.VaultLocked()
	}

	s.tokenMu.Lock()
	token := s.token
	s.tokenMu.Unlock()

	if token == "" {
		s.EmergencyLockdown()
		return cryyptoerr.VaultLocked()
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		_, err := s.jwtVerifier.Verify(token)
		result <- err
	}()

	select {
	case err := <-result:
		if err != nil {
			s.EmergencyLockdown()
			return cryyptoerr.VaultLocked()
		}
	case <-checkCtx.Done():
		s.EmergencyLockdown()
		return cryyptoerr.VaultLocked()
	}

	s.tokenMu.Lock()
	s.lastValidated = time.Now()
	s.tokenMu.Unlock()
	return nil
}

// SessionKey returns the current session key. Callers must not retain
// the returned slice past the next lock/lockdown.
func (s *Session) SessionKey() []byte {
	s.sessionKeyMu.Lock()
	defer s.sessionKeyMu.Unlock()
	return s.sessionKey
}

// Lock transitions to Locked, zeroizing the session key and clearing
// the token.
func (s *Session) Lock() {
	s.toLocked()
}

// EmergencyLockdown zeroizes the session key, clears the JWT, sets
// locked, and persists a lockdown marker alongside the RSA key file.
func (s *Session) EmergencyLockdown() {
	s.stateMu.Lock()
	s.state = EmergencyLockdown
	s.stateMu.Unlock()

	s.toLocked()

	marker := s.rsaKeyPath + ".lockdown"
	_ = os.WriteFile(marker, []byte(time.Now().UTC().Format(time.RFC3339)), 0o600)
	charmlog.Warn("vault emergency lockdown engaged")
}

func (s *Session) toLocked() {
	s.sessionKeyMu.Lock()
	for i := range s.sessionKey {
		s.sessionKey[i] = 0
	}
	s.sessionKey = nil
	s.sessionKeyMu.Unlock()

	s.tokenMu.Lock()
	s.token = ""
	s.tokenMu.Unlock()

	s.stateMu.Lock()
	s.state = Locked
	s.stateMu.Unlock()

	if s.onLock != nil {
		s.onLock()
	}
}

// DeriveSessionKey derives a session key of outputSize bytes from
// passphrase via Argon2id, using a vault-scoped salt. Used by Vault's
// unlock/change-passphrase operations.
func DeriveSessionKey(passphrase string, salt []byte, outputSize int) ([]byte, error) {
	cfg := key.DefaultArgon2idConfig()
	cfg.OutputSize = outputSize
	out, _, err := key.Derive(context.Background(), cfg, []byte(passphrase), salt)
	return out, err
}
