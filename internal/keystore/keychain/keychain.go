// Package keychain delegates key persistence to the platform secret
// service, per spec.md §4.C's "OS credential store" backend.
//
// No credential-manager client library appears anywhere in the retrieval
// pack this module was built against, so the platform boundary is kept
// behind the Backend interface below. The default Backend (memBackend) is
// NOT a real OS keychain: it is a process-local map that does not persist
// across restarts and exists only so Store is usable without a platform
// implementation wired in. A real deployment must supply its own Backend
// against darwin/Keychain, Windows Credential Manager, or a Secret
// Service D-Bus client; until one is wired in, this package does not
// provide the persistence spec.md §4.C describes.
package keychain

import (
	"context"
	"sync"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/key"
)

// Backend is the minimal platform secret-service surface this package
// needs. A production build wires a real OS-specific implementation;
// the in-memory memBackend below is the default used when none is supplied.
type Backend interface {
	Set(service, account string, secret []byte) error
	Get(service, account string) ([]byte, error)
}

// memBackend is the default Backend: process-local, non-persistent.
type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBackend() *memBackend { return &memBackend{data: map[string][]byte{}} }

func (m *memBackend) Set(service, account string, secret []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(secret))
	copy(cp, secret)
	m.data[service+"\x00"+account] = cp
	return nil
}

func (m *memBackend) Get(service, account string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// A missing entry yields an empty byte sequence rather than an error —
	// key.Retriever maps that to KeyNotFound.
	return m.data[service+"\x00"+account], nil
}

// Store adapts a Backend to key.Storage/key.Retrieval/key.Lister, keyed
// by a fixed "service" namespace and per-key "account" names.
type Store struct {
	service string
	backend Backend

	mu   sync.Mutex
	keys map[string]key.ListedKey // account -> listed key, for ListKeys
}

// New constructs a Store under the given service namespace (e.g. an
// application identifier registered with the OS secret service). A nil
// backend uses the in-memory stand-in.
func New(service string, backend Backend) *Store {
	if backend == nil {
		backend = newMemBackend()
	}
	return &Store{service: service, backend: backend, keys: map[string]key.ListedKey{}}
}

func (s *Store) Store(ctx context.Context, keyID string, plaintext []byte) error {
	namespace, version, _, err := key.ParseID(keyID)
	if err != nil {
		return err
	}
	if err := s.backend.Set(s.service, keyID, plaintext); err != nil {
		return cryyptoerr.Provider("keychain: set failed", err)
	}
	s.mu.Lock()
	s.keys[keyID] = key.ListedKey{Namespace: namespace, Version: version}
	s.mu.Unlock()
	return nil
}

// Retrieve returns the raw bytes stored under keyID, or an empty slice
// if the platform secret service has no such entry — per spec.md §4.C,
// the empty-sequence-for-missing-key behavior is surfaced here and
// mapped to KeyNotFound by key.Retriever, not by this package.
func (s *Store) Retrieve(ctx context.Context, keyID string) ([]byte, error) {
	b, err := s.backend.Get(s.service, keyID)
	if err != nil {
		return nil, cryyptoerr.Provider("keychain: get failed", err)
	}
	return b, nil
}

func (s *Store) ListKeys(ctx context.Context) ([]key.ListedKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]key.ListedKey, 0, len(s.keys))
	for _, lk := range s.keys {
		out = append(out, lk)
	}
	return out, nil
}
