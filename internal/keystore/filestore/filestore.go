// Package filestore implements spec.md §4.C's encrypted file store: each
// key record is written as nonce||AES-256-GCM(master_key; key_material)
// under a filename derived from its namespace and version.
package filestore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/key"
)

const (
	nonceSize = 12
	tagSize   = 16
	// minFileLen is 12-byte nonce + 16-byte GCM tag; anything shorter cannot
	// possibly be a valid record (spec.md §4.C).
	minFileLen = nonceSize + tagSize
)

// Store is a directory-backed encrypted key store. All records are
// authenticated at rest under a single master key supplied at
// construction.
type Store struct {
	dir       string
	masterKey []byte
}

// New constructs a Store rooted at dir, authenticating records under
// masterKey (must be 32 bytes, AES-256-GCM).
func New(dir string, masterKey []byte) (*Store, error) {
	if len(masterKey) != 32 {
		return nil, cryyptoerr.InvalidKeySize(32, len(masterKey))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, cryyptoerr.IO(err)
	}
	return &Store{dir: dir, masterKey: masterKey}, nil
}

func (s *Store) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return nil, cryyptoerr.Internal("filestore: aes cipher", err)
	}
	return cipher.NewGCM(block)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func sanitizeNamespace(ns string) string {
	return unsafeChars.ReplaceAllString(ns, "_")
}

func fileName(namespace string, version int) string {
	return fmt.Sprintf("%s_%d.key", sanitizeNamespace(namespace), version)
}

// Store persists plaintext under keyID, encrypting it with the store's
// master key. keyID is parsed back into (namespace, version) to derive
// the on-disk filename.
func (s *Store) Store(ctx context.Context, keyID string, plaintext []byte) error {
	namespace, version, _, err := key.ParseID(keyID)
	if err != nil {
		return err
	}
	gcm, err := s.gcm()
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return cryyptoerr.EncryptionFailed(err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	record := make([]byte, nonceSize+len(sealed))
	n := copy(record, nonce)
	copy(record[n:], sealed)

	path := filepath.Join(s.dir, fileName(namespace, version))
	if err := os.WriteFile(path, record, 0o600); err != nil {
		return cryyptoerr.IO(err)
	}
	return nil
}

// Retrieve decrypts and returns the plaintext key bytes for keyID.
func (s *Store) Retrieve(ctx context.Context, keyID string) ([]byte, error) {
	namespace, version, _, err := key.ParseID(keyID)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, fileName(namespace, version))
	record, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cryyptoerr.KeyNotFound(keyID, version)
		}
		return nil, cryyptoerr.IO(err)
	}
	if len(record) < minFileLen {
		return nil, cryyptoerr.DecryptionFailed()
	}
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}
	nonce := record[:nonceSize]
	ct := record[nonceSize:]
	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, cryyptoerr.DecryptionFailed()
	}
	return plain, nil
}

// ListKeys enumerates the store directory and parses filenames back into
// (namespace, version) pairs, per spec.md §4.C's list_keys().
func (s *Store) ListKeys(ctx context.Context) ([]key.ListedKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	var out []key.ListedKey
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".key") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ".key")
		idx := strings.LastIndex(base, "_")
		if idx < 0 {
			continue
		}
		ns, verStr := base[:idx], base[idx+1:]
		version, err := strconv.Atoi(verStr)
		if err != nil {
			continue
		}
		out = append(out, key.ListedKey{Namespace: ns, Version: version})
	}
	return out, nil
}
