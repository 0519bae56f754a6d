// Package vaultcore implements the persistent encrypted secrets vault:
// entry model, encryption at rest, sessions, caching, transactions, and
// backup/restore, composing the cipher (A), key (B/C), and JWT (E)
// subsystems over an abstracted document store.
package vaultcore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/key"
	"github.com/cyrup-ai/cryypt/internal/vaultcache"
	"github.com/cyrup-ai/cryypt/internal/vaultstore"
)

const (
	systemNamespace = "__system__"
	masterRecordKey = "__vault_master__"
	kdfSaltSize     = 16
)

// sessionKeySize returns the session/master key length required by alg:
// 64 bytes for the even-split cascade, 32 for a single AEAD cipher.
func sessionKeySize(alg AtRestCipher) int {
	if alg == AtRestCascade {
		return 64
	}
	return 32
}

// masterKeyEnvelope is the on-disk, passphrase-wrapped master key record
// (spec.md §4.G: "wrapped master-key record").
type masterKeyEnvelope struct {
	Salt    []byte `json:"salt"`
	Wrapped []byte `json:"wrapped"`
}

// Vault composes the document store, at-rest cipher, read cache, and
// session guard into spec.md §4.F's operation set.
type Vault struct {
	store   *vaultstore.Store
	cache   *vaultcache.Cache
	session *Session
	alg     AtRestCipher
}

// Config bundles the knobs New needs.
type Config struct {
	Store       *vaultstore.Store
	Cache       *vaultcache.Cache
	RSAKeyPath  string
	SessionTTL  time.Duration
	AtRestAlg   AtRestCipher
}

func New(cfg Config) *Vault {
	v := &Vault{
		store:   cfg.Store,
		cache:   cfg.Cache,
		session: NewSession(cfg.RSAKeyPath, cfg.SessionTTL),
		alg:     cfg.AtRestAlg,
	}
	// Every lock transition, explicit or via emergency lockdown, purges
	// cached decrypted values so no plaintext buffer survives it.
	v.session.onLock = func() { v.cache.Invalidate(vaultcache.All()) }
	return v
}

func (v *Vault) Session() *Session { return v.session }

// Initialize creates a brand-new master key, wraps it with a
// passphrase-derived key, and persists the envelope. It fails if a
// vault already exists at this store.
func (v *Vault) Initialize(ctx context.Context, passphrase string) error {
	existing, err := v.store.Get(ctx, masterRecordKey)
	if err != nil {
		return err
	}
	if existing != nil {
		return cryyptoerr.InvalidParameters("vault already initialized")
	}

	masterKey, err := randomBytes(sessionKeySize(v.alg))
	if err != nil {
		return err
	}
	defer zero(masterKey)

	env, err := wrapMasterKey(passphrase, masterKey)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return cryyptoerr.SerializationError(err)
	}
	return v.store.Put(ctx, vaultstore.Record{
		Key:        masterRecordKey,
		Namespace:  systemNamespace,
		Ciphertext: blob,
	})
}

// Unlock implements spec.md §4.G's unlock(passphrase).
func (v *Vault) Unlock(ctx context.Context, passphrase, unlockedBy string) error {
	rec, err := v.store.Get(ctx, masterRecordKey)
	if err != nil {
		return err
	}
	if rec == nil {
		return cryyptoerr.ItemNotFound(masterRecordKey)
	}

	var env masterKeyEnvelope
	if err := json.Unmarshal(rec.Ciphertext, &env); err != nil {
		return cryyptoerr.SerializationError(err)
	}

	masterKey, err := unwrapMasterKey(passphrase, env)
	if err != nil {
		return err
	}

	if err := v.session.Unlock(ctx, masterKey, unlockedBy); err != nil {
		zero(masterKey)
		return err
	}
	return nil
}

// Lock transitions the session back to Locked and purges every cached
// decrypted value, per spec.md §4.G/§9.
func (v *Vault) Lock() { v.session.Lock() }

// ChangePassphrase re-wraps the master key under a new passphrase. Data
// on disk is untouched since it is encrypted with the master key, not
// the passphrase-derived key.
func (v *Vault) ChangePassphrase(ctx context.Context, old, new string) error {
	if err := v.session.CheckUnlocked(ctx); err != nil {
		return err
	}

	rec, err := v.store.Get(ctx, masterRecordKey)
	if err != nil {
		return err
	}
	if rec == nil {
		return cryyptoerr.ItemNotFound(masterRecordKey)
	}
	var env masterKeyEnvelope
	if err := json.Unmarshal(rec.Ciphertext, &env); err != nil {
		return cryyptoerr.SerializationError(err)
	}

	masterKey, err := unwrapMasterKey(old, env)
	if err != nil {
		return err
	}
	defer zero(masterKey)

	newEnv, err := wrapMasterKey(new, masterKey)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(newEnv)
	if err != nil {
		return cryyptoerr.SerializationError(err)
	}
	return v.store.Put(ctx, vaultstore.Record{
		Key:        masterRecordKey,
		Namespace:  systemNamespace,
		Ciphertext: blob,
	})
}

// Put upserts key with value under the empty namespace.
func (v *Vault) Put(ctx context.Context, key string, value []byte) error {
	return v.putRecord(ctx, key, "", value, nil, "")
}

// PutWithNamespace is equivalent to Put("<ns>/<key>", value) plus sets
// the entry's namespace field, in a single write.
func (v *Vault) PutWithNamespace(ctx context.Context, namespace, key string, value []byte) error {
	return v.putRecord(ctx, namespace+"/"+key, namespace, value, nil, "")
}

// PutWithExpiry upserts key with an expiry timestamp; t must be after now.
func (v *Vault) PutWithExpiry(ctx context.Context, key string, value []byte, t time.Time) error {
	if !t.After(time.Now()) {
		return cryyptoerr.InvalidParameters("expires_at must be in the future")
	}
	return v.putRecord(ctx, key, "", value, &t, "")
}

func (v *Vault) putRecord(ctx context.Context, key, namespace string, value []byte, expiresAt *time.Time, metadata string) error {
	if err := v.session.CheckUnlocked(ctx); err != nil {
		return err
	}
	ciphertext, err := sealValue(ctx, v.alg, v.session.SessionKey(), value)
	if err != nil {
		return err
	}
	if err := v.store.Put(ctx, vaultstore.Record{
		Key:        key,
		Namespace:  namespace,
		Ciphertext: ciphertext,
		Metadata:   metadata,
		ExpiresAt:  expiresAt,
	}); err != nil {
		return err
	}
	v.cache.Insert(key, value, expiryOrZero(expiresAt))
	return nil
}

// Get returns the decrypted value for key, or (nil, false, nil) if
// absent or expired.
func (v *Vault) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := v.session.CheckUnlocked(ctx); err != nil {
		return nil, false, err
	}

	if entry, ok := v.cache.Lookup(key); ok {
		return entry.Value, true, nil
	}

	rec, err := v.store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	plaintext, err := openValue(ctx, v.alg, v.session.SessionKey(), rec.Ciphertext)
	if err != nil {
		return nil, false, err
	}
	v.cache.Insert(key, plaintext, expiryOrZero(rec.ExpiresAt))
	return plaintext, true, nil
}

// Delete idempotently removes key.
func (v *Vault) Delete(ctx context.Context, key string) error {
	if err := v.session.CheckUnlocked(ctx); err != nil {
		return err
	}
	if err := v.store.Delete(ctx, key); err != nil {
		return err
	}
	v.cache.Invalidate(KeyPatternExact(key))
	return nil
}

// KeyPatternExact builds an invalidation strategy that removes key from
// the cache. KeyPattern matches by plain substring, so any other cached
// key that contains key is removed as well.
func KeyPatternExact(key string) vaultcache.InvalidationStrategy {
	return vaultcache.KeyPattern(key)
}

// FoundEntry is a decrypted (key, value) pair emitted by Find.
type FoundEntry struct {
	Key   string
	Value []byte
}

// Find streams (key, value) pairs whose keys match a POSIX-like regex,
// decrypting each value on emission.
func (v *Vault) Find(ctx context.Context, pattern string) (*asynctask.Stream[FoundEntry], error) {
	if err := v.session.CheckUnlocked(ctx); err != nil {
		return nil, err
	}
	matched, err := v.store.Find(ctx, pattern)
	if err != nil {
		return nil, err
	}
	sessionKey := v.session.SessionKey()
	alg := v.alg
	return asynctask.NewStream(ctx, 16, func(ctx context.Context, emit func(FoundEntry) bool) {
		for _, rec := range matched {
			plaintext, err := openValue(ctx, alg, sessionKey, rec.Ciphertext)
			if err != nil {
				continue
			}
			if !emit(FoundEntry{Key: rec.Key, Value: plaintext}) {
				return
			}
		}
	}), nil
}

// List streams all keys.
func (v *Vault) List(ctx context.Context) (*asynctask.Stream[string], error) {
	if err := v.session.CheckUnlocked(ctx); err != nil {
		return nil, err
	}
	keys, err := v.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return asynctask.NewStream(ctx, 16, func(ctx context.Context, emit func(string) bool) {
		for _, k := range keys {
			if !emit(k) {
				return
			}
		}
	}), nil
}

// PutEntry is one item of an atomic batch upsert.
type PutEntry struct {
	Key       string
	Namespace string
	Value     []byte
	ExpiresAt *time.Time
}

// PutAll atomically upserts every entry within a single transaction.
func (v *Vault) PutAll(ctx context.Context, entries []PutEntry) error {
	if err := v.session.CheckUnlocked(ctx); err != nil {
		return err
	}
	sessionKey := v.session.SessionKey()
	recs := make([]vaultstore.Record, 0, len(entries))
	for _, e := range entries {
		ciphertext, err := sealValue(ctx, v.alg, sessionKey, e.Value)
		if err != nil {
			return err
		}
		recs = append(recs, vaultstore.Record{
			Key:        e.Key,
			Namespace:  e.Namespace,
			Ciphertext: ciphertext,
			ExpiresAt:  e.ExpiresAt,
		})
	}
	if err := v.store.PutAll(ctx, recs); err != nil {
		return err
	}
	for _, e := range entries {
		v.cache.Insert(e.Key, e.Value, expiryOrZero(e.ExpiresAt))
	}
	return nil
}

// backupEntry is the JSON shape of one entry within an encrypted backup.
type backupEntry struct {
	Key        string     `json:"key"`
	Namespace  string     `json:"namespace"`
	Ciphertext []byte     `json:"ciphertext"`
	Metadata   string     `json:"metadata"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type backupFile struct {
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Entries   []backupEntry `json:"entries"`
}

const backupVersion = 1

// CreateEncryptedBackup serializes every entry (including expired) as
// JSON and encrypts it with a key derived from pass.
func (v *Vault) CreateEncryptedBackup(ctx context.Context, pass string) ([]byte, error) {
	if err := v.session.CheckUnlocked(ctx); err != nil {
		return nil, err
	}
	all, err := v.store.All(ctx)
	if err != nil {
		return nil, err
	}

	file := backupFile{Version: backupVersion, CreatedAt: time.Now()}
	for _, rec := range all {
		if rec.Key == masterRecordKey {
			continue
		}
		file.Entries = append(file.Entries, backupEntry{
			Key: rec.Key, Namespace: rec.Namespace, Ciphertext: rec.Ciphertext,
			Metadata: rec.Metadata, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt,
			ExpiresAt: rec.ExpiresAt,
		})
	}

	plaintext, err := json.Marshal(file)
	if err != nil {
		return nil, cryyptoerr.SerializationError(err)
	}

	salt, err := randomBytes(kdfSaltSize)
	if err != nil {
		return nil, err
	}
	backupKey, err := deriveKDFKey(pass, salt, 32)
	if err != nil {
		return nil, err
	}
	defer zero(backupKey)

	ciphertext, err := sealValue(ctx, AtRestAESGCM, backupKey, plaintext)
	if err != nil {
		return nil, err
	}

	return json.Marshal(masterKeyEnvelope{Salt: salt, Wrapped: ciphertext})
}

// RestoreStats reports the outcome of RestoreFromEncryptedBackup.
type RestoreStats struct {
	Processed int
	Restored  int
	Skipped   int
	Failed    int
}

// RestoreFromEncryptedBackup decrypts blob, deserializes it, and for
// each entry upserts unless it already exists and overwriteExisting is
// false.
func (v *Vault) RestoreFromEncryptedBackup(ctx context.Context, blob []byte, pass string, overwriteExisting bool) (RestoreStats, error) {
	var stats RestoreStats
	if err := v.session.CheckUnlocked(ctx); err != nil {
		return stats, err
	}

	var env masterKeyEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return stats, cryyptoerr.SerializationError(err)
	}
	backupKey, err := deriveKDFKey(pass, env.Salt, 32)
	if err != nil {
		return stats, err
	}
	defer zero(backupKey)

	plaintext, err := openValue(ctx, AtRestAESGCM, backupKey, env.Wrapped)
	if err != nil {
		return stats, err
	}

	var file backupFile
	if err := json.Unmarshal(plaintext, &file); err != nil {
		return stats, cryyptoerr.SerializationError(err)
	}

	for _, be := range file.Entries {
		stats.Processed++

		existing, err := v.store.Get(ctx, be.Key)
		if err != nil {
			stats.Failed++
			continue
		}
		if existing != nil && !overwriteExisting {
			stats.Skipped++
			continue
		}

		// Backup ciphertext was sealed under the vault's session key at
		// export time, unaffected by the backup passphrase; re-seal is
		// unnecessary since the bytes are stored as-is.
		if err := v.store.Put(ctx, vaultstore.Record{
			Key: be.Key, Namespace: be.Namespace, Ciphertext: be.Ciphertext,
			Metadata: be.Metadata, ExpiresAt: be.ExpiresAt,
		}); err != nil {
			stats.Failed++
			continue
		}
		v.cache.Invalidate(KeyPatternExact(be.Key))
		stats.Restored++
	}
	return stats, nil
}

func expiryOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func wrapMasterKey(passphrase string, masterKey []byte) (masterKeyEnvelope, error) {
	salt, err := randomBytes(kdfSaltSize)
	if err != nil {
		return masterKeyEnvelope{}, err
	}
	kek, err := deriveKDFKey(passphrase, salt, 32)
	if err != nil {
		return masterKeyEnvelope{}, err
	}
	defer zero(kek)

	wrapped, err := sealValue(context.Background(), AtRestAESGCM, kek, masterKey)
	if err != nil {
		return masterKeyEnvelope{}, err
	}
	return masterKeyEnvelope{Salt: salt, Wrapped: wrapped}, nil
}

func unwrapMasterKey(passphrase string, env masterKeyEnvelope) ([]byte, error) {
	kek, err := deriveKDFKey(passphrase, env.Salt, 32)
	if err != nil {
		return nil, err
	}
	defer zero(kek)

	masterKey, err := openValue(context.Background(), AtRestAESGCM, kek, env.Wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w", cryyptoerr.AuthenticationFailed())
	}
	return masterKey, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, cryyptoerr.Internal("vaultcore: random bytes", err)
	}
	return b, nil
}

// deriveKDFKey runs Argon2id over (passphrase, salt), per spec.md
// §4.F's "session key is derived from the passphrase via Argon2id with
// vault-scoped salt".
func deriveKDFKey(passphrase string, salt []byte, outputSize int) ([]byte, error) {
	cfg := key.DefaultArgon2idConfig()
	cfg.OutputSize = outputSize
	out, _, err := key.Derive(context.Background(), cfg, []byte(passphrase), salt)
	return out, err
}
