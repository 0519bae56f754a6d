package vaultcore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/cyrup-ai/cryypt/internal/vaultcache"
	"github.com/cyrup-ai/cryypt/internal/vaultstore"
)

func newTestVault(t *testing.T) *Vault {
	store, err := vaultstore.Open(":memory:")
	require.NoError(t, err)

	metrics := vaultcache.NewMetrics(prometheus.NewRegistry())
	cache, err := vaultcache.New(64, metrics)
	require.NoError(t, err)

	rsaPath := filepath.Join(t.TempDir(), "session.pem")
	v := New(Config{
		Store:      store,
		Cache:      cache,
		RSAKeyPath: rsaPath,
		SessionTTL: time.Hour,
		AtRestAlg:  AtRestAESGCM,
	})
	return v
}

func unlockTestVault(t *testing.T, v *Vault, passphrase string) {
	ctx := context.Background()
	require.NoError(t, v.Initialize(ctx, passphrase))
	require.NoError(t, v.Unlock(ctx, passphrase, "test-user"))
}

func TestVault_InitializeUnlockPutGet(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "correct horse battery staple")

	require.NoError(t, v.Put(ctx, "hello", []byte("world")))

	val, ok, err := v.Get(ctx, "hello")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("world"), val)
}

func TestVault_GetMissingReturnsFalse(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	_, ok, err := v.Get(ctx, "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVault_OperationsFailWhenLocked(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	require.NoError(t, v.Initialize(ctx, "pw"))

	err := v.Put(ctx, "k", []byte("v"))
	require.Error(t, err)
}

func TestVault_PutWithNamespaceSingleWrite(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	require.NoError(t, v.PutWithNamespace(ctx, "team", "alpha", []byte("secret")))

	val, ok, err := v.Get(ctx, "team/alpha")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("secret"), val)
}

func TestVault_PutWithExpiryRejectsPastTime(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	err := v.PutWithExpiry(ctx, "k", []byte("v"), time.Now().Add(-time.Minute))
	require.Error(t, err)
}

func TestVault_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	require.NoError(t, v.Put(ctx, "k", []byte("v")))
	require.NoError(t, v.Delete(ctx, "k"))
	require.NoError(t, v.Delete(ctx, "k"))
}

func TestVault_ChangePassphraseKeepsDataReadable(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "old-pass")
	require.NoError(t, v.Put(ctx, "k", []byte("v")))

	require.NoError(t, v.ChangePassphrase(ctx, "old-pass", "new-pass"))

	val, ok, err := v.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), val)

	v.Lock()
	require.NoError(t, v.Unlock(ctx, "new-pass", "test-user"))
	val, ok, err = v.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), val)
}

func TestVault_ChangePassphraseRejectsWrongOld(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "old-pass")

	err := v.ChangePassphrase(ctx, "wrong-pass", "new-pass")
	require.Error(t, err)
}

func TestVault_PutAllAtomicBatch(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	err := v.PutAll(ctx, []PutEntry{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
	})
	require.NoError(t, err)

	val, ok, err := v.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("2"), val)
}

func TestVault_FindStreamsMatches(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	require.NoError(t, v.Put(ctx, "sessions/1", []byte("a")))
	require.NoError(t, v.Put(ctx, "profiles/1", []byte("b")))

	stream, err := v.Find(ctx, "^sessions/")
	require.NoError(t, err)

	found := stream.Collect()
	require.Len(t, found, 1)
	require.Equal(t, "sessions/1", found[0].Key)
	require.Equal(t, []byte("a"), found[0].Value)
}

func TestVault_BackupAndRestore(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")
	require.NoError(t, v.Put(ctx, "k1", []byte("v1")))
	require.NoError(t, v.Put(ctx, "k2", []byte("v2")))

	blob, err := v.CreateEncryptedBackup(ctx, "backup-pass")
	require.NoError(t, err)

	require.NoError(t, v.Delete(ctx, "k1"))

	stats, err := v.RestoreFromEncryptedBackup(ctx, blob, "backup-pass", false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Processed)
	require.Equal(t, 1, stats.Restored)
	require.Equal(t, 1, stats.Skipped)

	val, ok, err := v.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), val)
}

func TestVault_RestoreOverwriteExisting(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")
	require.NoError(t, v.Put(ctx, "k1", []byte("v1")))

	blob, err := v.CreateEncryptedBackup(ctx, "backup-pass")
	require.NoError(t, err)

	require.NoError(t, v.Put(ctx, "k1", []byte("changed")))

	stats, err := v.RestoreFromEncryptedBackup(ctx, blob, "backup-pass", true)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Restored)

	val, _, err := v.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), val)
}
