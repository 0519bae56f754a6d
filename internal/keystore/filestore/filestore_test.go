package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/key"
)

func newTestStore(t *testing.T) *Store {
	dir := t.TempDir()
	mk := make([]byte, 32)
	for i := range mk {
		mk[i] = byte(i)
	}
	s, err := New(dir, mk)
	require.NoError(t, err)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id := key.ID("billing", 3, "")
	require.NoError(t, s.Store(ctx, id, []byte("super-secret-key-material")))

	got, err := s.Retrieve(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []byte("super-secret-key-material"), got)
}

func TestStore_FileNameSanitizesNamespace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id := key.ID("team/billing.prod", 1, "")
	require.NoError(t, s.Store(ctx, id, []byte("x")))

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "team_billing_prod_1.key", entries[0].Name())
}

func TestStore_MissingKeyNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Retrieve(ctx, key.ID("nope", 1, ""))
	require.Equal(t, cryyptoerr.KindKeyNotFound, cryyptoerr.KindOf(err))
}

func TestStore_TruncatedFileDecryptionFailed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := key.ID("ns", 1, "")
	require.NoError(t, s.Store(ctx, id, []byte("x")))

	path := filepath.Join(s.dir, fileName("ns", 1))
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))

	_, err := s.Retrieve(ctx, id)
	require.Equal(t, cryyptoerr.KindDecryptionFailed, cryyptoerr.KindOf(err))
}

func TestStore_ListKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Store(ctx, key.ID("a", 1, ""), []byte("x")))
	require.NoError(t, s.Store(ctx, key.ID("b", 2, ""), []byte("y")))

	listed, err := s.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}
