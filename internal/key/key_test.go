package key

import (
	"context"
	"sync"
	"testing"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (s *memStore) Store(ctx context.Context, keyID string, plaintext []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(plaintext))
	copy(cp, plaintext)
	s.data[keyID] = cp
	return nil
}

func (s *memStore) Retrieve(ctx context.Context, keyID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[keyID]
	if !ok {
		return nil, cryyptoerr.ItemNotFound(keyID)
	}
	return b, nil
}

func TestID_UniquenessAndCollisionFreedom(t *testing.T) {
	require.Equal(t, ID("ns", 1, ""), ID("ns", 1, ""))
	require.NotEqual(t, ID("ns", 1, ""), ID("ns", 2, ""))
	require.NotEqual(t, ID("ns", 1, "a"), ID("ns", 1, "b"))
}

func TestGenerator_GenerateAndRetrieve(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	gen := NewGenerator(store)

	m, err := gen.Generate(ctx, 256, "ns", 1)
	require.NoError(t, err)
	require.Len(t, m.Bytes(), 32)

	retr := NewRetriever(store)
	got, err := retr.Retrieve(ctx, "ns", 1, "")
	require.NoError(t, err)
	require.Equal(t, m.Bytes(), got.Bytes())
}

func TestGenerator_RejectsUnsupportedSize(t *testing.T) {
	ctx := context.Background()
	_, err := NewGenerator(nil).Generate(ctx, 100, "ns", 1)
	require.Equal(t, cryyptoerr.KindInvalidKey, cryyptoerr.KindOf(err))
}

func TestRetriever_RejectsOutOfRangeVersion(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	retr := NewRetriever(store)

	_, err := retr.Retrieve(ctx, "ns", 0, "")
	require.Error(t, err)
	_, err = retr.Retrieve(ctx, "ns", MaxVersion+1, "")
	require.Error(t, err)
}

func TestRetriever_MissingKeyNotFound(t *testing.T) {
	ctx := context.Background()
	_, err := NewRetriever(newMemStore()).Retrieve(ctx, "ns", 1, "")
	require.Equal(t, cryyptoerr.KindKeyNotFound, cryyptoerr.KindOf(err))
}

func TestGenerateBatch_ZeroizesOnPartialFailure(t *testing.T) {
	ctx := context.Background()
	failing := &failingStore{failAt: 2}
	gen := NewGenerator(failing)

	keys, err := gen.GenerateBatch(ctx, 5, 256, "ns", 1)
	require.Error(t, err)
	require.Nil(t, keys)
}

type failingStore struct {
	n      int
	failAt int
}

func (s *failingStore) Store(ctx context.Context, keyID string, plaintext []byte) error {
	s.n++
	if s.n == s.failAt {
		return cryyptoerr.Internal("boom", nil)
	}
	return nil
}

func TestDerive_PBKDF2_RejectsZeroIterations(t *testing.T) {
	ctx := context.Background()
	cfg := KdfConfig{Algorithm: PBKDF2SHA256, Iterations: 0, SaltSize: 16, OutputSize: 32}
	_, _, err := Derive(ctx, cfg, []byte("input"), nil)
	require.Equal(t, cryyptoerr.KindInvalidParameters, cryyptoerr.KindOf(err))
}

func TestDerive_Argon2idProducesRequestedOutputSize(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultArgon2idConfig()
	out, salt, err := Derive(ctx, cfg, []byte("correct horse battery staple"), nil)
	require.NoError(t, err)
	require.Len(t, out, cfg.OutputSize)
	require.Len(t, salt, cfg.SaltSize)
}

func TestDeriveFast_FillsCallerBuffers(t *testing.T) {
	cfg := KdfConfig{Algorithm: HKDFSHA256, SaltSize: 16, OutputSize: 32}
	salt := make([]byte, 16)
	out := make([]byte, 32)
	require.NoError(t, DeriveFast(cfg, []byte("ikm"), salt, out))
	require.NotEqual(t, make([]byte, 32), out)
}

func TestPassphraseProvider_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := PassphraseProvider{Passphrase: "Correct-Horse-Battery-9!"}.MasterKey(ctx)
	require.NoError(t, err)
	b, err := PassphraseProvider{Passphrase: "Correct-Horse-Battery-9!"}.MasterKey(ctx)
	require.NoError(t, err)
	require.Equal(t, a.Bytes(), b.Bytes())
}
