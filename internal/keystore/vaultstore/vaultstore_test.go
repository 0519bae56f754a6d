package vaultstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/require"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// fakeTransit is a minimal stand-in for Vault's Transit encrypt/decrypt
// endpoints: encrypt base64-wraps the plaintext behind a "vault:v1:"
// prefix and decrypt strips the prefix again, so encrypt/decrypt
// round-trip without needing a real Vault server.
func fakeTransit(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Plaintext  string `json:"plaintext"`
			Ciphertext string `json:"ciphertext"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		resp := map[string]any{}
		switch {
		case strings.Contains(r.URL.Path, "/encrypt/"):
			raw, err := base64.StdEncoding.DecodeString(body.Plaintext)
			require.NoError(t, err)
			resp["data"] = map[string]any{"ciphertext": "vault:v1:" + base64.StdEncoding.EncodeToString(raw)}
		case strings.Contains(r.URL.Path, "/decrypt/"):
			token := strings.TrimPrefix(body.Ciphertext, "vault:v1:")
			resp["data"] = map[string]any{"plaintext": token}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestStore(t *testing.T) *Store {
	srv := fakeTransit(t)
	t.Cleanup(srv.Close)

	cfg := vaultapi.DefaultConfig()
	cfg.Address = srv.URL
	client, err := vaultapi.NewClient(cfg)
	require.NoError(t, err)

	return &Store{client: client, transitKey: "test-key", dir: t.TempDir()}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Store(ctx, "app:v1", []byte("plaintext-key-material")))

	got, err := s.Retrieve(ctx, "app:v1")
	require.NoError(t, err)
	require.Equal(t, []byte("plaintext-key-material"), got)
}

func TestStore_MissingBlobNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Retrieve(ctx, "missing:v1")
	require.Equal(t, cryyptoerr.KindKeyNotFound, cryyptoerr.KindOf(err))
}

func TestNew_RejectsEmptyTransitKey(t *testing.T) {
	_, err := New("", t.TempDir())
	require.Error(t, err)
}
