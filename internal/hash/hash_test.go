package hash

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/stretchr/testify/require"
)

func TestHMAC_SHA256_E2E(t *testing.T) {
	ctx := context.Background()
	sum, err := New(SHA256).WithHMACKey([]byte("key")).Sum(ctx, []byte("The quick brown fox jumps over the lazy dog"))
	require.NoError(t, err)
	require.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", hex.EncodeToString(sum))
}

func TestHash_Determinism(t *testing.T) {
	ctx := context.Background()
	data := []byte("deterministic input")
	a, err := New(SHA3_256).Sum(ctx, data)
	require.NoError(t, err)
	b, err := New(SHA3_256).Sum(ctx, data)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestHash_StreamingAndOneShotAgree(t *testing.T) {
	ctx := context.Background()
	data := []byte("some longer payload that spans more than one imaginary chunk boundary")

	oneShot, err := New(BLAKE2b256).WithChunkSize(8).Sum(ctx, data)
	require.NoError(t, err)

	streaming, err := NewStreamingHasher(BLAKE2b256)
	require.NoError(t, err)
	_, _ = streaming.Write(data)
	require.Equal(t, oneShot, streaming.Sum())
}

func TestHMAC_KeyingDistinguishesInputs(t *testing.T) {
	ctx := context.Background()
	data := []byte("some shared input")
	a, err := New(SHA256).WithHMACKey([]byte("k1")).Sum(ctx, data)
	require.NoError(t, err)
	b, err := New(SHA256).WithHMACKey([]byte("k2")).Sum(ctx, data)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHMAC_EmptyKeyRejected(t *testing.T) {
	ctx := context.Background()
	_, err := New(SHA256).WithHMACKey([]byte{}).Sum(ctx, []byte("x"))
	require.Equal(t, cryyptoerr.KindInvalidParameters, cryyptoerr.KindOf(err))
}
