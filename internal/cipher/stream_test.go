package cipher

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkedCipher_RoundTrip(t *testing.T) {
	ctx := context.Background()
	key := bytes.Repeat([]byte{0x55}, KeySize256)
	enc := NewChunkedEncryptor(AES256GCM, key)

	var wire bytes.Buffer
	chunks := [][]byte{[]byte("chunk-one"), []byte("chunk-two"), []byte("chunk-three")}
	for _, c := range chunks {
		framed, err := enc.EncryptChunk(ctx, c)
		require.NoError(t, err)
		wire.Write(framed)
	}

	dec := NewChunkedDecryptor(AES256GCM, key, &wire)
	for _, want := range chunks {
		got, err := dec.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := dec.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestChunkedCipher_FreshNoncePerChunk(t *testing.T) {
	ctx := context.Background()
	key := bytes.Repeat([]byte{0x66}, KeySize256)
	enc := NewChunkedEncryptor(AES256GCM, key)

	a, err := enc.EncryptChunk(ctx, []byte("same-plaintext"))
	require.NoError(t, err)
	b, err := enc.EncryptChunk(ctx, []byte("same-plaintext"))
	require.NoError(t, err)
	require.NotEqual(t, a, b, "chunk nonces must differ even for identical plaintext")
}
