package config

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEncryptionKey_HexAndBase64(t *testing.T) {
	raw16 := []byte("0123456789abcdef")
	hexKey := hex.EncodeToString(raw16)
	key, err := DecodeEncryptionKey(hexKey)
	require.NoError(t, err)
	require.Equal(t, raw16, key)

	raw32 := []byte("0123456789abcdef0123456789abcdef")
	b64 := base64.StdEncoding.EncodeToString(raw32)
	key, err = DecodeEncryptionKey(b64)
	require.NoError(t, err)
	require.Equal(t, raw32, key)

	rawStdB64 := base64.RawStdEncoding.EncodeToString(raw32)
	key, err = DecodeEncryptionKey(rawStdB64)
	require.NoError(t, err)
	require.Equal(t, raw32, key)
}

func TestDecodeEncryptionKey_TrimsWhitespace(t *testing.T) {
	raw24 := []byte("0123456789abcdef01234567")
	key, err := DecodeEncryptionKey("  " + hex.EncodeToString(raw24) + "\n")
	require.NoError(t, err)
	require.Equal(t, raw24, key)
}

func TestDecodeEncryptionKey_RejectsWrongLength(t *testing.T) {
	// Valid hex, but 8 bytes decoded — not a legal AES key size.
	_, err := DecodeEncryptionKey(hex.EncodeToString([]byte("shortkey")))
	require.Error(t, err)
}

func TestDecodeEncryptionKey_RejectsEmpty(t *testing.T) {
	_, err := DecodeEncryptionKey("   ")
	require.Error(t, err)
}

func TestDecodeEncryptionKey_RejectsGarbage(t *testing.T) {
	_, err := DecodeEncryptionKey("not hex and not base64 !!!")
	require.Error(t, err)
}
