package cryptocmd

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/cipher"
)

func run(t *testing.T, app *cli.Command, args ...string) {
	require.NoError(t, app.Run(context.Background(), append([]string{"cryyptctl"}, args...)))
}

func TestParseCipherAlgorithm(t *testing.T) {
	alg, err := parseCipherAlgorithm("")
	require.NoError(t, err)
	require.Equal(t, cipher.AES256GCM, alg)

	alg, err = parseCipherAlgorithm("chacha20poly1305")
	require.NoError(t, err)
	require.Equal(t, cipher.ChaCha20Poly1305, alg)

	_, err = parseCipherAlgorithm("rot13")
	require.Error(t, err)
}

func TestEncryptDecrypt_FileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	inFile := filepath.Join(dir, "plain.txt")
	encFile := filepath.Join(dir, "enc.bin")
	outFile := filepath.Join(dir, "roundtrip.txt")
	require.NoError(t, os.WriteFile(inFile, []byte("top secret"), 0o600))

	key := hex.EncodeToString(make([]byte, 32))

	app := &cli.Command{Name: "cryyptctl", Commands: []*cli.Command{encryptCommand(), decryptCommand()}}
	run(t, app, "encrypt", "--in", inFile, "--out", encFile, "--key", key)
	run(t, app, "decrypt", "--in", encFile, "--out", outFile, "--key", key)

	roundtripped, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, "top secret", string(roundtripped))
}

func TestHashCommand_DigestAndHMAC(t *testing.T) {
	dir := t.TempDir()
	inFile := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(inFile, []byte("hash me"), 0o600))

	app := &cli.Command{Name: "cryyptctl", Commands: []*cli.Command{hashCommand()}}
	run(t, app, "hash", "--in", inFile, "--algorithm", "sha256")

	key := hex.EncodeToString(make([]byte, 32))
	run(t, app, "hash", "--in", inFile, "--algorithm", "sha256", "--hmac-key", key)

	_, ok := hashAlgorithms["sha3-512"]
	require.True(t, ok)
}

func TestCompressDecompress_FileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	inFile := filepath.Join(dir, "plain.txt")
	compFile := filepath.Join(dir, "out.gz")
	outFile := filepath.Join(dir, "roundtrip.txt")
	require.NoError(t, os.WriteFile(inFile, []byte("compress me compress me compress me"), 0o600))

	app := &cli.Command{Name: "cryyptctl", Commands: []*cli.Command{compressCommand(), decompressCommand()}}
	run(t, app, "compress", "--in", inFile, "--out", compFile, "--algorithm", "gzip")
	run(t, app, "decompress", "--in", compFile, "--out", outFile, "--algorithm", "gzip")

	roundtripped, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, "compress me compress me compress me", string(roundtripped))
}

func TestReadWriteOutput_FileHelpers(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "x.bin")
	require.NoError(t, writeOutput(f, []byte("hello")))
	data, err := readInput(f)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}
