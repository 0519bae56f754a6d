// Package cryptocmd exposes the primitive façades (cipher, hash,
// compress) as standalone cryyptctl commands, reachable outside the
// vault, per SPEC_FULL.md's "new CLI commands" section.
package cryptocmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/cipher"
	"github.com/cyrup-ai/cryypt/internal/compress"
	"github.com/cyrup-ai/cryypt/internal/config"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/hash"
)

// Commands returns encrypt, decrypt, hash, compress, and decompress.
func Commands() []*cli.Command {
	return []*cli.Command{encryptCommand(), decryptCommand(), hashCommand(), compressCommand(), decompressCommand()}
}

func readInput(in string) ([]byte, error) {
	if in == "" || in == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, cryyptoerr.IO(err)
		}
		return data, nil
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	return data, nil
}

func writeOutput(out string, data []byte) error {
	if out == "" || out == "-" {
		if _, err := os.Stdout.Write(data); err != nil {
			return cryyptoerr.IO(err)
		}
		return nil
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return cryyptoerr.IO(err)
	}
	return nil
}

func parseCipherAlgorithm(s string) (cipher.Algorithm, error) {
	switch s {
	case "aes-gcm", "":
		return cipher.AES256GCM, nil
	case "chacha20poly1305", "chacha20-poly1305":
		return cipher.ChaCha20Poly1305, nil
	default:
		return 0, cryyptoerr.UnsupportedAlgorithm(s)
	}
}

func ioFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "in", Usage: "Input file ('-' or omitted reads stdin)"},
		&cli.StringFlag{Name: "out", Usage: "Output file ('-' or omitted writes stdout)"},
	}
}

func encryptCommand() *cli.Command {
	var algName, keyRaw, aad string
	return &cli.Command{
		Name:  "encrypt",
		Usage: "AEAD-encrypt a file or stdin",
		Flags: append(ioFlags(),
			&cli.StringFlag{Name: "algorithm", Destination: &algName, Value: "aes-gcm", Usage: "aes-gcm | chacha20poly1305"},
			&cli.StringFlag{Name: "key", Destination: &keyRaw, Required: true, Usage: "Hex or base64-encoded 32-byte key"},
			&cli.StringFlag{Name: "aad", Destination: &aad, Usage: "Additional authenticated data (AES-GCM only)"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			alg, err := parseCipherAlgorithm(algName)
			if err != nil {
				return err
			}
			keyBytes, err := config.DecodeEncryptionKey(keyRaw)
			if err != nil {
				return err
			}
			plaintext, err := readInput(cmd.String("in"))
			if err != nil {
				return err
			}
			builder := cipher.New(alg, keyBytes)
			if aad != "" {
				builder = builder.WithAAD([]byte(aad))
			}
			ciphertext, err := builder.Encrypt(ctx, plaintext)
			if err != nil {
				return err
			}
			return writeOutput(cmd.String("out"), ciphertext)
		},
	}
}

func decryptCommand() *cli.Command {
	var algName, keyRaw, aad string
	return &cli.Command{
		Name:  "decrypt",
		Usage: "AEAD-decrypt a file or stdin",
		Flags: append(ioFlags(),
			&cli.StringFlag{Name: "algorithm", Destination: &algName, Value: "aes-gcm", Usage: "aes-gcm | chacha20poly1305"},
			&cli.StringFlag{Name: "key", Destination: &keyRaw, Required: true, Usage: "Hex or base64-encoded 32-byte key"},
			&cli.StringFlag{Name: "aad", Destination: &aad, Usage: "Additional authenticated data (AES-GCM only)"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			alg, err := parseCipherAlgorithm(algName)
			if err != nil {
				return err
			}
			keyBytes, err := config.DecodeEncryptionKey(keyRaw)
			if err != nil {
				return err
			}
			wire, err := readInput(cmd.String("in"))
			if err != nil {
				return err
			}
			builder := cipher.New(alg, keyBytes)
			if aad != "" {
				builder = builder.WithAAD([]byte(aad))
			}
			plaintext, err := builder.Decrypt(ctx, wire)
			if err != nil {
				return err
			}
			return writeOutput(cmd.String("out"), plaintext)
		},
	}
}

var hashAlgorithms = map[string]hash.Algorithm{
	"sha256":      hash.SHA256,
	"sha512":      hash.SHA512,
	"sha3-256":    hash.SHA3_256,
	"sha3-384":    hash.SHA3_384,
	"sha3-512":    hash.SHA3_512,
	"blake2b-256": hash.BLAKE2b256,
	"blake2b-512": hash.BLAKE2b512,
}

func hashCommand() *cli.Command {
	var algName, hmacKeyRaw string
	return &cli.Command{
		Name:  "hash",
		Usage: "Hash or HMAC a file or stdin",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Usage: "Input file ('-' or omitted reads stdin)"},
			&cli.StringFlag{Name: "algorithm", Destination: &algName, Value: "sha256", Usage: "sha256|sha512|sha3-256|sha3-384|sha3-512|blake2b-256|blake2b-512"},
			&cli.StringFlag{Name: "hmac-key", Destination: &hmacKeyRaw, Usage: "Hex or base64-encoded HMAC key; omit for a plain digest"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			alg, ok := hashAlgorithms[algName]
			if !ok {
				return cryyptoerr.UnsupportedAlgorithm(algName)
			}
			data, err := readInput(cmd.String("in"))
			if err != nil {
				return err
			}
			builder := hash.New(alg)
			if hmacKeyRaw != "" {
				hmacKey, err := config.DecodeEncryptionKey(hmacKeyRaw)
				if err != nil {
					return err
				}
				builder = builder.WithHMACKey(hmacKey)
			}
			sum, err := builder.Sum(ctx, data)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, hex.EncodeToString(sum))
			return nil
		},
	}
}

var compressAlgorithms = map[string]compress.Algorithm{
	"gzip":  compress.Gzip,
	"zstd":  compress.Zstd,
	"bzip2": compress.Bzip2,
	"zip":   compress.Zip,
}

func compressCommand() *cli.Command {
	var algName string
	return &cli.Command{
		Name:  "compress",
		Usage: "Compress a file or stdin",
		Flags: append(ioFlags(),
			&cli.StringFlag{Name: "algorithm", Destination: &algName, Value: "gzip", Usage: "gzip|zstd|bzip2|zip"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			alg, ok := compressAlgorithms[algName]
			if !ok {
				return cryyptoerr.UnsupportedAlgorithm(algName)
			}
			data, err := readInput(cmd.String("in"))
			if err != nil {
				return err
			}
			out, err := compress.CompressAll(ctx, alg, data)
			if err != nil {
				return err
			}
			return writeOutput(cmd.String("out"), out)
		},
	}
}

func decompressCommand() *cli.Command {
	var algName string
	return &cli.Command{
		Name:  "decompress",
		Usage: "Decompress a file or stdin",
		Flags: append(ioFlags(),
			&cli.StringFlag{Name: "algorithm", Destination: &algName, Value: "gzip", Usage: "gzip|zstd|bzip2|zip"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			alg, ok := compressAlgorithms[algName]
			if !ok {
				return cryyptoerr.UnsupportedAlgorithm(algName)
			}
			data, err := readInput(cmd.String("in"))
			if err != nil {
				return err
			}
			out, err := compress.DecompressAll(ctx, alg, data)
			if err != nil {
				return err
			}
			return writeOutput(cmd.String("out"), out)
		},
	}
}
