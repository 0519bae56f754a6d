package vaultcli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/config"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/key"
	"github.com/cyrup-ai/cryypt/internal/keystore/filestore"
)

// KeyCommands returns generate-key and batch-generate-keys, per spec.md
// §6. Generated key material is persisted through an encrypted
// internal/keystore/filestore rooted alongside the vault, authenticated
// under a passphrase-derived master key (spec.md §4.C).
func KeyCommands() []*cli.Command {
	return []*cli.Command{generateKeyCommand(), batchGenerateKeysCommand()}
}

func keyStoreDir(vaultPath string) string {
	return filepath.Join(filepath.Dir(vaultPath), "keys")
}

func openKeyStore(ctx context.Context, cmd *cli.Command, cfg *config.Config) (*filestore.Store, error) {
	_ = ctx
	pass, err := Passphrase(cmd)
	if err != nil {
		return nil, err
	}
	dir := keyStoreDir(cfg.VaultPath)
	saltPath := filepath.Join(dir, ".salt")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, cryyptoerr.IO(err)
	}
	salt, err := os.ReadFile(saltPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, cryyptoerr.IO(err)
		}
		salt = nil
	}
	kdfCfg := key.DefaultArgon2idConfig()
	masterKey, usedSalt, err := key.Derive(ctx, kdfCfg, []byte(pass), salt)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		if err := os.WriteFile(saltPath, usedSalt, 0o600); err != nil {
			return nil, cryyptoerr.IO(err)
		}
	}
	return filestore.New(dir, masterKey)
}

func generateKeyCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate-key",
		Usage:     "Generate and persist a symmetric key",
		ArgsUsage: "<namespace> <size-bits> [version]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() < 2 {
				return Emit(cmd, "generate-key", nil, "", fmt.Errorf("usage: generate-key <namespace> <size-bits> [version]"))
			}
			namespace := args.Get(0)
			sizeBits, err := strconv.Atoi(args.Get(1))
			if err != nil {
				return Emit(cmd, "generate-key", nil, "", cryyptoerr.InvalidParameters("size-bits must be an integer"))
			}
			version := 1
			if args.Len() >= 3 {
				version, err = strconv.Atoi(args.Get(2))
				if err != nil {
					return Emit(cmd, "generate-key", nil, "", cryyptoerr.InvalidParameters("version must be an integer"))
				}
			}
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return Emit(cmd, "generate-key", nil, "", err)
			}
			store, err := openKeyStore(ctx, cmd, cfg)
			if err != nil {
				return Emit(cmd, "generate-key", nil, "", err)
			}
			gen := key.NewGenerator(store)
			material, err := gen.Generate(ctx, sizeBits, namespace, version)
			if err != nil {
				return Emit(cmd, "generate-key", nil, "", err)
			}
			id := material.ID()
			material.Zeroize()
			return Emit(cmd, "generate-key", map[string]string{"id": id}, id, nil)
		},
	}
}

func batchGenerateKeysCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch-generate-keys",
		Usage:     "Generate and persist n sequentially-versioned keys",
		ArgsUsage: "<namespace> <size-bits> <count> [start-version]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() < 3 {
				return Emit(cmd, "batch-generate-keys", nil, "", fmt.Errorf("usage: batch-generate-keys <namespace> <size-bits> <count> [start-version]"))
			}
			namespace := args.Get(0)
			sizeBits, err := strconv.Atoi(args.Get(1))
			if err != nil {
				return Emit(cmd, "batch-generate-keys", nil, "", cryyptoerr.InvalidParameters("size-bits must be an integer"))
			}
			n, err := strconv.Atoi(args.Get(2))
			if err != nil {
				return Emit(cmd, "batch-generate-keys", nil, "", cryyptoerr.InvalidParameters("count must be an integer"))
			}
			startVersion := 1
			if args.Len() >= 4 {
				startVersion, err = strconv.Atoi(args.Get(3))
				if err != nil {
					return Emit(cmd, "batch-generate-keys", nil, "", cryyptoerr.InvalidParameters("start-version must be an integer"))
				}
			}
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return Emit(cmd, "batch-generate-keys", nil, "", err)
			}
			store, err := openKeyStore(ctx, cmd, cfg)
			if err != nil {
				return Emit(cmd, "batch-generate-keys", nil, "", err)
			}
			gen := key.NewGenerator(store)
			materials, err := gen.GenerateBatch(ctx, n, sizeBits, namespace, startVersion)
			if err != nil {
				return Emit(cmd, "batch-generate-keys", nil, "", err)
			}
			ids := make([]string, 0, len(materials))
			line := ""
			for i, m := range materials {
				ids = append(ids, m.ID())
				if i > 0 {
					line += "\n"
				}
				line += m.ID()
				m.Zeroize()
			}
			return Emit(cmd, "batch-generate-keys", ids, line, nil)
		},
	}
}
