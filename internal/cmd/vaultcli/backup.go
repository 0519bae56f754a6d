package vaultcli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// BackupCommands returns backup and restore, per spec.md §6.
func BackupCommands() []*cli.Command {
	return []*cli.Command{backupCommand(), restoreCommand()}
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:      "backup",
		Usage:     "Write an encrypted backup of every entry to a file",
		ArgsUsage: "<out-file> <backup-passphrase>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 2 {
				return Emit(cmd, "backup", nil, "", fmt.Errorf("usage: backup <out-file> <backup-passphrase>"))
			}
			h, err := OpenAndUnlock(ctx, cmd)
			if err != nil {
				return Emit(cmd, "backup", nil, "", err)
			}
			defer h.Close()
			blob, err := h.Vault.CreateEncryptedBackup(ctx, args.Get(1))
			if err != nil {
				return Emit(cmd, "backup", nil, "", err)
			}
			outFile := args.Get(0)
			if err := os.WriteFile(outFile, blob, 0o600); err != nil {
				return Emit(cmd, "backup", nil, "", cryyptoerr.IO(err))
			}
			return Emit(cmd, "backup", map[string]any{"file": outFile, "bytes": len(blob)}, fmt.Sprintf("wrote %s (%d bytes)", outFile, len(blob)), nil)
		},
	}
}

func restoreCommand() *cli.Command {
	var overwrite bool
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore entries from an encrypted backup file",
		ArgsUsage: "<in-file> <backup-passphrase>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "overwrite-existing",
				Destination: &overwrite,
				Usage:       "Overwrite keys that already exist in the vault",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 2 {
				return Emit(cmd, "restore", nil, "", fmt.Errorf("usage: restore <in-file> <backup-passphrase>"))
			}
			h, err := OpenAndUnlock(ctx, cmd)
			if err != nil {
				return Emit(cmd, "restore", nil, "", err)
			}
			defer h.Close()
			blob, err := os.ReadFile(args.Get(0))
			if err != nil {
				return Emit(cmd, "restore", nil, "", cryyptoerr.IO(err))
			}
			stats, err := h.Vault.RestoreFromEncryptedBackup(ctx, blob, args.Get(1), overwrite)
			if err != nil {
				return Emit(cmd, "restore", nil, "", err)
			}
			line := fmt.Sprintf("processed=%d restored=%d skipped=%d failed=%d", stats.Processed, stats.Restored, stats.Skipped, stats.Failed)
			return Emit(cmd, "restore", stats, line, nil)
		},
	}
}
