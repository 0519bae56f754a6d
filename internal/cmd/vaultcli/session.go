package vaultcli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// SessionCommands returns save, unlock, lock, and change-passphrase, per
// spec.md §6. save, unlock and lock are not gated by check_unlocked;
// change-passphrase unlocks the vault first and is gated like every
// other operation.
func SessionCommands() []*cli.Command {
	return []*cli.Command{saveCommand(), unlockCommand(), lockCommand(), changePassphraseCommand()}
}

func saveCommand() *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Initialize a new vault at --vault-path with a fresh master key",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			h, err := Open(ctx, cmd)
			if err != nil {
				return Emit(cmd, "save", nil, "", err)
			}
			defer h.Close()
			pass, err := Passphrase(cmd)
			if err != nil {
				return Emit(cmd, "save", nil, "", err)
			}
			err = h.Vault.Initialize(ctx, pass)
			return Emit(cmd, "save", map[string]string{"vault_path": h.Config.VaultPath}, "vault initialized", err)
		},
	}
}

func unlockCommand() *cli.Command {
	return &cli.Command{
		Name:  "unlock",
		Usage: "Unlock the vault for this process",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			h, err := Open(ctx, cmd)
			if err != nil {
				return Emit(cmd, "unlock", nil, "", err)
			}
			defer h.Close()
			pass, err := Passphrase(cmd)
			if err != nil {
				return Emit(cmd, "unlock", nil, "", err)
			}
			err = h.Vault.Unlock(ctx, pass, UnlockedBy(cmd))
			return Emit(cmd, "unlock", nil, "unlocked", err)
		},
	}
}

func lockCommand() *cli.Command {
	return &cli.Command{
		Name:  "lock",
		Usage: "Lock the vault, zeroizing the session key",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			h, err := Open(ctx, cmd)
			if err != nil {
				return Emit(cmd, "lock", nil, "", err)
			}
			defer h.Close()
			h.Vault.Lock()
			return Emit(cmd, "lock", nil, "locked", nil)
		},
	}
}

func changePassphraseCommand() *cli.Command {
	return &cli.Command{
		Name:      "change-passphrase",
		Usage:     "Re-wrap the master key under a new passphrase",
		ArgsUsage: "<new-passphrase>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return Emit(cmd, "change-passphrase", nil, "", fmt.Errorf("usage: change-passphrase <new-passphrase>"))
			}
			h, err := OpenAndUnlock(ctx, cmd)
			if err != nil {
				return Emit(cmd, "change-passphrase", nil, "", err)
			}
			defer h.Close()
			old, err := Passphrase(cmd)
			if err != nil {
				return Emit(cmd, "change-passphrase", nil, "", err)
			}
			err = h.Vault.ChangePassphrase(ctx, old, args.Get(0))
			return Emit(cmd, "change-passphrase", nil, "passphrase changed", err)
		},
	}
}
