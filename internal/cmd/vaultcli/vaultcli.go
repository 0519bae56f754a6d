// Package vaultcli provides the shared flags, vault-opening, and
// output-formatting plumbing used by every cryyptctl vault subcommand.
package vaultcli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/config"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/vaultcache"
	"github.com/cyrup-ai/cryypt/internal/vaultcore"
	"github.com/cyrup-ai/cryypt/internal/vaultstore"
)

// GlobalFlags returns the flags shared by every vault subcommand, per
// spec.md §6: --vault-path, --passphrase, --json, --jwt. They are marked
// Persistent so leaf commands see them without redeclaring them.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:       "vault-path",
			Persistent: true,
			Sources:    cli.EnvVars("CYRYPT_VAULT_PATH"),
			Usage:      "Path to the vault's SQLite document store",
		},
		&cli.StringFlag{
			Name:       "passphrase",
			Persistent: true,
			Sources:    cli.EnvVars("CYSEC_PASSPHRASE"),
			Usage:      "Vault passphrase (falls back to CYSEC_PASSPHRASE)",
		},
		&cli.BoolFlag{
			Name:       "json",
			Persistent: true,
			Usage:      "Emit {success, operation, ...} JSON instead of human-readable lines",
		},
		&cli.StringFlag{
			Name:       "jwt",
			Persistent: true,
			Sources:    cli.EnvVars("VAULT_JWT"),
			Usage:      "Session token recorded as the unlock audit label (falls back to VAULT_JWT)",
		},
	}
}

// Handle bundles an opened vault with the resolved config, closed by the
// caller's deferred Close.
type Handle struct {
	Vault  *vaultcore.Vault
	Config *config.Config
	store  *vaultstore.Store
	cache  *vaultcache.Cache
}

// Close releases the handle's backing resources.
func (h *Handle) Close() {
	h.cache.Stop()
}

// Passphrase resolves --passphrase / CYSEC_PASSPHRASE, erroring if neither
// is set.
func Passphrase(cmd *cli.Command) (string, error) {
	p := cmd.String("passphrase")
	if p == "" {
		return "", cryyptoerr.InvalidParameters("passphrase required (--passphrase or CYSEC_PASSPHRASE)")
	}
	return p, nil
}

// UnlockedBy resolves the audit label recorded against a session unlock:
// --jwt / VAULT_JWT if set, else the OS user.
func UnlockedBy(cmd *cli.Command) string {
	if tok := cmd.String("jwt"); tok != "" {
		return tok
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cryyptctl"
}

func parseAtRestCipher(s string) (vaultcore.AtRestCipher, error) {
	switch s {
	case "aes-gcm", "":
		return vaultcore.AtRestAESGCM, nil
	case "chacha20poly1305", "chacha20-poly1305":
		return vaultcore.AtRestChaCha20Poly1305, nil
	case "cascade":
		return vaultcore.AtRestCascade, nil
	default:
		return 0, cryyptoerr.UnsupportedAlgorithm(s)
	}
}

// resolveConfig builds a Config from the environment plus --vault-path.
func resolveConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if p := cmd.String("vault-path"); p != "" {
		cfg.VaultPath = p
	}
	return &cfg, nil
}

// Open wires the document store, cache, and vault core from the resolved
// config, without unlocking. Callers that need privileged operations
// should call Unlock afterward.
func Open(ctx context.Context, cmd *cli.Command) (*Handle, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := vaultstore.Open(cfg.VaultPath)
	if err != nil {
		return nil, err
	}
	metrics := vaultcache.NewMetrics(prometheus.NewRegistry())
	cache, err := vaultcache.New(cfg.CacheMaxEntries, metrics)
	if err != nil {
		return nil, err
	}
	cache.Start(ctx)

	alg, err := parseAtRestCipher(cfg.AtRestCipher)
	if err != nil {
		return nil, err
	}

	v := vaultcore.New(vaultcore.Config{
		Store:      store,
		Cache:      cache,
		RSAKeyPath: cfg.SessionKeyPath,
		SessionTTL: cfg.SessionTTL,
		AtRestAlg:  alg,
	})
	return &Handle{Vault: v, Config: cfg, store: store, cache: cache}, nil
}

// OpenAndUnlock opens the vault and unlocks it with the resolved
// passphrase, for every subcommand except save/lock/unlock themselves.
func OpenAndUnlock(ctx context.Context, cmd *cli.Command) (*Handle, error) {
	h, err := Open(ctx, cmd)
	if err != nil {
		return nil, err
	}
	pass, err := Passphrase(cmd)
	if err != nil {
		h.Close()
		return nil, err
	}
	if err := h.Vault.Unlock(ctx, pass, UnlockedBy(cmd)); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

// Result is the shape printed by --json, per spec.md §6.
type Result struct {
	Success   bool   `json:"success"`
	Operation string `json:"operation"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Emit prints the outcome of operation in the --json or human-readable
// form. It returns nil on success; on failure it returns a cli.Exit error
// carrying process exit code 1 for an ItemNotFound error and 2 otherwise.
func Emit(cmd *cli.Command, operation string, data any, line string, err error) error {
	if err != nil {
		if cmd.Bool("json") {
			out, _ := json.Marshal(Result{Success: false, Operation: operation, Error: err.Error()})
			fmt.Fprintln(os.Stdout, string(out))
		} else {
			log.Error(operation+" failed", "err", err)
		}
		if cryyptoerr.KindOf(err) == cryyptoerr.KindItemNotFound {
			return cli.Exit(err, 1)
		}
		return cli.Exit(err, 2)
	}
	if cmd.Bool("json") {
		out, marshalErr := json.Marshal(Result{Success: true, Operation: operation, Data: data})
		if marshalErr != nil {
			return cli.Exit(marshalErr, 2)
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	}
	if line != "" {
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}

// NotFound reports a missing key as the spec's exit-code-1 case.
func NotFound(key string) error {
	return cryyptoerr.ItemNotFound(key)
}
