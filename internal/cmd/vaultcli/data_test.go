package vaultcli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/vaultcache"
	"github.com/cyrup-ai/cryypt/internal/vaultcore"
	"github.com/cyrup-ai/cryypt/internal/vaultstore"
)

// openDirect opens and unlocks the vault at vaultPath outside the CLI, so
// tests can assert on state the commands wrote without re-parsing stdout.
func openDirect(t *testing.T, vaultPath, sessionKeyPath, pass string) *vaultcore.Vault {
	store, err := vaultstore.Open(vaultPath)
	require.NoError(t, err)
	metrics := vaultcache.NewMetrics(prometheus.NewRegistry())
	cache, err := vaultcache.New(64, metrics)
	require.NoError(t, err)
	t.Cleanup(cache.Stop)

	v := vaultcore.New(vaultcore.Config{
		Store:      store,
		Cache:      cache,
		RSAKeyPath: sessionKeyPath,
		SessionTTL: time.Hour,
		AtRestAlg:  vaultcore.AtRestAESGCM,
	})
	require.NoError(t, v.Unlock(context.Background(), pass, "test"))
	return v
}

// newTestApp builds a root command wiring GlobalFlags plus the given
// leaves, rooted at a fresh vault path and session-key directory so tests
// never touch a real XDG config dir or collide with each other. It returns
// the app, the vault path, the derived session-key path, and a passphrase.
func newTestApp(t *testing.T, leaves ...*cli.Command) (app *cli.Command, vaultPath, sessionKeyPath, pass string) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	vaultPath = filepath.Join(dir, "vault.db")
	sessionKeyPath = filepath.Join(dir, "cryypt", "session.pem")
	app = &cli.Command{
		Name:     "cryyptctl",
		Flags:    GlobalFlags(),
		Commands: leaves,
	}
	return app, vaultPath, sessionKeyPath, "correct horse battery staple"
}

func run(t *testing.T, app *cli.Command, args ...string) {
	require.NoError(t, app.Run(context.Background(), append([]string{"cryyptctl"}, args...)))
}

func TestDataCommands_PutGetDelete(t *testing.T) {
	app, vaultPath, sessionKeyPath, pass := newTestApp(t, SessionCommands()...)
	app.Commands = append(app.Commands, DataCommands()...)

	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "save")
	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "put", "hello", "world")

	v := openDirect(t, vaultPath, sessionKeyPath, pass)
	val, ok, err := v.Get(context.Background(), "hello")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("world"), val)

	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "delete", "hello")
	v2 := openDirect(t, vaultPath, sessionKeyPath, pass)
	_, ok, err = v2.Get(context.Background(), "hello")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDataCommands_ListAndFind(t *testing.T) {
	app, vaultPath, _, pass := newTestApp(t, SessionCommands()...)
	app.Commands = append(app.Commands, DataCommands()...)

	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "save")
	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "put", "alpha", "1")
	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "put", "beta", "2")

	// list and find exercise the full Run() pipeline without error; their
	// output shape is covered at the Vault level in vaultcore's own tests.
	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "list")
	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "find", "^a")
}

func TestDataCommands_Namespace(t *testing.T) {
	app, vaultPath, sessionKeyPath, pass := newTestApp(t, SessionCommands()...)
	app.Commands = append(app.Commands, DataCommands()...)

	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "save")
	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "namespace", "put", "team", "billing", "prod")

	v := openDirect(t, vaultPath, sessionKeyPath, pass)
	val, ok, err := v.Get(context.Background(), "team/billing")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("prod"), val)

	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "namespace", "list", "team")
}
