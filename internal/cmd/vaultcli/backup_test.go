package vaultcli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackupCommands_RoundTrip(t *testing.T) {
	app, vaultPath, _, pass := newTestApp(t, SessionCommands()...)
	app.Commands = append(app.Commands, DataCommands()...)
	app.Commands = append(app.Commands, BackupCommands()...)

	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "save")
	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "put", "hello", "world")

	backupFile := filepath.Join(t.TempDir(), "backup.bin")
	run(t, app, "--vault-path", vaultPath, "--passphrase", pass, "backup", backupFile, "backup-pass")

	info, err := os.Stat(backupFile)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))

	// Restoring into a freshly-saved vault at a different path proves the
	// blob round-trips independently of the originating store.
	app2, vaultPath2, sessionKeyPath2, pass2 := newTestApp(t, SessionCommands()...)
	app2.Commands = append(app2.Commands, BackupCommands()...)
	run(t, app2, "--vault-path", vaultPath2, "--passphrase", pass2, "save")
	run(t, app2, "--vault-path", vaultPath2, "--passphrase", pass2, "restore", backupFile, "backup-pass")

	v := openDirect(t, vaultPath2, sessionKeyPath2, pass2)
	val, ok, err := v.Get(context.Background(), "hello")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("world"), val)
}
