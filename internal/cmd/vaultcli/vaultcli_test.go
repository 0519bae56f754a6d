package vaultcli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/vaultcore"
)

// newTestCmd runs a bare command through the real v3 parsing pipeline so
// flag values (including Persistent ones) land exactly as they would for a
// real cryyptctl invocation, then hands back the parsed Command.
func newTestCmd(t *testing.T, args ...string) *cli.Command {
	cmd := &cli.Command{
		Name:  "test",
		Flags: GlobalFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return nil
		},
	}
	all := append([]string{"test"}, args...)
	require.NoError(t, cmd.Run(context.Background(), all))
	return cmd
}

func TestPassphrase_FromFlag(t *testing.T) {
	cmd := newTestCmd(t, "--passphrase", "hunter2")
	p, err := Passphrase(cmd)
	require.NoError(t, err)
	require.Equal(t, "hunter2", p)
}

func TestPassphrase_MissingErrors(t *testing.T) {
	cmd := newTestCmd(t)
	_, err := Passphrase(cmd)
	require.Error(t, err)
	require.Equal(t, cryyptoerr.KindInvalidParameters, cryyptoerr.KindOf(err))
}

func TestUnlockedBy_PrefersJWT(t *testing.T) {
	cmd := newTestCmd(t, "--jwt", "session-token")
	require.Equal(t, "session-token", UnlockedBy(cmd))
}

func TestUnlockedBy_FallsBackToUser(t *testing.T) {
	cmd := newTestCmd(t)
	require.NotEmpty(t, UnlockedBy(cmd))
}

func TestParseAtRestCipher(t *testing.T) {
	cases := map[string]vaultcore.AtRestCipher{
		"":                   vaultcore.AtRestAESGCM,
		"aes-gcm":            vaultcore.AtRestAESGCM,
		"chacha20poly1305":   vaultcore.AtRestChaCha20Poly1305,
		"chacha20-poly1305":  vaultcore.AtRestChaCha20Poly1305,
		"cascade":            vaultcore.AtRestCascade,
	}
	for in, want := range cases {
		got, err := parseAtRestCipher(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := parseAtRestCipher("rot13")
	require.Error(t, err)
	require.Equal(t, cryyptoerr.KindUnsupportedAlgorithm, cryyptoerr.KindOf(err))
}

func TestResolveConfig_VaultPathOverride(t *testing.T) {
	cmd := newTestCmd(t, "--vault-path", "/tmp/custom-vault.db")
	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom-vault.db", cfg.VaultPath)
}

func TestEmit_SuccessJSON(t *testing.T) {
	cmd := newTestCmd(t, "--json")
	err := Emit(cmd, "put", map[string]string{"key": "k"}, "OK", nil)
	require.NoError(t, err)
}

func TestEmit_NotFoundExitsOne(t *testing.T) {
	cmd := newTestCmd(t, "--json")
	err := Emit(cmd, "get", nil, "", cryyptoerr.ItemNotFound("missing"))
	require.Error(t, err)
	var ec cli.ExitCoder
	require.True(t, errors.As(err, &ec))
	require.Equal(t, 1, ec.ExitCode())
}

func TestEmit_OtherErrorExitsTwo(t *testing.T) {
	cmd := newTestCmd(t, "--json")
	err := Emit(cmd, "get", nil, "", cryyptoerr.VaultLocked())
	require.Error(t, err)
	var ec cli.ExitCoder
	require.True(t, errors.As(err, &ec))
	require.Equal(t, 2, ec.ExitCode())
}

func TestEmit_HumanReadableLine(t *testing.T) {
	cmd := newTestCmd(t)
	err := Emit(cmd, "put", nil, "OK", nil)
	require.NoError(t, err)
}

func TestResult_JSONShape(t *testing.T) {
	out, err := json.Marshal(Result{Success: true, Operation: "put", Data: map[string]string{"key": "k"}})
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, true, decoded["success"])
	require.Equal(t, "put", decoded["operation"])
	require.NotContains(t, decoded, "error")
}
