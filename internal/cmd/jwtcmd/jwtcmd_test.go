package jwtcmd

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/jwtauth"
)

func run(t *testing.T, app *cli.Command, args ...string) {
	require.NoError(t, app.Run(context.Background(), append([]string{"cryyptctl"}, args...)))
}

func TestParseClaims(t *testing.T) {
	claims := parseClaims("user-1", []string{"role=admin", "malformed"}, time.Hour)
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "admin", claims["role"])
	require.NotContains(t, claims, "malformed")
	require.Contains(t, claims, "iat")
	require.Contains(t, claims, "exp")
}

func TestSignAndVerify_HS256(t *testing.T) {
	app := &cli.Command{Name: "cryyptctl", Commands: []*cli.Command{signCommand(), verifyCommand()}}
	secret := hex.EncodeToString(make([]byte, 32))

	signer := jwtauth.HMACSigner{Secret: make([]byte, 32)}
	token, err := signer.Sign(jwtauth.Claims{"sub": "user-1"})
	require.NoError(t, err)

	verifier := jwtauth.Verifier{Resolver: jwtauth.StaticResolver{Alg: jwtauth.HS256, Key: make([]byte, 32)}}
	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])

	// Exercise the CLI wiring end to end too; secret here must decode to
	// the same 32 zero bytes used above.
	run(t, app, "sign", "--secret", secret, "--subject", "user-1")
	run(t, app, "verify", "--secret", secret, token)
}

func TestLoadRSAKeys_PEMRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "priv.pem")
	pubPath := filepath.Join(dir, "pub.pem")

	privDER := x509.MarshalPKCS1PrivateKey(priv)
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER}), 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))

	loadedPriv, err := loadRSAPrivateKey(privPath)
	require.NoError(t, err)
	require.Equal(t, priv.D, loadedPriv.D)

	loadedPub, err := loadRSAPublicKey(pubPath)
	require.NoError(t, err)
	require.Equal(t, priv.PublicKey.N, loadedPub.N)
}

func TestSignAndVerify_RS256(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "priv.pem")
	pubPath := filepath.Join(dir, "pub.pem")
	privDER := x509.MarshalPKCS1PrivateKey(priv)
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER}), 0o600))
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))

	app := &cli.Command{Name: "cryyptctl", Commands: []*cli.Command{signCommand(), verifyCommand()}}
	run(t, app, "sign", "--algorithm", "RS256", "--private-key-file", privPath, "--subject", "user-2")

	signer := jwtauth.RSASigner{Key: priv}
	token, err := signer.Sign(jwtauth.Claims{"sub": "user-2"})
	require.NoError(t, err)
	run(t, app, "verify", "--algorithm", "RS256", "--public-key-file", pubPath, token)
}
