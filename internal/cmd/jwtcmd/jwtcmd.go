// Package jwtcmd exposes internal/jwtauth's sign/verify plumbing as
// standalone cryyptctl commands, per SPEC_FULL.md's "new CLI commands"
// section.
package jwtcmd

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/config"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/jwtauth"
)

// Command returns the jwt parent command with sign and verify
// subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "jwt",
		Usage: "Sign and verify JSON Web Tokens",
		Commands: []*cli.Command{
			signCommand(),
			verifyCommand(),
		},
	}
}

func parseClaims(subject string, pairs []string, expires time.Duration) jwtauth.Claims {
	now := time.Now()
	claims := jwtauth.Claims{
		"iat": now.Unix(),
	}
	if subject != "" {
		claims["sub"] = subject
	}
	if expires > 0 {
		claims["exp"] = now.Add(expires).Unix()
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		claims[k] = v
	}
	return claims
}

func loadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, cryyptoerr.Malformed("jwt: not a PEM-encoded private key")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		if key8, err8 := x509.ParsePKCS8PrivateKey(block.Bytes); err8 == nil {
			if rsaKey, ok := key8.(*rsa.PrivateKey); ok {
				return rsaKey, nil
			}
		}
		return nil, cryyptoerr.Malformed("jwt: could not parse RSA private key: " + err.Error())
	}
	return key, nil
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, cryyptoerr.Malformed("jwt: not a PEM-encoded public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, cryyptoerr.Malformed("jwt: could not parse RSA public key: " + err.Error())
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, cryyptoerr.Malformed("jwt: public key is not RSA")
	}
	return rsaKey, nil
}

func signCommand() *cli.Command {
	var algName, secretRaw, privateKeyFile, subject string
	var claimPairs []string
	var expires time.Duration
	return &cli.Command{
		Name:  "sign",
		Usage: "Sign a JWT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "algorithm", Destination: &algName, Value: "HS256", Usage: "HS256 | RS256"},
			&cli.StringFlag{Name: "secret", Destination: &secretRaw, Usage: "Hex or base64-encoded HMAC secret (HS256)"},
			&cli.StringFlag{Name: "private-key-file", Destination: &privateKeyFile, Usage: "PEM-encoded RSA private key (RS256)"},
			&cli.StringFlag{Name: "subject", Destination: &subject, Usage: "Subject (sub) claim"},
			&cli.StringSliceFlag{Name: "claim", Destination: &claimPairs, Usage: "Additional claim as name=value, repeatable"},
			&cli.DurationFlag{Name: "expires", Destination: &expires, Usage: "Time-to-live for the exp claim"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			claims := parseClaims(subject, claimPairs, expires)
			var signer jwtauth.Signer
			switch algName {
			case "HS256":
				key, err := config.DecodeEncryptionKey(secretRaw)
				if err != nil {
					return err
				}
				signer = jwtauth.HMACSigner{Secret: key}
			case "RS256":
				key, err := loadRSAPrivateKey(privateKeyFile)
				if err != nil {
					return err
				}
				signer = jwtauth.RSASigner{Key: key}
			default:
				return cryyptoerr.UnsupportedAlgorithm(algName)
			}
			token, err := signer.Sign(claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, token)
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	var algName, secretRaw, publicKeyFile string
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify a JWT and print its claims",
		ArgsUsage: "<token>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "algorithm", Destination: &algName, Value: "HS256", Usage: "HS256 | RS256"},
			&cli.StringFlag{Name: "secret", Destination: &secretRaw, Usage: "Hex or base64-encoded HMAC secret (HS256)"},
			&cli.StringFlag{Name: "public-key-file", Destination: &publicKeyFile, Usage: "PEM-encoded RSA public key (RS256)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("usage: jwt verify <token>")
			}
			var resolver jwtauth.KeyResolver
			switch algName {
			case "HS256":
				key, err := config.DecodeEncryptionKey(secretRaw)
				if err != nil {
					return err
				}
				resolver = jwtauth.StaticResolver{Alg: jwtauth.HS256, Key: key}
			case "RS256":
				key, err := loadRSAPublicKey(publicKeyFile)
				if err != nil {
					return err
				}
				resolver = jwtauth.StaticResolver{Alg: jwtauth.RS256, Key: key}
			default:
				return cryyptoerr.UnsupportedAlgorithm(algName)
			}
			verifier := jwtauth.Verifier{Resolver: resolver}
			claims, err := verifier.Verify(args.Get(0))
			if err != nil {
				return err
			}
			out, err := json.Marshal(claims)
			if err != nil {
				return cryyptoerr.SerializationError(err)
			}
			fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}
}
