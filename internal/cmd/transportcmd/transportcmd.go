// Package transportcmd exposes internal/transport's QUIC listener/dialer
// as standalone cryyptctl commands, per SPEC_FULL.md's "new CLI commands"
// section.
package transportcmd

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/pqcrypto"
	"github.com/cyrup-ai/cryypt/internal/transport"
)

// Command returns the transport parent command with listen and dial
// subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "transport",
		Usage: "Exercise the QUIC-based secure transport",
		Commands: []*cli.Command{
			listenCommand(),
			dialCommand(),
		},
	}
}

func parseKemAlgorithm(s string) (pqcrypto.KemAlgorithm, error) {
	switch s {
	case "ML-KEM-512":
		return pqcrypto.MLKEM512, nil
	case "ML-KEM-768", "":
		return pqcrypto.MLKEM768, nil
	case "ML-KEM-1024":
		return pqcrypto.MLKEM1024, nil
	default:
		return "", cryyptoerr.UnsupportedAlgorithm(s)
	}
}

// selfSignedTLSConfig generates an ephemeral ECDSA certificate for the
// QUIC listener; spec.md §4.J treats QUIC's own TLS layer as an external
// collaborator, so a fresh self-signed leaf is sufficient here.
func selfSignedTLSConfig() (*tls.Config, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, cryyptoerr.Internal("transport: generating TLS key", err)
	}
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, cryyptoerr.Internal("transport: generating TLS serial", err)
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "cryyptctl-transport"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, cryyptoerr.Internal("transport: creating TLS certificate", err)
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"cryypt-transport"},
	}, nil
}

func listenCommand() *cli.Command {
	var addr, algName string
	return &cli.Command{
		Name:  "listen",
		Usage: "Listen for one QUIC connection, complete the KEM handshake, and echo records",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Destination: &addr, Value: ":7443", Usage: "Listen address"},
			&cli.StringFlag{Name: "kem-algorithm", Destination: &algName, Value: "ML-KEM-768", Usage: "ML-KEM-512 | ML-KEM-768 | ML-KEM-1024"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			alg, err := parseKemAlgorithm(algName)
			if err != nil {
				return err
			}
			kp, err := pqcrypto.GenerateKemKeyPair(alg)
			if err != nil {
				return err
			}
			pubBytes, err := kp.PublicKey.MarshalBinary()
			if err != nil {
				return cryyptoerr.Internal("transport: marshaling public key", err)
			}
			tlsConf, err := selfSignedTLSConfig()
			if err != nil {
				return err
			}
			listener, err := transport.Listen(addr, tlsConf, alg, kp.PrivateKey)
			if err != nil {
				return err
			}
			defer listener.Close()

			fmt.Fprintln(os.Stdout, "server-public-key: "+base64.StdEncoding.EncodeToString(pubBytes))
			log.Info("transport listener ready", "addr", listener.Addr())

			session, err := listener.Accept(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			for {
				rec, err := session.Receive(ctx)
				if err != nil {
					log.Info("session closed", "err", err)
					return nil
				}
				log.Info("received record", "type", rec.Type, "bytes", len(rec.Payload))
				fmt.Fprintln(os.Stdout, string(rec.Payload))
			}
		},
	}
}

func dialCommand() *cli.Command {
	var addr, algName, serverPubKeyRaw, message string
	return &cli.Command{
		Name:  "dial",
		Usage: "Connect to a transport listener, complete the KEM handshake, and send one message",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Destination: &addr, Required: true, Usage: "Server address"},
			&cli.StringFlag{Name: "kem-algorithm", Destination: &algName, Value: "ML-KEM-768", Usage: "ML-KEM-512 | ML-KEM-768 | ML-KEM-1024"},
			&cli.StringFlag{Name: "server-public-key", Destination: &serverPubKeyRaw, Required: true, Usage: "Base64-encoded server KEM public key"},
			&cli.StringFlag{Name: "message", Destination: &message, Value: "hello", Usage: "Message payload to send"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			alg, err := parseKemAlgorithm(algName)
			if err != nil {
				return err
			}
			serverPubKey, err := base64.StdEncoding.DecodeString(serverPubKeyRaw)
			if err != nil {
				return cryyptoerr.InvalidParameters("server-public-key must be base64-encoded")
			}
			tlsConf := &tls.Config{InsecureSkipVerify: true, NextProtos: []string{"cryypt-transport"}}
			session, err := transport.Dial(ctx, addr, tlsConf, alg, serverPubKey)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Send(ctx, transport.Record{Type: transport.RecordMessage, Payload: []byte(message)}); err != nil {
				return err
			}
			log.Info("sent message", "bytes", len(message))
			return nil
		},
	}
}
