package transport

import (
	"context"
	"crypto/tls"

	"github.com/quic-go/quic-go"

	"github.com/cloudflare/circl/kem"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/pqcrypto"
)

// Listener accepts QUIC connections, performing a KEM handshake over
// each accepted stream before handing callers a Session.
type Listener struct {
	ql        *quic.Listener
	alg       pqcrypto.KemAlgorithm
	priv      kem.PrivateKey
}

// Listen starts a QUIC listener on addr with the given TLS config
// (QUIC mandates TLS at the connection layer; the KEM handshake that
// follows is an additional, application-level layer per spec.md §4.J).
func Listen(addr string, tlsConf *tls.Config, alg pqcrypto.KemAlgorithm, priv kem.PrivateKey) (*Listener, error) {
	ql, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	return &Listener{ql: ql, alg: alg, priv: priv}, nil
}

// Accept blocks until a client connects, completes the KEM handshake on
// its first stream, and returns a ready Session.
func (l *Listener) Accept(ctx context.Context) (*Session, error) {
	conn, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	sharedSecret, err := ServerHandshake(ctx, stream, l.alg, l.priv)
	if err != nil {
		return nil, err
	}
	return NewSession(stream, sharedSecret), nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ql.Close()
}

// Addr returns the listener's local address.
func (l *Listener) Addr() string {
	return l.ql.Addr().String()
}

// Dial connects to addr, opens a stream, and performs the client side
// of the KEM handshake against the server's public key.
func Dial(ctx context.Context, addr string, tlsConf *tls.Config, alg pqcrypto.KemAlgorithm, serverPublicKey []byte) (*Session, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	sharedSecret, err := ClientHandshake(ctx, stream, alg, serverPublicKey)
	if err != nil {
		return nil, err
	}
	return NewSession(stream, sharedSecret), nil
}
