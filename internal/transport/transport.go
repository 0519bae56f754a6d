// Package transport implements the secure transport adapters from
// spec.md §4.J: a post-quantum KEM handshake establishing a shared
// secret, and length-prefixed record framing over the resulting byte
// stream, each record independently AEAD-authenticated under a
// per-record HKDF subkey. The underlying transport is QUIC
// (github.com/quic-go/quic-go); this package is specified at the
// record layer only.
package transport

import (
	"context"
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/cloudflare/circl/kem"

	"github.com/cyrup-ai/cryypt/internal/cipher"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
	"github.com/cyrup-ai/cryypt/internal/key"
	"github.com/cyrup-ai/cryypt/internal/pqcrypto"
)

// RecordType tags what a Record carries, per spec.md §4.J's "user
// message, RPC call, or file-transfer chunk".
type RecordType uint8

const (
	RecordMessage RecordType = iota
	RecordRPC
	RecordFileChunk
)

const (
	maxRecordLength = 16 * 1024 * 1024
	lengthPrefixLen = 4
	typeLen         = 1
)

// Record is one length-prefixed frame on the wire.
type Record struct {
	Type    RecordType
	Payload []byte
}

// ClientHandshake encapsulates to peerPublicKey, writes the resulting
// ciphertext length-prefixed to conn, and returns the shared secret.
func ClientHandshake(ctx context.Context, conn io.Writer, alg pqcrypto.KemAlgorithm, peerPublicKey []byte) ([]byte, error) {
	pub, err := pqcrypto.UnmarshalKemPublicKey(alg, peerPublicKey)
	if err != nil {
		return nil, err
	}
	ciphertext, sharedSecret, err := pqcrypto.Encapsulate(alg, pub)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(conn, ciphertext); err != nil {
		return nil, err
	}
	return sharedSecret, nil
}

// ServerHandshake reads a length-prefixed KEM ciphertext from conn and
// decapsulates it with priv, returning the shared secret.
func ServerHandshake(ctx context.Context, conn io.Reader, alg pqcrypto.KemAlgorithm, priv kem.PrivateKey) ([]byte, error) {
	ciphertext, err := readFrame(conn)
	if err != nil {
		return nil, err
	}
	return pqcrypto.Decapsulate(alg, priv, ciphertext)
}

func writeFrame(w io.Writer, data []byte) error {
	if len(data) > maxRecordLength {
		return cryyptoerr.InvalidParameters("transport: frame exceeds maximum length")
	}
	header := make([]byte, lengthPrefixLen)
	binary.BigEndian.PutUint32(header, uint32(len(data)))
	if _, err := w.Write(header); err != nil {
		return cryyptoerr.IO(err)
	}
	if _, err := w.Write(data); err != nil {
		return cryyptoerr.IO(err)
	}
	return nil
}

func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, lengthPrefixLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, cryyptoerr.IO(err)
	}
	n := binary.BigEndian.Uint32(header)
	if n > maxRecordLength {
		return nil, cryyptoerr.InvalidParameters("transport: frame exceeds maximum length")
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, cryyptoerr.IO(err)
	}
	return data, nil
}

// Session wraps a raw byte stream (typically a quic.Stream) with the
// shared secret from a completed handshake, authenticating every
// record with a fresh HKDF subkey over an incrementing counter.
type Session struct {
	conn         io.ReadWriteCloser
	sharedSecret []byte
	sendCounter  atomic.Uint64
	recvCounter  atomic.Uint64
}

// NewSession wraps conn with sharedSecret (as produced by
// ClientHandshake/ServerHandshake) for record-level framing.
func NewSession(conn io.ReadWriteCloser, sharedSecret []byte) *Session {
	return &Session{conn: conn, sharedSecret: sharedSecret}
}

func (s *Session) subkey(counter uint64) ([]byte, error) {
	salt := make([]byte, 8)
	binary.BigEndian.PutUint64(salt, counter)
	cfg := key.KdfConfig{Algorithm: key.HKDFSHA256, SaltSize: 8, OutputSize: 32}
	out := make([]byte, 32)
	if err := key.DeriveFast(cfg, s.sharedSecret, salt, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Send authenticates and writes one record.
func (s *Session) Send(ctx context.Context, rec Record) error {
	counter := s.sendCounter.Add(1) - 1
	subkey, err := s.subkey(counter)
	if err != nil {
		return err
	}
	ciphertext, err := cipher.New(cipher.ChaCha20Poly1305, subkey).Encrypt(ctx, rec.Payload)
	if err != nil {
		return err
	}
	frame := make([]byte, typeLen+len(ciphertext))
	frame[0] = byte(rec.Type)
	copy(frame[typeLen:], ciphertext)
	return writeFrame(s.conn, frame)
}

// Receive reads and authenticates the next record.
func (s *Session) Receive(ctx context.Context) (Record, error) {
	frame, err := readFrame(s.conn)
	if err != nil {
		return Record{}, err
	}
	if len(frame) < typeLen {
		return Record{}, cryyptoerr.DataTooShort(typeLen, len(frame))
	}
	recType := RecordType(frame[0])
	ciphertext := frame[typeLen:]

	counter := s.recvCounter.Add(1) - 1
	subkey, err := s.subkey(counter)
	if err != nil {
		return Record{}, err
	}
	plaintext, err := cipher.New(cipher.ChaCha20Poly1305, subkey).Decrypt(ctx, ciphertext)
	if err != nil {
		return Record{}, err
	}
	return Record{Type: recType, Payload: plaintext}, nil
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
