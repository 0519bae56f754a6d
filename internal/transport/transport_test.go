package transport

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyrup-ai/cryypt/internal/pqcrypto"
)

type loopback struct {
	io.Reader
	io.Writer
}

func (loopback) Close() error { return nil }

func TestHandshake_ClientServerAgreeOnSharedSecret(t *testing.T) {
	ctx := context.Background()
	kp, err := pqcrypto.GenerateKemKeyPair(pqcrypto.MLKEM768)
	require.NoError(t, err)

	pubBytes, err := kp.PublicKey.MarshalBinary()
	require.NoError(t, err)

	var wire bytes.Buffer
	clientSecret, err := ClientHandshake(ctx, &wire, pqcrypto.MLKEM768, pubBytes)
	require.NoError(t, err)

	serverSecret, err := ServerHandshake(ctx, &wire, pqcrypto.MLKEM768, kp.PrivateKey)
	require.NoError(t, err)

	require.Equal(t, clientSecret, serverSecret)
}

func TestSession_SendReceiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	aToB, bToA := new(bytes.Buffer), new(bytes.Buffer)

	sharedSecret := make([]byte, 32)
	for i := range sharedSecret {
		sharedSecret[i] = byte(i)
	}

	client := NewSession(loopback{Reader: bToA, Writer: aToB}, sharedSecret)
	server := NewSession(loopback{Reader: aToB, Writer: bToA}, sharedSecret)

	require.NoError(t, client.Send(ctx, Record{Type: RecordMessage, Payload: []byte("hello")}))
	rec, err := server.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, RecordMessage, rec.Type)
	require.Equal(t, []byte("hello"), rec.Payload)
}

func TestSession_SubkeysDifferPerRecord(t *testing.T) {
	ctx := context.Background()
	aToB := new(bytes.Buffer)

	sharedSecret := make([]byte, 32)
	client := NewSession(loopback{Reader: aToB, Writer: aToB}, sharedSecret)

	k0, err := client.subkey(0)
	require.NoError(t, err)
	k1, err := client.subkey(1)
	require.NoError(t, err)
	require.NotEqual(t, k0, k1)

	_ = ctx
}

func TestSession_TamperedRecordFailsAuthentication(t *testing.T) {
	ctx := context.Background()
	wire := new(bytes.Buffer)
	sharedSecret := make([]byte, 32)

	client := NewSession(loopback{Reader: wire, Writer: wire}, sharedSecret)
	require.NoError(t, client.Send(ctx, Record{Type: RecordRPC, Payload: []byte("call")}))

	raw := wire.Bytes()
	raw[len(raw)-1] ^= 0xFF

	server := NewSession(loopback{Reader: bytes.NewReader(raw), Writer: io.Discard}, sharedSecret)
	_, err := server.Receive(ctx)
	require.Error(t, err)
}
