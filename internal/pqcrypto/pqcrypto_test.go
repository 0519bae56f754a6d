package pqcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

func TestKem_EncapsulateDecapsulateAgree(t *testing.T) {
	kp, err := GenerateKemKeyPair(MLKEM768)
	require.NoError(t, err)

	ct, ss1, err := Encapsulate(MLKEM768, kp.PublicKey)
	require.NoError(t, err)

	ss2, err := Decapsulate(MLKEM768, kp.PrivateKey, ct)
	require.NoError(t, err)
	require.Equal(t, ss1, ss2)
}

func TestSign_VerifyRoundTrip(t *testing.T) {
	kp, err := GenerateSignKeyPair(MLDSA65)
	require.NoError(t, err)

	msg := []byte("transport handshake transcript")
	sig, err := Sign(MLDSA65, kp.PrivateKey, msg)
	require.NoError(t, err)

	ok, err := Verify(MLDSA65, kp.PublicKey, msg, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSign_TamperedMessageFailsVerification(t *testing.T) {
	kp, err := GenerateSignKeyPair(Falcon512)
	require.NoError(t, err)

	sig, err := Sign(Falcon512, kp.PrivateKey, []byte("original"))
	require.NoError(t, err)

	ok, err := Verify(Falcon512, kp.PublicKey, []byte("tampered"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := GenerateKemKeyPair("ML-KEM-9999")
	require.Equal(t, cryyptoerr.KindUnsupportedAlgorithm, cryyptoerr.KindOf(err))
}
