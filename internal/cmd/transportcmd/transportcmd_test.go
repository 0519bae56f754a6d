package transportcmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyrup-ai/cryypt/internal/pqcrypto"
)

func TestParseKemAlgorithm(t *testing.T) {
	alg, err := parseKemAlgorithm("")
	require.NoError(t, err)
	require.Equal(t, pqcrypto.MLKEM768, alg)

	alg, err = parseKemAlgorithm("ML-KEM-512")
	require.NoError(t, err)
	require.Equal(t, pqcrypto.MLKEM512, alg)

	alg, err = parseKemAlgorithm("ML-KEM-1024")
	require.NoError(t, err)
	require.Equal(t, pqcrypto.MLKEM1024, alg)

	_, err = parseKemAlgorithm("ML-KEM-999")
	require.Error(t, err)
}

func TestSelfSignedTLSConfig(t *testing.T) {
	conf, err := selfSignedTLSConfig()
	require.NoError(t, err)
	require.Len(t, conf.Certificates, 1)
	require.Equal(t, []string{"cryypt-transport"}, conf.NextProtos)
	require.NotEmpty(t, conf.Certificates[0].Certificate)
}
