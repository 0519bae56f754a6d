package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyEnv_OverridesDefaults(t *testing.T) {
	t.Setenv("CYRYPT_VAULT_PATH", "/tmp/custom-vault.db")
	t.Setenv("CYRYPT_AT_REST_CIPHER", "cascade")
	t.Setenv("CYRYPT_SESSION_TTL", "PT2H")
	t.Setenv("CYRYPT_SESSION_CHECK_TIMEOUT", "10s")
	t.Setenv("CYRYPT_CACHE_MAX_ENTRIES", "8192")
	t.Setenv("CYRYPT_CACHE_EVICT_TARGET", "0.75")
	t.Setenv("CYRYPT_KDF_MEMORY_COST_KIB", "65536")
	t.Setenv("CYRYPT_KDF_PARALLELISM", "4")

	cfg := DefaultConfig()
	err := cfg.ApplyEnv()
	require.NoError(t, err)

	require.Equal(t, "/tmp/custom-vault.db", cfg.VaultPath)
	require.Equal(t, "cascade", cfg.AtRestCipher)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, 10*time.Second, cfg.SessionCheckTimeout)
	require.Equal(t, 8192, cfg.CacheMaxEntries)
	require.Equal(t, 0.75, cfg.CacheEvictTarget)
	require.Equal(t, uint32(65536), cfg.KDFMemoryCostKiB)
	require.Equal(t, uint8(4), cfg.KDFParallelism)
}

func TestApplyEnv_RejectsInvalidDuration(t *testing.T) {
	t.Setenv("CYRYPT_SESSION_TTL", "not-a-duration")
	cfg := DefaultConfig()
	require.Error(t, cfg.ApplyEnv())
}

func TestParseDuration_ISO8601(t *testing.T) {
	d, err := parseDuration("PT1H30M")
	require.NoError(t, err)
	require.Equal(t, time.Hour+30*time.Minute, d)
}

func TestParseDuration_GoLiteral(t *testing.T) {
	d, err := parseDuration("45s")
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, d)
}
