package config

import (
	"context"
	"os"
	"strings"
	"time"
)

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds all configuration for the vault/cipher toolbox: where
// the vault lives on disk, its KDF and at-rest cipher defaults, cache
// sizing, session lifetime, and the transport listener.
type Config struct {
	// VaultPath is the SQLite document store backing the vault.
	VaultPath string

	// KDF (key derivation) defaults for passphrase -> session key.
	KDFMemoryCostKiB uint32
	KDFIterations    int
	KDFParallelism   uint8
	KDFSaltSize      int

	// AtRestCipher selects "aes-gcm", "chacha20-poly1305", or "cascade".
	AtRestCipher string

	// SessionKeyPath is the PEM file holding the RSA keypair used to
	// sign/verify vault session JWTs.
	SessionKeyPath string
	// SessionTTL bounds how long an issued session JWT remains valid.
	SessionTTL time.Duration
	// SessionCheckTimeout bounds check_unlocked's JWT validation.
	SessionCheckTimeout time.Duration

	// Cache
	CacheMaxEntries    int
	CacheEvictTarget   float64 // fraction of CacheMaxEntries kept after eviction
	CacheWarmCount     int
	CacheSweepInterval time.Duration

	// Transport
	TransportListenAddr   string
	TransportKEMAlgorithm string // "ML-KEM-512", "ML-KEM-768", or "ML-KEM-1024"

	// Backup
	BackupKDFMemoryCostKiB uint32
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		VaultPath:              defaultVaultPath(),
		KDFMemoryCostKiB:       19 * 1024,
		KDFIterations:          2,
		KDFParallelism:         1,
		KDFSaltSize:            16,
		AtRestCipher:           "aes-gcm",
		SessionKeyPath:         defaultSessionKeyPath(),
		SessionTTL:             8 * time.Hour,
		SessionCheckTimeout:    5 * time.Second,
		CacheMaxEntries:        4096,
		CacheEvictTarget:       0.8,
		CacheWarmCount:         256,
		CacheSweepInterval:     60 * time.Second,
		TransportListenAddr:    ":7443",
		TransportKEMAlgorithm:  "ML-KEM-768",
		BackupKDFMemoryCostKiB: 19 * 1024,
	}
}

// defaultVaultPath honors XDG_CONFIG_HOME, falling back to HOME, per
// spec.md §6's "salt directory" environment variables.
func defaultVaultPath() string {
	return configDir() + "/vault.db"
}

func defaultSessionKeyPath() string {
	return configDir() + "/session.pem"
}

func configDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return dir + "/cryypt"
	}
	if home := strings.TrimSpace(os.Getenv("HOME")); home != "" {
		return home + "/.config/cryypt"
	}
	return ".cryypt"
}
