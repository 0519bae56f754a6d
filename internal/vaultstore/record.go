// Package vaultstore is the vault's backing document store: an embedded
// SQLite database (via gorm.io/gorm) holding every entry's ciphertext
// and metadata. Encryption at rest is applied by the caller (internal
// vaultcore) — this package only persists and queries opaque bytes.
package vaultstore

import (
	"context"
	"regexp"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// Record is a single stored vault entry. Ciphertext holds the
// already-encrypted value bytes; Metadata is persisted verbatim and
// never encrypted (spec.md §4.F: "Metadata persisted verbatim").
type Record struct {
	Key        string `gorm:"column:key;primaryKey"`
	Namespace  string `gorm:"column:namespace;index"`
	Ciphertext []byte `gorm:"column:ciphertext;not null"`
	Metadata   string `gorm:"column:metadata"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
	ExpiresAt  *time.Time `gorm:"column:expires_at;index"`
}

func (Record) TableName() string { return "vault_entries" }

// Store is the gorm-backed document store.
type Store struct {
	db *gorm.DB
}

// Open creates or connects to a SQLite database at path and migrates
// the entries table.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, cryyptoerr.IO(err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying gorm handle, for transaction construction in
// internal/vaultcore.
func (s *Store) DB() *gorm.DB { return s.db }

// Put upserts rec, setting UpdatedAt to now.
func (s *Store) Put(ctx context.Context, rec Record) error {
	rec.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).Save(&rec).Error
	if err != nil {
		return cryyptoerr.IO(err)
	}
	return nil
}

// Get returns the record for key if present and not expired, comparing
// ExpiresAt to now server-side, per spec.md §4.F.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	var rec Record
	now := time.Now()
	err := s.db.WithContext(ctx).
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key, now).
		First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, cryyptoerr.IO(err)
	}
	return &rec, nil
}

// Delete removes key idempotently.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&Record{}).Error
	if err != nil {
		return cryyptoerr.IO(err)
	}
	return nil
}

// List streams every stored key.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Model(&Record{}).Pluck("key", &keys).Error
	if err != nil {
		return nil, cryyptoerr.IO(err)
	}
	return keys, nil
}

// Find streams every record whose key matches the POSIX-like regex
// pattern, per spec.md §4.F.
func (s *Store) Find(ctx context.Context, pattern string) ([]Record, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, cryyptoerr.InvalidParameters("vaultstore: invalid find pattern: " + err.Error())
	}
	var all []Record
	if err := s.db.WithContext(ctx).Find(&all).Error; err != nil {
		return nil, cryyptoerr.IO(err)
	}
	matched := make([]Record, 0, len(all))
	for _, rec := range all {
		if re.MatchString(rec.Key) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// All returns every record including expired ones, for backup export.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	var all []Record
	if err := s.db.WithContext(ctx).Find(&all).Error; err != nil {
		return nil, cryyptoerr.IO(err)
	}
	return all, nil
}

// PutAll performs an atomic batch upsert within a single transaction,
// per spec.md §4.F's put_all.
func (s *Store) PutAll(ctx context.Context, recs []Record) error {
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range recs {
			recs[i].UpdatedAt = now
			if err := tx.Save(&recs[i]).Error; err != nil {
				return cryyptoerr.IO(err)
			}
		}
		return nil
	})
}
