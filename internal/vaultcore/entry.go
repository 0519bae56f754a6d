package vaultcore

import "time"

// Value is an owned, in-memory vault value: a byte buffer plus optional
// metadata, zeroized once the caller is done with it. String/Debug never
// render the raw bytes (spec.md §3 "Vault value (in-memory)").
type Value struct {
	Bytes    []byte
	Metadata map[string]string
}

// Zeroize overwrites Bytes with zeros in place.
func (v *Value) Zeroize() {
	for i := range v.Bytes {
		v.Bytes[i] = 0
	}
}

func (v Value) String() string { return "Value{redacted}" }
func (v Value) GoString() string { return "Value{redacted}" }

// Entry is the persisted, decrypted view of a vault record (spec.md §3
// "Vault entry"): ciphertext is handled at the storage boundary, never
// exposed here.
type Entry struct {
	Key       string
	Value     Value
	Namespace string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time
}

// IsExpired reports whether the entry has passed its expiry, if any.
func (e Entry) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}
