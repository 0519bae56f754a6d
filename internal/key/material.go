package key

import "sync"

// Material is an owned byte buffer of key bytes with its identifying
// metadata, per spec.md §3. It is exclusively owned while in use; Zeroize
// overwrites the underlying bytes so no plaintext key material survives
// past the point a caller is done with it. String and the default %v
// formatting never print the raw bytes.
type Material struct {
	mu        sync.Mutex
	bytes     []byte
	Namespace string
	Version   int
	Suffix    string
	SizeBits  int
	zeroized  bool
}

// NewMaterial wraps raw key bytes with identifying metadata.
func NewMaterial(b []byte, namespace string, version int, suffix string) *Material {
	return &Material{
		bytes:     b,
		Namespace: namespace,
		Version:   version,
		Suffix:    suffix,
		SizeBits:  len(b) * 8,
	}
}

// ID returns this key's composite natural key.
func (m *Material) ID() string { return ID(m.Namespace, m.Version, m.Suffix) }

// Bytes returns the current plaintext key bytes. Returns nil once Zeroize
// has been called.
func (m *Material) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zeroized {
		return nil
	}
	return m.bytes
}

// Zeroize overwrites the key bytes with zeros in place. Safe to call more
// than once; subsequent calls are no-ops.
func (m *Material) Zeroize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zeroized {
		return
	}
	for i := range m.bytes {
		m.bytes[i] = 0
	}
	m.zeroized = true
}

// String deliberately never renders key bytes — spec.md §3: "Key material
// is never serialized in plaintext."
func (m *Material) String() string {
	return "Material{id=" + m.ID() + ", redacted}"
}

// ZeroizeAll zeroizes every material in ms, used by batch generation's
// partial-failure cleanup (spec.md §4.B).
func ZeroizeAll(ms []*Material) {
	for _, m := range ms {
		m.Zeroize()
	}
}
