package key

import "context"

// Storage is the minimal capability set a persistence backend must supply
// to store wrapped key material, per spec.md's "capability set" design
// note (Storage + Retrieval, never a deep interface hierarchy).
type Storage interface {
	Store(ctx context.Context, keyID string, plaintext []byte) error
}

// Retrieval is the matching read-side capability set.
type Retrieval interface {
	Retrieve(ctx context.Context, keyID string) ([]byte, error)
}

// Lister is implemented by backends that can enumerate their stored keys
// (spec.md §4.C's file store list_keys()).
type Lister interface {
	ListKeys(ctx context.Context) ([]ListedKey, error)
}

// ListedKey is one entry returned by Lister.
type ListedKey struct {
	Namespace string
	Version   int
}
