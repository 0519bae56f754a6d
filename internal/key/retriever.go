package key

import (
	"context"

	"github.com/cyrup-ai/cryypt/internal/asynctask"
	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// Retriever is the typestate-flavored entry point for key lookup.
type Retriever struct {
	store Retrieval
}

// NewRetriever builds a Retriever reading through store.
func NewRetriever(store Retrieval) *Retriever {
	return &Retriever{store: store}
}

// Retrieve looks up "<namespace>:v<version>[:suffix]", per spec.md §4.B.
// Version 0 and version > 1,000,000 are rejected before any I/O; a
// missing key surfaces as KeyNotFound{id, version}. The returned Material
// wraps the retrieved bytes in a zeroizing buffer.
func (r *Retriever) Retrieve(ctx context.Context, namespace string, version int, suffix string) (*Material, error) {
	if err := ValidateVersion(version); err != nil {
		return nil, err
	}
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	id := ID(namespace, version, suffix)

	fut := asynctask.Spawn(ctx, func() (*Material, error) {
		b, err := r.store.Retrieve(ctx, id)
		if err != nil {
			return nil, cryyptoerr.KeyNotFound(id, version).WithFields(map[string]any{
				"id": id, "version": version, "cause": err.Error(),
			})
		}
		if len(b) == 0 {
			return nil, cryyptoerr.KeyNotFound(id, version)
		}
		return NewMaterial(b, namespace, version, suffix), nil
	})
	return fut.Await(ctx)
}
