package engine

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IdentityReference is one known identity in the matcher's snapshot.
type IdentityReference struct {
	ID       uuid.UUID
	Name     string
	Eligible bool
	// Embeddings holds the identity's reference vectors in registration
	// order. An entry may be empty or malformed if enrollment failed; the
	// matcher skips those.
	Embeddings [][]float32
}

// Registry holds the current identity snapshot. The directory refresher
// replaces the snapshot wholesale; in-flight matches always read one
// consistent snapshot, never a half-updated one.
type Registry struct {
	snapshot atomic.Pointer[[]IdentityReference]
}

func NewRegistry() *Registry {
	r := &Registry{}
	empty := make([]IdentityReference, 0)
	r.snapshot.Store(&empty)
	return r
}

// Replace swaps in a new snapshot. The slice is copied, so the caller may
// reuse its own.
func (r *Registry) Replace(refs []IdentityReference) {
	snap := make([]IdentityReference, len(refs))
	copy(snap, refs)
	r.snapshot.Store(&snap)
}

// Snapshot returns the current identity set in registration order. Callers
// must treat it as read-only.
func (r *Registry) Snapshot() []IdentityReference {
	return *r.snapshot.Load()
}

// Len returns the number of identities in the current snapshot.
func (r *Registry) Len() int {
	return len(r.Snapshot())
}
