package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ErrInvalidEmbedding marks an observed embedding with the wrong
// dimensionality or NaN components. The host drops the detection.
var ErrInvalidEmbedding = errors.New("invalid embedding")

// MatchResult is the outcome of resolving one observed embedding.
// IdentityID is nil when the nearest eligible identity is farther than the
// threshold, or when no eligible identity has a usable reference embedding.
type MatchResult struct {
	IdentityID *uuid.UUID
	Name       string
	Distance   float64
	Confidence float64
}

// Matcher resolves observed embeddings against the registry snapshot.
type Matcher struct {
	registry  *Registry
	dim       int
	threshold float64
}

func NewMatcher(registry *Registry, dim int, threshold float64) *Matcher {
	return &Matcher{registry: registry, dim: dim, threshold: threshold}
}

// Match resolves one embedding to a known identity or unknown. For each
// eligible identity the best-case (minimum) distance across its reference set
// is taken; the global minimum wins. Ties go to the first-registered identity.
// An empty registry resolves to unknown, never an error.
func (m *Matcher) Match(embedding []float32) (MatchResult, error) {
	if err := validateEmbedding(embedding, m.dim); err != nil {
		return MatchResult{}, err
	}

	snapshot := m.registry.Snapshot()

	bestIdx := -1
	bestDist := math.Inf(1)
	for i := range snapshot {
		ref := &snapshot[i]
		if !ref.Eligible {
			continue
		}
		d, ok := bestIdentityDistance(embedding, ref.Embeddings, m.dim)
		if !ok {
			// No usable reference embeddings; never a candidate.
			continue
		}
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return MatchResult{Distance: math.Inf(1)}, nil
	}

	res := MatchResult{
		Distance:   bestDist,
		Confidence: math.Max(0, 1-bestDist),
	}
	if bestDist <= m.threshold {
		id := snapshot[bestIdx].ID
		res.IdentityID = &id
		res.Name = snapshot[bestIdx].Name
	}
	return res, nil
}

func validateEmbedding(embedding []float32, dim int) error {
	if len(embedding) != dim {
		return fmt.Errorf("%w: got %d dims, want %d", ErrInvalidEmbedding, len(embedding), dim)
	}
	for _, v := range embedding {
		if math.IsNaN(float64(v)) {
			return fmt.Errorf("%w: NaN component", ErrInvalidEmbedding)
		}
	}
	return nil
}

// bestIdentityDistance returns the minimum distance from the observation to
// any usable reference embedding of one identity. ok is false when the
// identity has none.
func bestIdentityDistance(embedding []float32, refs [][]float32, dim int) (float64, bool) {
	best := math.Inf(1)
	found := false
	for _, ref := range refs {
		if validateEmbedding(ref, dim) != nil {
			continue
		}
		if d := cosineDistance(embedding, ref); d < best {
			best = d
		}
		found = true
	}
	return best, found
}

// cosineDistance is 1 minus cosine similarity, clamped to [0, 2]. Inputs are
// expected to be L2-normalized but norms are computed anyway so unnormalized
// enrollments still compare sanely.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	sim = math.Min(1.0, math.Max(-1.0, sim))
	return 1 - sim
}
