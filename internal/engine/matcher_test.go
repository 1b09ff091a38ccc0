package engine

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

// vecAtDistance returns a unit vector whose cosine distance from
// [1, 0, 0, 0] is exactly d.
func vecAtDistance(d float64) []float32 {
	sim := 1 - d
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim)), 0, 0}
}

func probeVec() []float32 {
	return []float32{1, 0, 0, 0}
}

func TestMatcherPicksNearestEligibleIdentity(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	reg := NewRegistry()
	reg.Replace([]IdentityReference{
		{ID: alice, Name: "Alice", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.4)}},
		{ID: bob, Name: "Bob", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.7)}},
	})

	m := NewMatcher(reg, testDim, 0.6)
	res, err := m.Match(probeVec())
	require.NoError(t, err)
	require.NotNil(t, res.IdentityID)
	assert.Equal(t, alice, *res.IdentityID)
	assert.Equal(t, "Alice", res.Name)
	assert.InDelta(t, 0.4, res.Distance, 1e-5)
	assert.InDelta(t, 0.6, res.Confidence, 1e-5)
}

func TestMatcherUsesBestCaseDistancePerIdentity(t *testing.T) {
	alice := uuid.New()

	reg := NewRegistry()
	reg.Replace([]IdentityReference{
		{ID: alice, Name: "Alice", Eligible: true, Embeddings: [][]float32{
			vecAtDistance(0.9),
			vecAtDistance(0.2),
			vecAtDistance(0.5),
		}},
	})

	m := NewMatcher(reg, testDim, 0.6)
	res, err := m.Match(probeVec())
	require.NoError(t, err)
	require.NotNil(t, res.IdentityID)
	assert.InDelta(t, 0.2, res.Distance, 1e-5)
}

func TestMatcherBeyondThresholdIsUnknown(t *testing.T) {
	reg := NewRegistry()
	reg.Replace([]IdentityReference{
		{ID: uuid.New(), Name: "Alice", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.7)}},
	})

	m := NewMatcher(reg, testDim, 0.6)
	res, err := m.Match(probeVec())
	require.NoError(t, err)
	assert.Nil(t, res.IdentityID)
	assert.InDelta(t, 0.7, res.Distance, 1e-5)
	// Confidence still reflects the nearest distance.
	assert.InDelta(t, 0.3, res.Confidence, 1e-5)
}

func TestMatcherSkipsIneligibleIdentities(t *testing.T) {
	contractor := uuid.New()
	alice := uuid.New()

	reg := NewRegistry()
	reg.Replace([]IdentityReference{
		// Closest, but no longer authorized: must resolve elsewhere.
		{ID: contractor, Name: "Expired", Eligible: false, Embeddings: [][]float32{vecAtDistance(0.1)}},
		{ID: alice, Name: "Alice", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.5)}},
	})

	m := NewMatcher(reg, testDim, 0.6)
	res, err := m.Match(probeVec())
	require.NoError(t, err)
	require.NotNil(t, res.IdentityID)
	assert.Equal(t, alice, *res.IdentityID)
}

func TestMatcherSkipsIdentityWithNoUsableEmbeddings(t *testing.T) {
	broken := uuid.New()
	alice := uuid.New()

	reg := NewRegistry()
	reg.Replace([]IdentityReference{
		// All enrollment attempts failed: nil, wrong dim, NaN.
		{ID: broken, Name: "Broken", Eligible: true, Embeddings: [][]float32{
			nil,
			{1, 0},
			{float32(math.NaN()), 0, 0, 0},
		}},
		{ID: alice, Name: "Alice", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.5)}},
	})

	m := NewMatcher(reg, testDim, 0.6)
	res, err := m.Match(probeVec())
	require.NoError(t, err)
	require.NotNil(t, res.IdentityID)
	assert.Equal(t, alice, *res.IdentityID)
}

func TestMatcherTieGoesToFirstRegistered(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	reg := NewRegistry()
	reg.Replace([]IdentityReference{
		{ID: first, Name: "First", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.3)}},
		{ID: second, Name: "Second", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.3)}},
	})

	m := NewMatcher(reg, testDim, 0.6)
	res, err := m.Match(probeVec())
	require.NoError(t, err)
	require.NotNil(t, res.IdentityID)
	assert.Equal(t, first, *res.IdentityID)
}

func TestMatcherEmptyRegistryIsUnknownNotError(t *testing.T) {
	m := NewMatcher(NewRegistry(), testDim, 0.6)
	res, err := m.Match(probeVec())
	require.NoError(t, err)
	assert.Nil(t, res.IdentityID)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestMatcherRejectsInvalidEmbeddings(t *testing.T) {
	m := NewMatcher(NewRegistry(), testDim, 0.6)

	tests := []struct {
		name      string
		embedding []float32
	}{
		{"nil", nil},
		{"wrong dimensionality", []float32{1, 0}},
		{"nan component", []float32{1, float32(math.NaN()), 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Match(tt.embedding)
			require.ErrorIs(t, err, ErrInvalidEmbedding)
		})
	}
}

func TestMatcherDeterminism(t *testing.T) {
	reg := NewRegistry()
	reg.Replace([]IdentityReference{
		{ID: uuid.New(), Name: "Alice", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.25)}},
		{ID: uuid.New(), Name: "Bob", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.55)}},
	})

	m := NewMatcher(reg, testDim, 0.6)
	probe := vecAtDistance(0.1)

	first, err := m.Match(probe)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		res, err := m.Match(probe)
		require.NoError(t, err)
		assert.Equal(t, first, res)
	}
}

func TestRegistryReplaceIsolatesCallerSlice(t *testing.T) {
	reg := NewRegistry()
	refs := []IdentityReference{
		{ID: uuid.New(), Name: "Alice", Eligible: true},
	}
	reg.Replace(refs)
	refs[0].Name = "mutated"

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "Alice", snap[0].Name)
	assert.Equal(t, 1, reg.Len())
}
