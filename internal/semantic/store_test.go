package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidateFoundsNewConcept(t *testing.T) {
	s := New(DefaultConfig())
	id, created, err := s.Consolidate([]float64{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, 1, s.Len())
}

func TestConsolidateReinforcesNearConcept(t *testing.T) {
	s := New(DefaultConfig())
	id, _, err := s.Consolidate([]float64{1, 0, 0}, 1)
	require.NoError(t, err)

	id2, created, err := s.Consolidate([]float64{0.95, 0.05, 0}, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, id2)

	c := s.Get(id)
	assert.Equal(t, 2, c.Support)
	assert.Greater(t, c.Prototype[1], 0.0, "prototype drifts toward new evidence")
	assert.Less(t, c.Prototype[1], 0.05, "drift is damped by the learning rate")
}

func TestConsolidateDistantStateFoundsConcept(t *testing.T) {
	s := New(DefaultConfig())
	_, _, err := s.Consolidate([]float64{1, 0, 0}, 1)
	require.NoError(t, err)
	_, created, err := s.Consolidate([]float64{0, 0, 1}, 2)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, s.Len())
}

func TestConsolidateEvictsWeakestAtCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcepts = 2
	s := New(cfg)
	weak, _, _ := s.Consolidate([]float64{1, 0, 0}, 1)
	strong, _, _ := s.Consolidate([]float64{0, 1, 0}, 2)
	_, _, _ = s.Consolidate([]float64{0, 0.97, 0.05}, 3) // reinforce strong

	_, created, err := s.Consolidate([]float64{0, 0, 1}, 4)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, s.Len())
	assert.Nil(t, s.Get(weak))
	assert.NotNil(t, s.Get(strong))
}

func TestQueryOrdersBySimilarity(t *testing.T) {
	s := New(DefaultConfig())
	a, _, _ := s.Consolidate([]float64{1, 0, 0}, 1)
	_, _, _ = s.Consolidate([]float64{0, 1, 0}, 2)

	got := s.Query([]float64{0.9, 0.1, 0}, 2, 0)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Greater(t, got[0].Similarity, got[1].Similarity)
}

func TestQueryHonorsSimilarityFloor(t *testing.T) {
	s := New(DefaultConfig())
	near, _, _ := s.Consolidate([]float64{1, 0, 0}, 1)
	_, _, _ = s.Consolidate([]float64{0, 1, 0}, 2)

	got := s.Query([]float64{1, 0, 0}, 5, 0.5)
	require.Len(t, got, 1, "orthogonal concept falls below the floor")
	assert.Equal(t, near, got[0].ID)
}

func TestMergePassCollapsesNearDuplicates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchThreshold = 0.999 // force two separate concepts
	s := New(cfg)
	a, _, _ := s.Consolidate([]float64{1, 0, 0}, 1)
	b, _, _ := s.Consolidate([]float64{0.99, 0.05, 0}, 2)
	require.Equal(t, 2, s.Len())

	merged := s.MergePass()
	assert.Equal(t, 1, merged)
	assert.Equal(t, 1, s.Len())
	survivor := s.Get(a)
	if survivor == nil {
		survivor = s.Get(b)
	}
	require.NotNil(t, survivor)
	assert.Equal(t, 2, survivor.Support)
}

func TestDecayLowersConfidence(t *testing.T) {
	s := New(DefaultConfig())
	id, _, _ := s.Consolidate([]float64{1, 0, 0}, 1)
	before := s.Get(id).Confidence
	s.Decay()
	assert.Less(t, s.Get(id).Confidence, before)
	for i := 0; i < 1000; i++ {
		s.Decay()
	}
	assert.GreaterOrEqual(t, s.Get(id).Confidence, 0.0)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New(DefaultConfig())
	_, _, _ = s.Consolidate([]float64{1, 0, 0}, 1)
	_, _, _ = s.Consolidate([]float64{0, 1, 0}, 2)
	snap := s.Export()

	restored := New(DefaultConfig())
	require.NoError(t, restored.Import(snap))
	assert.Equal(t, s.Len(), restored.Len())
	assert.Equal(t, s.IDs(), restored.IDs())

	id, created, err := restored.Consolidate([]float64{0, 0, 1}, 3)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(3), id)
}
