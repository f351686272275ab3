package episodic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxEpisodes = 8
	return cfg
}

func vec(vals ...float64) []float64 { return vals }

func TestAddAssignsStableHandles(t *testing.T) {
	s := New(testConfig())
	id1, err := s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	require.NoError(t, err)
	id2, err := s.Add(vec(0, 1, 0), nil, nil, 2, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	s.Remove(id1)
	id3, err := s.Add(vec(0, 0, 1), nil, nil, 3, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id3, "handles are never reused after removal")
}

func TestAddAtCapacityFails(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEpisodes = 2
	s := New(cfg)
	_, err := s.Add(vec(1, 0), nil, nil, 1, 0.5)
	require.NoError(t, err)
	_, err = s.Add(vec(0, 1), nil, nil, 2, 0.5)
	require.NoError(t, err)

	_, err = s.Add(vec(1, 1), nil, nil, 3, 0.5)
	assert.ErrorIs(t, err, ErrStoreFull)
	assert.Equal(t, 2, s.Len())
}

func TestTemporalEdgesLinkConsecutiveEpisodes(t *testing.T) {
	s := New(testConfig())
	id1, _ := s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	id2, _ := s.Add(vec(0, 1, 0), nil, nil, 2, 0.5)

	assert.True(t, hasEdge(s.Get(id1), id2, EdgeTemporal))
	assert.True(t, hasEdge(s.Get(id2), id1, EdgeTemporal))
}

func TestSimilarityEdgesRespectThreshold(t *testing.T) {
	s := New(testConfig())
	id1, _ := s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	id2, _ := s.Add(vec(0.99, 0.1, 0), nil, nil, 2, 0.5)
	id3, _ := s.Add(vec(0, 0, 1), nil, nil, 3, 0.5)

	assert.True(t, hasEdge(s.Get(id2), id1, EdgeSimilarity))
	assert.False(t, hasEdge(s.Get(id3), id1, EdgeSimilarity), "orthogonal states stay unlinked")
}

func TestCausalEdgeOnSharedTag(t *testing.T) {
	s := New(testConfig())
	id1, _ := s.Add(vec(1, 0, 0), nil, []string{"alarm"}, 1, 0.5)
	id2, _ := s.Add(vec(0, 1, 0), nil, []string{"alarm", "recovery"}, 2, 0.5)

	assert.True(t, hasEdge(s.Get(id1), id2, EdgeCausal), "earlier episode points at later")
	assert.False(t, hasEdge(s.Get(id2), id1, EdgeCausal))
}

func TestCausalEdgesReachNonAdjacentEpisodes(t *testing.T) {
	s := New(testConfig())
	tagged, _ := s.Add(vec(1, 0, 0), nil, []string{"alarm"}, 1, 0.5)
	keyed, _ := s.Add(vec(0, 1, 0), map[string]string{"room": "lab"}, nil, 2, 0.5)
	unrelated, _ := s.Add(vec(0, 0, 1), nil, nil, 3, 0.5)
	late, _ := s.Add(vec(0.5, 0.5, 0), map[string]string{"room": "hall"}, []string{"alarm"}, 4, 0.5)

	assert.True(t, hasEdge(s.Get(tagged), late, EdgeCausal), "shared tag links across the gap")
	assert.True(t, hasEdge(s.Get(keyed), late, EdgeCausal), "shared context key links across the gap")
	assert.False(t, hasEdge(s.Get(unrelated), late, EdgeCausal))
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	s := New(testConfig())
	near, _ := s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	_, _ = s.Add(vec(0, 1, 0), nil, nil, 2, 0.5)
	_, _ = s.Add(vec(0, 0, 1), nil, nil, 3, 0.5)

	got, err := s.Retrieve(vec(0.9, 0.1, 0), 1, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near, got[0].ID)
}

func TestRetrieveBumpsUtilityAndAccess(t *testing.T) {
	s := New(testConfig())
	id, _ := s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	before := s.Get(id).Utility

	_, err := s.Retrieve(vec(1, 0, 0), 1, true)
	require.NoError(t, err)
	ep := s.Get(id)
	assert.Equal(t, 1, ep.AccessCount)
	assert.GreaterOrEqual(t, ep.Utility, before)
	assert.LessOrEqual(t, ep.Utility, 1.0)
}

func TestRetrieveDimensionMismatch(t *testing.T) {
	s := New(testConfig())
	_, _ = s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	_, err := s.Retrieve(vec(1, 0), 1, true)
	assert.Error(t, err)
}

func TestRetrieveDeterministicTieBreak(t *testing.T) {
	s := New(testConfig())
	a, _ := s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	b, _ := s.Add(vec(1, 0, 0), nil, nil, 2, 0.5)

	got, err := s.Retrieve(vec(1, 0, 0), 2, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	if got[0].Score == got[1].Score {
		assert.Equal(t, a, got[0].ID)
		assert.Equal(t, b, got[1].ID)
	}
}

func TestRetrieveWithoutRankDropsRankTerm(t *testing.T) {
	s := New(testConfig())
	_, _ = s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)

	// A single node holds the whole normalized rank, so the rank term
	// contributes exactly its weight when enabled and nothing otherwise.
	with, err := s.Retrieve(vec(1, 0, 0), 1, true)
	require.NoError(t, err)
	without, err := s.Retrieve(vec(1, 0, 0), 1, false)
	require.NoError(t, err)
	cfg := testConfig()
	assert.InDelta(t, cfg.RankWeight, with[0].Score-without[0].Score, 1e-9)
}

func TestRankFavorsConnectedEpisodes(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEpisodes = 16
	cfg.SimilarityThreshold = 0.95
	s := New(cfg)
	hub, _ := s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	for i := 0; i < 4; i++ {
		_, _ = s.Add(vec(0.99, 0.05, 0), nil, nil, uint64(i+2), 0.5)
	}
	lone, _ := s.Add(vec(0, 0, 1), nil, nil, 10, 0.5)

	assert.Greater(t, s.Rank(hub), s.Rank(lone))
}

func TestDecayShrinksUtility(t *testing.T) {
	s := New(testConfig())
	id, _ := s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	before := s.Get(id).Utility
	s.Decay()
	assert.Less(t, s.Get(id).Utility, before)
}

func TestRemoveDropsInboundEdges(t *testing.T) {
	s := New(testConfig())
	id1, _ := s.Add(vec(1, 0, 0), nil, nil, 1, 0.5)
	id2, _ := s.Add(vec(0.99, 0.05, 0), nil, nil, 2, 0.5)

	s.Remove(id1)
	assert.Nil(t, s.Get(id1))
	for _, e := range s.Get(id2).Out {
		assert.NotEqual(t, id1, e.Target)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New(testConfig())
	_, _ = s.Add(vec(1, 0, 0), map[string]string{"mode": "calm"}, []string{"a"}, 1, 0.5)
	_, _ = s.Add(vec(0.98, 0.1, 0), nil, []string{"a"}, 2, 0.7)
	snap := s.Export()

	restored := New(testConfig())
	require.NoError(t, restored.Import(snap))
	assert.Equal(t, s.Len(), restored.Len())
	assert.Equal(t, s.IDs(), restored.IDs())

	// Handles keep advancing from the snapshot point.
	id, err := restored.Add(vec(0, 1, 0), nil, nil, 3, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func hasEdge(ep *Episode, target int64, kind EdgeKind) bool {
	for _, e := range ep.Out {
		if e.Target == target && e.Kind == kind {
			return true
		}
	}
	return false
}
