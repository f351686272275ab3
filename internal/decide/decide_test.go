package decide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/cognitive-core/internal/qvalue"
)

func cand(id string) qvalue.Candidate {
	return qvalue.Candidate{ID: id, Action: []float64{0.1, 0, 0, 0}}
}

func val(id string, q, risk, mag float64) qvalue.Valuation {
	return qvalue.Valuation{
		CandidateID: id,
		Q:           q,
		Risk:        risk,
		Metrics:     qvalue.Metrics{Magnitude: mag, Efficiency: 1.0, Modularity: 0.5, Risk: risk},
	}
}

func TestSelectPicksHighestQ(t *testing.T) {
	s := New(DefaultConfig())
	cands := []qvalue.Candidate{cand("a"), cand("b"), cand("c")}
	vals := []qvalue.Valuation{
		val("a", 0.2, 0.3, 0.1),
		val("b", 0.8, 0.3, 0.1),
		val("c", 0.5, 0.3, 0.1),
	}
	d, err := s.Select(cands, vals)
	require.NoError(t, err)
	assert.Equal(t, "b", d.CandidateID)
	assert.Equal(t, 1, d.Index)
	assert.Equal(t, 3, d.Feasible)
	assert.Equal(t, []string{"c", "a"}, d.Alternatives, "runners-up ranked best first")
}

func TestHardFilterExcludesRisky(t *testing.T) {
	s := New(DefaultConfig())
	cands := []qvalue.Candidate{cand("risky"), cand("safe")}
	vals := []qvalue.Valuation{
		val("risky", 5.0, 0.95, 0.1), // best Q but over the risk bound
		val("safe", 0.1, 0.2, 0.1),
	}
	d, err := s.Select(cands, vals)
	require.NoError(t, err)
	assert.Equal(t, "safe", d.CandidateID)
	assert.Equal(t, 1, d.Excluded)
}

func TestHardFilterExcludesOversizedAction(t *testing.T) {
	s := New(DefaultConfig())
	cands := []qvalue.Candidate{cand("big"), cand("small")}
	vals := []qvalue.Valuation{
		val("big", 5.0, 0.2, 0.99),
		val("small", 0.1, 0.2, 0.1),
	}
	d, err := s.Select(cands, vals)
	require.NoError(t, err)
	assert.Equal(t, "small", d.CandidateID)
}

func TestNoFeasibleCandidate(t *testing.T) {
	s := New(DefaultConfig())
	cands := []qvalue.Candidate{cand("a")}
	vals := []qvalue.Valuation{val("a", 0.5, 0.99, 0.1)}
	_, err := s.Select(cands, vals)
	assert.ErrorIs(t, err, ErrNoFeasibleCandidate)

	_, err = s.Select(nil, nil)
	assert.ErrorIs(t, err, ErrNoFeasibleCandidate)
}

func TestSoftPenaltyBreaksNearTie(t *testing.T) {
	s := New(DefaultConfig())
	cheap := cand("cheap")
	costly := cand("costly")
	costly.Complexity = 1.0
	costly.Resources = 1.0
	vals := []qvalue.Valuation{
		val("cheap", 0.5, 0.3, 0.1),
		val("costly", 0.5, 0.3, 0.1),
	}
	d, err := s.Select([]qvalue.Candidate{cheap, costly}, vals)
	require.NoError(t, err)
	assert.Equal(t, "cheap", d.CandidateID)
}

func TestDeterministicTieBreakOnID(t *testing.T) {
	s := New(DefaultConfig())
	cands := []qvalue.Candidate{cand("zz"), cand("aa")}
	vals := []qvalue.Valuation{
		val("zz", 0.5, 0.3, 0.1),
		val("aa", 0.5, 0.3, 0.1),
	}
	d, err := s.Select(cands, vals)
	require.NoError(t, err)
	assert.Equal(t, "aa", d.CandidateID)
}

func TestMismatchedSlicesError(t *testing.T) {
	s := New(DefaultConfig())
	_, err := s.Select([]qvalue.Candidate{cand("a")}, nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFeasibleCandidate)
}
