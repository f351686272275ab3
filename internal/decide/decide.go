// Package decide picks one action candidate from a scored set. Candidates
// failing a hard feasibility filter are excluded outright; the survivors are
// ranked on a min-max normalized criteria matrix with soft penalties, and
// the argmax wins with ties broken toward the lexically smaller id.
package decide

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danielpatrickdp/cognitive-core/internal/qvalue"
)

// maxAlternatives bounds the runner-up list carried in a Decision.
const maxAlternatives = 3

// ErrNoFeasibleCandidate signals that the hard filter rejected every
// candidate.
var ErrNoFeasibleCandidate = errors.New("no feasible candidate")

// #region config
// Config sets the hard limits, criteria weights, and soft penalties.
type Config struct {
	MaxMagnitude float64 `yaml:"max_magnitude"` // hard: action magnitude bound
	MaxRisk      float64 `yaml:"max_risk"`      // hard: risk bound
	MinQ         float64 `yaml:"min_q"`         // hard: floor on Q

	QWeight          float64 `yaml:"q_weight"`
	EfficiencyWeight float64 `yaml:"efficiency_weight"`
	ModularityWeight float64 `yaml:"modularity_weight"`
	SafetyWeight     float64 `yaml:"safety_weight"` // 1 - risk

	ComplexityPenalty float64 `yaml:"complexity_penalty"` // soft, scaled by candidate complexity
	ResourcePenalty   float64 `yaml:"resource_penalty"`   // soft, scaled by candidate resources
}

// DefaultConfig returns balanced selection settings.
func DefaultConfig() Config {
	return Config{
		MaxMagnitude:      0.95,
		MaxRisk:           0.8,
		MinQ:              -1.0,
		QWeight:           0.4,
		EfficiencyWeight:  0.2,
		ModularityWeight:  0.15,
		SafetyWeight:      0.25,
		ComplexityPenalty: 0.1,
		ResourcePenalty:   0.05,
	}
}

// #endregion config

// #region decision
// Decision names the chosen candidate and how it won.
type Decision struct {
	CandidateID  string   `json:"candidate_id"`
	Index        int      `json:"index"` // position in the input slice
	Score        float64  `json:"score"`
	Feasible     int      `json:"feasible"` // survivors of the hard filter
	Excluded     int      `json:"excluded"`
	Alternatives []string `json:"alternatives,omitempty"` // runners-up, best first
}

// #endregion decision

// #region selector
// Selector ranks candidates. Stateless and safe for concurrent use.
type Selector struct {
	cfg Config
}

// New returns a selector.
func New(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

// Select picks the best candidate. The candidates and valuations slices
// must be parallel.
func (s *Selector) Select(cands []qvalue.Candidate, vals []qvalue.Valuation) (Decision, error) {
	if len(cands) != len(vals) {
		return Decision{}, fmt.Errorf("%d candidates, %d valuations", len(cands), len(vals))
	}
	if len(cands) == 0 {
		return Decision{}, ErrNoFeasibleCandidate
	}

	feasible := make([]int, 0, len(cands))
	for i, v := range vals {
		if v.Metrics.Magnitude > s.cfg.MaxMagnitude {
			continue
		}
		if v.Risk > s.cfg.MaxRisk {
			continue
		}
		if v.Q < s.cfg.MinQ {
			continue
		}
		feasible = append(feasible, i)
	}
	if len(feasible) == 0 {
		return Decision{}, ErrNoFeasibleCandidate
	}

	// Criteria matrix, one row per survivor: Q, efficiency, modularity,
	// safety. Each column min-max normalized over the survivors.
	cols := [][]float64{
		column(vals, feasible, func(v qvalue.Valuation) float64 { return v.Q }),
		column(vals, feasible, func(v qvalue.Valuation) float64 { return v.Metrics.Efficiency }),
		column(vals, feasible, func(v qvalue.Valuation) float64 { return v.Metrics.Modularity }),
		column(vals, feasible, func(v qvalue.Valuation) float64 { return 1.0 - v.Risk }),
	}
	for _, c := range cols {
		normalize(c)
	}
	weights := []float64{s.cfg.QWeight, s.cfg.EfficiencyWeight, s.cfg.ModularityWeight, s.cfg.SafetyWeight}

	type ranked struct {
		idx   int
		score float64
	}
	rows := make([]ranked, len(feasible))
	for row, idx := range feasible {
		score := 0.0
		for c, col := range cols {
			score += weights[c] * col[row]
		}
		score -= s.cfg.ComplexityPenalty * cands[idx].Complexity
		score -= s.cfg.ResourcePenalty * cands[idx].Resources
		rows[row] = ranked{idx: idx, score: score}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return cands[rows[i].idx].ID < cands[rows[j].idx].ID
	})

	var alts []string
	for _, r := range rows[1:] {
		if len(alts) == maxAlternatives {
			break
		}
		alts = append(alts, cands[r.idx].ID)
	}
	return Decision{
		CandidateID:  cands[rows[0].idx].ID,
		Index:        rows[0].idx,
		Score:        rows[0].score,
		Feasible:     len(feasible),
		Excluded:     len(cands) - len(feasible),
		Alternatives: alts,
	}, nil
}

// #endregion selector

// #region matrix
func column(vals []qvalue.Valuation, rows []int, f func(qvalue.Valuation) float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = f(vals[r])
	}
	return out
}

// normalize rescales a column to [0,1] in place. A constant column maps to
// all ones so it neither helps nor hurts any row.
func normalize(col []float64) {
	min, max := col[0], col[0]
	for _, v := range col[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		for i := range col {
			col[i] = 1.0
		}
		return
	}
	for i := range col {
		col[i] = (col[i] - min) / (max - min)
	}
}

// #endregion matrix
