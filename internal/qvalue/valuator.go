// Package qvalue scores action candidates with a reward/cost/risk
// decomposition: Q = reward - cost - rho*risk, where rho is the live risk
// aversion. The cost and risk terms are fixed-weight blends of action
// magnitude, planner estimates, and state proximity to the norm ceiling.
package qvalue

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// #region valuator
// Valuator evaluates candidates. Safe for concurrent use: evaluation is
// pure over its inputs.
type Valuator struct {
	cfg    Config
	reward RewardModel
}

// New returns a valuator using the given reward model, or DefaultReward
// when nil.
func New(cfg Config, reward RewardModel) *Valuator {
	if reward == nil {
		reward = DefaultReward
	}
	return &Valuator{cfg: cfg, reward: reward}
}

// Evaluate scores one candidate.
func (v *Valuator) Evaluate(c Candidate, in Inputs) (Valuation, error) {
	if len(c.Action) == 0 {
		return Valuation{}, fmt.Errorf("candidate %q: empty action", c.ID)
	}
	if len(in.State) != 0 && len(c.Action) != len(in.State) {
		return Valuation{}, fmt.Errorf("candidate %q: action dim %d, state dim %d", c.ID, len(c.Action), len(in.State))
	}
	m := v.metrics(c, in)
	cost := v.cfg.CostMagnitudeWeight*m.Magnitude +
		v.cfg.CostComplexityWeight*clamp01(c.Complexity) +
		v.cfg.CostResourceWeight*clamp01(c.Resources)
	reward := v.reward(c, in, m)
	q := reward - cost - in.RiskAversion*m.Risk
	return Valuation{
		CandidateID: c.ID,
		Q:           q,
		Reward:      reward,
		Cost:        cost,
		Risk:        m.Risk,
		Metrics:     m,
	}, nil
}

// EvaluateBatch scores all candidates concurrently. Results keep the input
// order; any single failure fails the batch.
func (v *Valuator) EvaluateBatch(ctx context.Context, cands []Candidate, in Inputs) ([]Valuation, error) {
	out := make([]Valuation, len(cands))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, c := range cands {
		i, c := i, c
		g.Go(func() error {
			val, err := v.Evaluate(c, in)
			if err != nil {
				return err
			}
			out[i] = val
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion valuator

// #region metrics
func (v *Valuator) metrics(c Candidate, in Inputs) Metrics {
	n := len(c.Action)
	mag := math.Min(1.0, l2(c.Action)/math.Sqrt(float64(n)))

	// Impact: how far the action would push the state, relative to the
	// remaining headroom under the norm ceiling.
	impact := mag
	if len(in.State) == n && in.NormCeiling > 0 {
		moved := make([]float64, n)
		for i := range moved {
			moved[i] = in.State[i] + c.Action[i]
		}
		impact = math.Min(1.0, math.Abs(l2(moved)-l2(in.State))/in.NormCeiling)
	}

	// Modularity: the fraction of dimensions an action leaves untouched.
	// Sparse actions touch fewer subsystems.
	untouched := 0
	for _, a := range c.Action {
		if math.Abs(a) < v.cfg.SparseEpsilon {
			untouched++
		}
	}
	modularity := float64(untouched) / float64(n)

	stateRisk := 0.0
	if in.NormCeiling > 0 && len(in.State) > 0 {
		stateRisk = clamp01(l2(in.State) / in.NormCeiling)
	}
	risk := v.cfg.RiskMagnitudeWeight*mag +
		v.cfg.RiskStateWeight*stateRisk +
		v.cfg.RiskEnvWeight*clamp01(in.EnvRisk)

	cost := v.cfg.CostMagnitudeWeight*mag +
		v.cfg.CostComplexityWeight*clamp01(c.Complexity) +
		v.cfg.CostResourceWeight*clamp01(c.Resources)
	efficiency := impact / (cost + 1e-9)

	return Metrics{
		Magnitude:  mag,
		Efficiency: math.Min(10.0, efficiency),
		Impact:     impact,
		Modularity: modularity,
		Risk:       clamp01(risk),
	}
}

// #endregion metrics

func l2(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
