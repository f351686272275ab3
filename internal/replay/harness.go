// Package replay runs recorded tick sequences through a fresh brain and
// checks the outcomes against pinned expectations. Because every stage of
// the core is deterministic for a given seed, a fixture that passed once
// keeps passing until behavior actually changes.
package replay

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/cognitive-core/internal/brain"
	"github.com/danielpatrickdp/cognitive-core/internal/config"
)

// #region types

// StepResult is the outcome of replaying one step.
type StepResult struct {
	Tick        uint64  `json:"tick"`
	CandidateID string  `json:"candidate_id,omitempty"`
	Verdict     string  `json:"verdict,omitempty"`
	Surprise    float64 `json:"surprise"`
	Mismatch    string  `json:"mismatch,omitempty"`
}

// Summary aggregates one replay run.
type Summary struct {
	Description string       `json:"description"`
	Steps       []StepResult `json:"steps"`
	Checked     int          `json:"checked"`
	Mismatches  int          `json:"mismatches"`
	FinalTick   uint64       `json:"final_tick"`
}

// #endregion types

// #region run

// Run replays a fixture against a brain built from cfg with the fixture's
// dim and seed applied. Expectation mismatches are collected, not fatal;
// pipeline errors abort the run.
func Run(ctx context.Context, cfg config.Config, f Fixture) (Summary, error) {
	if err := f.Validate(); err != nil {
		return Summary{}, err
	}
	cfg.Dim = f.Dim
	cfg.Sensor.Dim = f.Dim
	cfg.Attention.Dim = f.Dim
	cfg.Latent.DimInput = f.Dim
	if f.Seed != 0 {
		cfg.Seed = f.Seed
		cfg.Latent.Seed = f.Seed
	}
	b, err := brain.New(cfg, nil, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("build brain: %w", err)
	}

	expected := make(map[uint64][]Expectation)
	for _, e := range f.Expected {
		expected[e.Tick] = append(expected[e.Tick], e)
	}

	sum := Summary{Description: f.Description}
	for i, step := range f.Steps {
		out, err := b.Tick(ctx, brain.TickInput{
			Observation: step.Observation,
			Candidates:  step.Candidates,
			Context:     step.Context,
			Tags:        step.Tags,
			EnvRisk:     step.EnvRisk,
		})
		if err != nil {
			return Summary{}, fmt.Errorf("step %d: %w", i, err)
		}
		res := StepResult{
			Tick:     out.Tick,
			Verdict:  string(out.Verdict),
			Surprise: out.Telemetry.Surprise,
		}
		if out.Decision != nil {
			res.CandidateID = out.Decision.CandidateID
		}
		for _, e := range expected[out.Tick] {
			sum.Checked++
			if msg := check(e, res); msg != "" {
				res.Mismatch = msg
				sum.Mismatches++
			}
		}
		sum.Steps = append(sum.Steps, res)
		sum.FinalTick = out.Tick
	}
	return sum, nil
}

func check(e Expectation, r StepResult) string {
	if e.CandidateID != "" && e.CandidateID != r.CandidateID {
		return fmt.Sprintf("candidate %q, want %q", r.CandidateID, e.CandidateID)
	}
	if e.Verdict != "" && e.Verdict != r.Verdict {
		return fmt.Sprintf("verdict %q, want %q", r.Verdict, e.Verdict)
	}
	if e.MaxSurprise > 0 && r.Surprise > e.MaxSurprise {
		return fmt.Sprintf("surprise %.4f exceeds %.4f", r.Surprise, e.MaxSurprise)
	}
	return ""
}

// #endregion run
