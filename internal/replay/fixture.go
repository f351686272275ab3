package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/cognitive-core/internal/qvalue"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a recorded run.
type Fixture struct {
	Description string        `json:"description"`
	Dim         int           `json:"dim"`
	Seed        int64         `json:"seed"`
	Steps       []FixtureStep `json:"steps"`
	Expected    []Expectation `json:"expected,omitempty"`
}

// FixtureStep is one recorded tick input.
type FixtureStep struct {
	Observation []float64          `json:"observation"`
	Candidates  []qvalue.Candidate `json:"candidates,omitempty"`
	Context     map[string]string  `json:"context,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	EnvRisk     float64            `json:"env_risk"`
}

// Expectation pins the outcome of one tick. Zero-valued fields are not
// checked.
type Expectation struct {
	Tick        uint64  `json:"tick"`
	CandidateID string  `json:"candidate_id,omitempty"`
	Verdict     string  `json:"verdict,omitempty"`
	MaxSurprise float64 `json:"max_surprise,omitempty"`
}

// #endregion fixture-types

// #region load-save

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// Validate checks internal consistency.
func (f Fixture) Validate() error {
	if f.Dim <= 0 {
		return fmt.Errorf("fixture dim must be positive, got %d", f.Dim)
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("fixture has no steps")
	}
	for i, s := range f.Steps {
		if len(s.Observation) != f.Dim {
			return fmt.Errorf("step %d: observation length %d, want %d", i, len(s.Observation), f.Dim)
		}
		for j, c := range s.Candidates {
			if len(c.Action) != f.Dim {
				return fmt.Errorf("step %d candidate %d: action length %d, want %d", i, j, len(c.Action), f.Dim)
			}
		}
	}
	for i, e := range f.Expected {
		if e.Tick == 0 || e.Tick > uint64(len(f.Steps)) {
			return fmt.Errorf("expectation %d: tick %d out of range", i, e.Tick)
		}
	}
	return nil
}

// #endregion load-save
