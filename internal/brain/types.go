package brain

import (
	"github.com/danielpatrickdp/cognitive-core/internal/audit"
	"github.com/danielpatrickdp/cognitive-core/internal/control"
	"github.com/danielpatrickdp/cognitive-core/internal/decide"
	"github.com/danielpatrickdp/cognitive-core/internal/latent"
	"github.com/danielpatrickdp/cognitive-core/internal/qvalue"
)

// #region io
// TickInput is one step of the perceive-decide-act loop.
type TickInput struct {
	Observation []float64          `json:"observation"`
	Candidates  []qvalue.Candidate `json:"candidates,omitempty"`
	Context     map[string]string  `json:"context,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	EnvRisk     float64            `json:"env_risk"`
}

// TickOutput is what one step produced.
type TickOutput struct {
	Tick       uint64           `json:"tick"`
	Action     []float64        `json:"action,omitempty"`
	Verdict    audit.Verdict    `json:"verdict,omitempty"`
	Confidence float64          `json:"confidence"`
	Decision   *decide.Decision `json:"decision,omitempty"`
	EpisodeID  int64            `json:"episode_id"`
	Telemetry  Telemetry        `json:"telemetry"`
}

// #endregion io

// #region telemetry
// Telemetry is the per-tick health readout.
type Telemetry struct {
	Tick           uint64               `json:"tick"`
	Surprise       float64              `json:"surprise"`
	Uncertainty    float64              `json:"uncertainty"`
	FocusIndex     float64              `json:"focus_index"`
	AttentionPeak  int                  `json:"attention_peak"`
	Latent         latent.UpdateMetrics `json:"latent"`
	Params         control.Params       `json:"params"`
	Regime         control.Context      `json:"regime"`
	Episodes       int                  `json:"episodes"`
	Concepts       int                  `json:"concepts"`
	BufferItems    int                  `json:"buffer_items"`
	Recalled       int                  `json:"recalled"`
	MemoryPressure float64              `json:"memory_pressure"`
	Maintenance    bool                 `json:"maintenance"`
	Warnings       []string             `json:"warnings,omitempty"`
}

// #endregion telemetry
