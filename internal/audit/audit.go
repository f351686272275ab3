// Package audit is the last gate before an action leaves the core. It is
// pure: the verdict is a function of the request alone, so the same request
// always audits the same way.
package audit

import (
	"fmt"
	"math"
	"strings"
)

// #region types
// Verdict is the audit outcome.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictRevised Verdict = "revised"
	VerdictBlocked Verdict = "blocked"
)

// Config sets the confidence thresholds, hard limits, and action bounds.
// The hard limits are checked independently of the confidence blend: a
// breach blocks no matter how confident the rest of the request looks.
type Config struct {
	PassThreshold  float64 `yaml:"pass_threshold"`  // confidence at or above passes
	BlockThreshold float64 `yaml:"block_threshold"` // confidence below blocks
	MaxSurprise    float64 `yaml:"max_surprise"`    // hard limit on normalized surprise
	MaxUncertainty float64 `yaml:"max_uncertainty"` // hard limit on normalized uncertainty
	MaxRisk        float64 `yaml:"max_risk"`        // hard limit on valuation risk
	MaxMagnitude   float64 `yaml:"max_magnitude"`   // per-action L2 bound
	EvidenceFloor  float64 `yaml:"evidence_floor"`  // consistency floor against recent episodes
	FallbackScale  float64 `yaml:"fallback_scale"`  // damping pull toward the origin
	FallbackClip   float64 `yaml:"fallback_clip"`   // per-dim clip on the fallback
}

// DefaultConfig returns the standard audit thresholds.
func DefaultConfig() Config {
	return Config{
		PassThreshold:  0.6,
		BlockThreshold: 0.35,
		MaxSurprise:    0.95,
		MaxUncertainty: 0.95,
		MaxRisk:        0.8,
		MaxMagnitude:   1.0,
		EvidenceFloor:  0.3,
		FallbackScale:  0.1,
		FallbackClip:   0.5,
	}
}

// Request carries everything the auditor considers.
type Request struct {
	Action      []float64   // chosen action
	PrevAction  []float64   // previous tick's action, may be nil
	Predicted   []float64   // predicted next latent state
	Evidence    [][]float64 // recent retrieved episode states, may be empty
	Surprise    float64     // normalized surprise in [0,1]
	Uncertainty float64     // normalized uncertainty in [0,1]
	Risk        float64     // valuation risk in [0,1]
}

// Result is the audit verdict with the action to actually emit.
type Result struct {
	Verdict    Verdict   `json:"verdict"`
	Confidence float64   `json:"confidence"`
	Action     []float64 `json:"action"`
	Reason     string    `json:"reason,omitempty"`
}

// componentClip bounds every emitted action component after revision.
const componentClip = 3.0

// #endregion types

// #region auditor
// Auditor evaluates audit requests. Stateless.
type Auditor struct {
	cfg Config
}

// New returns an auditor.
func New(cfg Config) *Auditor {
	return &Auditor{cfg: cfg}
}

// Audit runs the hard-limit checks and scores the request, returning the
// action to emit. Surprise, uncertainty, and risk are each checked against
// their own limit; any breach blocks outright. The remaining requests are
// scored by a confidence blend of predictability, safety, consistency with
// the previous action, and magnitude headroom. High confidence passes the
// action through, middling confidence rescales it to the magnitude bound,
// low confidence replaces it with a damping fallback toward the origin. An
// action whose predicted effect contradicts the supplied episodic evidence
// is never passed unrevised.
func (a *Auditor) Audit(req Request) (Result, error) {
	if len(req.Action) == 0 {
		return Result{}, fmt.Errorf("empty action")
	}

	surprise := clamp01(req.Surprise)
	uncertainty := clamp01(req.Uncertainty)
	risk := clamp01(req.Risk)

	var breaches []string
	if surprise > a.cfg.MaxSurprise {
		breaches = append(breaches, "surprise over hard limit")
	}
	if uncertainty > a.cfg.MaxUncertainty {
		breaches = append(breaches, "uncertainty over hard limit")
	}
	if risk > a.cfg.MaxRisk {
		breaches = append(breaches, "risk over hard limit")
	}

	safety := 1.0 - risk
	consistency := 1.0
	if len(req.PrevAction) == len(req.Action) && l2(req.PrevAction) > 0 {
		// Map cosine from [-1,1] to [0,1].
		consistency = (cosine(req.Action, req.PrevAction) + 1.0) / 2.0
	}
	mag := l2(req.Action)
	magOK := 1.0
	if mag > a.cfg.MaxMagnitude {
		magOK = a.cfg.MaxMagnitude / mag
	}

	confidence := 0.3*(1.0-surprise) + 0.3*safety + 0.3*consistency + 0.1*magOK

	if len(breaches) > 0 {
		return Result{
			Verdict:    VerdictBlocked,
			Confidence: confidence,
			Action:     a.Fallback(req.Predicted, len(req.Action)),
			Reason:     strings.Join(breaches, "; "),
		}, nil
	}

	evidenceOK := true
	if len(req.Evidence) > 0 && len(req.Predicted) > 0 {
		evidenceOK = evidenceConsistency(req.Predicted, req.Evidence) >= a.cfg.EvidenceFloor
	}

	switch {
	case confidence >= a.cfg.PassThreshold && magOK == 1.0 && evidenceOK:
		return Result{
			Verdict:    VerdictPass,
			Confidence: confidence,
			Action:     append([]float64(nil), req.Action...),
		}, nil
	case confidence >= a.cfg.BlockThreshold:
		action := append([]float64(nil), req.Action...)
		reason := "confidence below pass threshold"
		if mag > a.cfg.MaxMagnitude {
			scale := a.cfg.MaxMagnitude / mag
			for i := range action {
				action[i] *= scale
			}
			reason = "action rescaled to magnitude bound"
		}
		if surprise > 0.7 {
			// Under heavy prediction error, act at half strength.
			for i := range action {
				action[i] *= 0.5
			}
			reason = "action damped under high surprise"
		}
		if !evidenceOK {
			for i := range action {
				action[i] *= 0.5
			}
			reason = "action damped, contradicts recent episodes"
		}
		for i := range action {
			if action[i] > componentClip {
				action[i] = componentClip
			}
			if action[i] < -componentClip {
				action[i] = -componentClip
			}
		}
		return Result{
			Verdict:    VerdictRevised,
			Confidence: confidence,
			Action:     action,
			Reason:     reason,
		}, nil
	default:
		return Result{
			Verdict:    VerdictBlocked,
			Confidence: confidence,
			Action:     a.Fallback(req.Predicted, len(req.Action)),
			Reason:     "confidence below block threshold",
		}, nil
	}
}

// Fallback pulls gently toward the origin from the predicted state. It is
// also the action of last resort when no candidate survives selection.
func (a *Auditor) Fallback(predicted []float64, dim int) []float64 {
	out := make([]float64, dim)
	for i := 0; i < dim && i < len(predicted); i++ {
		v := -a.cfg.FallbackScale * predicted[i]
		if v > a.cfg.FallbackClip {
			v = a.cfg.FallbackClip
		}
		if v < -a.cfg.FallbackClip {
			v = -a.cfg.FallbackClip
		}
		out[i] = v
	}
	return out
}

// #endregion auditor

// evidenceConsistency is the mean cosine agreement between the predicted
// effect and the recalled episode states, mapped to [0,1].
func evidenceConsistency(predicted []float64, evidence [][]float64) float64 {
	total := 0.0
	n := 0
	for _, ev := range evidence {
		if len(ev) != len(predicted) {
			continue
		}
		total += (cosine(predicted, ev) + 1.0) / 2.0
		n++
	}
	if n == 0 {
		return 1.0
	}
	return total / float64(n)
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

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
