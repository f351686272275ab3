package attention

import (
	"fmt"
	"math"
)

const eps = 1e-9

// #region unit
// Unit converts a prediction-error vector into a normalized attention
// weighting. Larger per-dimension error draws proportionally more weight,
// sharpened or flattened by the gain parameter.
type Unit struct {
	cfg  Config
	gain float64
}

// New creates an attention unit with the configured initial gain.
func New(cfg Config) *Unit {
	return &Unit{cfg: cfg, gain: cfg.Gain}
}

// #endregion unit

// #region compute
// Compute returns softmax(gain * sensitivity(delta) * modulation).
// modulation may be nil. An all-zero delta yields uniform weights.
func (u *Unit) Compute(delta, modulation []float64) (Weights, error) {
	if len(delta) != u.cfg.Dim {
		return Weights{}, fmt.Errorf("attention: delta length %d, want %d", len(delta), u.cfg.Dim)
	}
	if modulation != nil && len(modulation) != u.cfg.Dim {
		return Weights{}, fmt.Errorf("attention: modulation length %d, want %d", len(modulation), u.cfg.Dim)
	}

	sens := sensitivity(delta)
	if modulation != nil {
		for i := range sens {
			sens[i] *= modulation[i]
		}
	}

	// Softmax with max-subtraction for numeric stability.
	logits := make([]float64, len(sens))
	maxLogit := math.Inf(-1)
	for i, s := range sens {
		logits[i] = u.gain * s
		if logits[i] > maxLogit {
			maxLogit = logits[i]
		}
	}
	var sum float64
	alpha := make([]float64, len(logits))
	for i, l := range logits {
		alpha[i] = math.Exp(l - maxLogit)
		sum += alpha[i]
	}
	peak := 0
	for i := range alpha {
		alpha[i] /= sum
		if alpha[i] > alpha[peak] {
			peak = i
		}
	}

	entropy := 0.0
	for _, a := range alpha {
		entropy -= a * math.Log(a+eps)
	}
	focus := 0.0
	if n := float64(len(alpha)); n > 1 {
		focus = 1.0 - entropy/math.Log(n)
		if focus < 0 {
			focus = 0
		}
		if focus > 1 {
			focus = 1
		}
	}

	return Weights{Alpha: alpha, Entropy: entropy, FocusIndex: focus, PeakIndex: peak}, nil
}

// #endregion compute

// #region sensitivity
// sensitivity maps a delta to per-dimension scores in [0,1] that sum to 1.
// Each magnitude is normalized by the maximum, smoothed across neighboring
// dimensions, then renormalized. A vanishing delta yields a uniform score.
func sensitivity(delta []float64) []float64 {
	n := len(delta)
	out := make([]float64, n)

	maxAbs := 0.0
	for i, d := range delta {
		out[i] = math.Abs(d)
		if out[i] > maxAbs {
			maxAbs = out[i]
		}
	}
	if maxAbs < eps {
		for i := range out {
			out[i] = 1.0 / float64(n)
		}
		return out
	}
	for i := range out {
		out[i] /= maxAbs + eps
	}

	// Light spatial smoothing: adjacent dimensions of an embedding tend to
	// carry correlated error.
	if n > 3 {
		smoothed := make([]float64, n)
		copy(smoothed, out)
		for i := 1; i < n-1; i++ {
			smoothed[i] = 0.25*out[i-1] + 0.5*out[i] + 0.25*out[i+1]
		}
		out = smoothed
	}

	var sum float64
	for _, v := range out {
		sum += v
	}
	for i := range out {
		out[i] /= sum + eps
	}
	return out
}

// #endregion sensitivity

// #region gain
// SetGain updates the softmax temperature, clamped to the configured range.
// Driven each tick by the homeostatic controller.
func (u *Unit) SetGain(g float64) {
	if g < u.cfg.MinGain {
		g = u.cfg.MinGain
	}
	if g > u.cfg.MaxGain {
		g = u.cfg.MaxGain
	}
	u.gain = g
}

// Gain returns the active softmax temperature.
func (u *Unit) Gain() float64 {
	return u.gain
}

// #endregion gain
