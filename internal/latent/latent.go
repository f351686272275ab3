package latent

import (
	"fmt"
	"math"
	"math/rand"
)

const eps = 1e-9

// #region state
// State is the recurrent latent register. One Update per tick folds the
// attended observation into z; PredictNext decodes the expected next
// observation from z for the following tick's surprise computation.
type State struct {
	cfg  Config
	z    []float64
	tick uint64

	// Fixed recurrence weights, derived deterministically from the seed.
	wInput  [][]float64 // dimLatent x dimInput
	wRec    [][]float64 // dimLatent x dimLatent
	wMemory [][]float64 // dimLatent x dimMemory
}

// New creates a zeroed register with seed-derived recurrence weights.
func New(cfg Config) *State {
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &State{
		cfg:     cfg,
		z:       make([]float64, cfg.DimLatent),
		wInput:  xavier(rng, cfg.DimLatent, cfg.DimInput),
		wRec:    xavier(rng, cfg.DimLatent, cfg.DimLatent),
		wMemory: xavier(rng, cfg.DimLatent, cfg.DimMemory),
	}
}

// xavier draws a rows x cols matrix uniformly in the Glorot range.
func xavier(rng *rand.Rand, rows, cols int) [][]float64 {
	limit := math.Sqrt(6.0 / float64(rows+cols))
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = (rng.Float64()*2 - 1) * limit
		}
	}
	return m
}

// #endregion state

// #region update
// Update folds one attended observation into the register:
//
//	z' = (1-leak)*tanh(Wrec*z + Win*(alpha.*encode(obs)) + Wmem*w) + leak*z
//
// If the resulting norm exceeds the configured ceiling the vector is rescaled
// onto the ceiling instead of being allowed to diverge; Rescaled is set so
// the caller can surface a numeric-instability warning.
func (s *State) Update(stabilized, alpha, memory []float64) (UpdateMetrics, error) {
	if len(stabilized) != s.cfg.DimInput {
		return UpdateMetrics{}, fmt.Errorf("latent update: observation length %d, want %d", len(stabilized), s.cfg.DimInput)
	}
	if len(alpha) != s.cfg.DimInput {
		return UpdateMetrics{}, fmt.Errorf("latent update: attention length %d, want %d", len(alpha), s.cfg.DimInput)
	}

	// Encode: L2-normalize, then modulate by attention.
	enc := normalize(stabilized)
	for i := range enc {
		enc[i] *= alpha[i]
	}

	pre := matVec(s.wRec, s.z)
	addAssign(pre, matVec(s.wInput, enc))
	if len(memory) == s.cfg.DimMemory {
		addAssign(pre, matVec(s.wMemory, memory))
	}

	next := make([]float64, s.cfg.DimLatent)
	leak := s.cfg.LeakRate
	for i := range next {
		v := (1.0-leak)*math.Tanh(pre[i]) + leak*s.z[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		next[i] = v
	}

	rescaled := false
	norm := l2(next)
	if s.cfg.NormCeiling > 0 && norm > s.cfg.NormCeiling {
		scale := s.cfg.NormCeiling / norm
		for i := range next {
			next[i] *= scale
		}
		norm = s.cfg.NormCeiling
		rescaled = true
	}

	var changeSq float64
	var nearZero int
	for i := range next {
		d := next[i] - s.z[i]
		changeSq += d * d
		if math.Abs(next[i]) < 0.01 {
			nearZero++
		}
	}
	change := math.Sqrt(changeSq)

	s.z = next
	s.tick++

	return UpdateMetrics{
		Norm:      norm,
		Change:    change,
		Sparsity:  float64(nearZero) / float64(len(next)),
		Rescaled:  rescaled,
		Stability: 1.0 / (1.0 + change),
	}, nil
}

// #endregion update

// #region predict
// PredictNext decodes the observation the register expects on the next tick
// using the tied-weight decoder Win^T. A proposed action, when supplied,
// scales the prediction through a simple forward model.
func (s *State) PredictNext(action []float64) []float64 {
	pred := make([]float64, s.cfg.DimInput)
	for j := 0; j < s.cfg.DimInput; j++ {
		var v float64
		for i := 0; i < s.cfg.DimLatent; i++ {
			v += s.wInput[i][j] * s.z[i]
		}
		pred[j] = v
	}
	if len(action) > 0 {
		var mean float64
		for _, a := range action {
			mean += a
		}
		mean /= float64(len(action))
		scale := 1.0 + 0.1*mean
		for j := range pred {
			pred[j] *= scale
		}
	}
	return pred
}

// Surprise returns the prediction error delta = stabilized - predicted and
// its energy ||delta||^2.
func Surprise(stabilized, predicted []float64) ([]float64, float64) {
	n := len(stabilized)
	if len(predicted) < n {
		n = len(predicted)
	}
	delta := make([]float64, len(stabilized))
	var energy float64
	for i := 0; i < n; i++ {
		delta[i] = stabilized[i] - predicted[i]
		energy += delta[i] * delta[i]
	}
	return delta, energy
}

// #endregion predict

// #region accessors
// Vector returns a copy of z.
func (s *State) Vector() []float64 {
	out := make([]float64, len(s.z))
	copy(out, s.z)
	return out
}

// Tick returns the number of updates applied.
func (s *State) Tick() uint64 {
	return s.tick
}

// Reset zeroes the register. Only used on explicit restart.
func (s *State) Reset() {
	s.z = make([]float64, s.cfg.DimLatent)
	s.tick = 0
}

// #endregion accessors

// #region snapshot
// Export captures the dynamic state.
func (s *State) Export() Snapshot {
	z := make([]float64, len(s.z))
	copy(z, s.z)
	return Snapshot{Z: z, Tick: s.tick}
}

// Import restores a previously exported state.
func (s *State) Import(snap Snapshot) error {
	if len(snap.Z) != s.cfg.DimLatent {
		return fmt.Errorf("latent import: vector length %d, want %d", len(snap.Z), s.cfg.DimLatent)
	}
	copy(s.z, snap.Z)
	s.tick = snap.Tick
	return nil
}

// #endregion snapshot

// #region helpers
func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		var sum float64
		for j, w := range row {
			sum += w * v[j]
		}
		out[i] = sum
	}
	return out
}

func addAssign(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	n := l2(v)
	if n < eps {
		return out
	}
	for i := range v {
		out[i] = v[i] / n
	}
	return out
}

func l2(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// #endregion helpers
