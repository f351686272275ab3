package sensor

import "math"

// #region filter
// Filter is a linear Kalman filter over noisy observation vectors.
//
// The transition and observation models are identity, and Q, R, and the
// initial covariance are diagonal, so the covariance stays diagonal for the
// life of the filter and the per-dimension scalar form below is exact.
type Filter struct {
	cfg         Config
	mean        []float64
	cov         []float64 // diagonal of the error covariance P
	q           float64   // current process noise (may drift when AdaptNoise is set)
	initialized bool
}

// New creates a filter with unit initial covariance.
func New(cfg Config) *Filter {
	cov := make([]float64, cfg.Dim)
	for i := range cov {
		cov[i] = 1.0
	}
	return &Filter{
		cfg:  cfg,
		mean: make([]float64, cfg.Dim),
		cov:  cov,
		q:    cfg.ProcessNoise,
	}
}

// #endregion filter

// #region filter-step
// Filter runs one predict/update cycle and returns the stabilized
// observation. The posterior covariance trace never exceeds the predicted
// trace, so uncertainty shrinks (or holds) on every valid observation.
func (f *Filter) Filter(obs []float64) (Result, error) {
	if len(obs) != f.cfg.Dim {
		return Result{}, &DimensionError{Want: f.cfg.Dim, Got: len(obs)}
	}

	// Predict: identity transition, covariance grows by Q.
	var predTrace float64
	for i := range f.cov {
		f.cov[i] += f.q
		predTrace += f.cov[i]
	}

	// First observation seeds the mean directly; the update step below then
	// runs with zero innovation, shrinking the covariance as usual.
	if !f.initialized {
		copy(f.mean, obs)
		f.initialized = true
	}

	// Update: per-dimension Kalman gain K = P / (P + R).
	r := f.cfg.MeasurementNoise
	var innovSq, postTrace float64
	stabilized := make([]float64, f.cfg.Dim)
	for i := range obs {
		innov := obs[i] - f.mean[i]
		innovSq += innov * innov

		k := f.cov[i] / (f.cov[i] + r)
		f.mean[i] += k * innov
		f.cov[i] *= 1.0 - k
		postTrace += f.cov[i]
		stabilized[i] = f.mean[i]
	}
	innovNorm := math.Sqrt(innovSq)

	if f.cfg.AdaptNoise {
		f.adaptNoise(innovNorm)
	}

	return Result{
		Stabilized:     stabilized,
		Uncertainty:    postTrace,
		PredictedTrace: predTrace,
		InnovationNorm: innovNorm,
	}, nil
}

// #endregion filter-step

// #region accessors
// Uncertainty returns the current covariance trace.
func (f *Filter) Uncertainty() float64 {
	var tr float64
	for _, p := range f.cov {
		tr += p
	}
	return tr
}

// Mean returns a copy of the current state estimate.
func (f *Filter) Mean() []float64 {
	out := make([]float64, len(f.mean))
	copy(out, f.mean)
	return out
}

// #endregion accessors

// #region adapt
// adaptNoise loosens Q when the innovation is large and tightens it when the
// filter is tracking well. Bounded so the filter cannot destabilize itself.
func (f *Filter) adaptNoise(innovNorm float64) {
	switch {
	case innovNorm > 2.0:
		f.q *= 1.1
	case innovNorm < 0.5:
		f.q *= 0.95
	}
	if f.q < 1e-4 {
		f.q = 1e-4
	}
	if f.q > 1.0 {
		f.q = 1.0
	}
}

// #endregion adapt

// #region snapshot
// Snapshot captures the filter state for export.
type Snapshot struct {
	Mean        []float64 `json:"mean"`
	Cov         []float64 `json:"cov"`
	Q           float64   `json:"q"`
	Initialized bool      `json:"initialized"`
}

// Export returns a copy of the internal state.
func (f *Filter) Export() Snapshot {
	mean := make([]float64, len(f.mean))
	cov := make([]float64, len(f.cov))
	copy(mean, f.mean)
	copy(cov, f.cov)
	return Snapshot{Mean: mean, Cov: cov, Q: f.q, Initialized: f.initialized}
}

// Import restores a previously exported state.
func (f *Filter) Import(s Snapshot) error {
	if len(s.Mean) != f.cfg.Dim || len(s.Cov) != f.cfg.Dim {
		return &DimensionError{Want: f.cfg.Dim, Got: len(s.Mean)}
	}
	copy(f.mean, s.Mean)
	copy(f.cov, s.Cov)
	f.q = s.Q
	f.initialized = s.Initialized
	return nil
}

// #endregion snapshot
