package sensor

import "fmt"

// #region config
// Config holds the noise model for the observation filter.
type Config struct {
	Dim              int     `yaml:"dim"`               // observation vector length
	ProcessNoise     float64 `yaml:"process_noise"`     // Q, per-dimension transition noise
	MeasurementNoise float64 `yaml:"measurement_noise"` // R, per-dimension observation noise
	AdaptNoise       bool    `yaml:"adapt_noise"`       // scale Q from innovation magnitude
}

// DefaultConfig returns filter defaults for embedding-sized observations.
func DefaultConfig() Config {
	return Config{
		Dim:              128,
		ProcessNoise:     0.01,
		MeasurementNoise: 0.1,
		AdaptNoise:       false,
	}
}

// #endregion config

// #region result
// Result bundles one filtered observation with its uncertainty estimate.
type Result struct {
	Stabilized     []float64
	Uncertainty    float64 // trace of the posterior covariance
	PredictedTrace float64 // trace of the covariance before the update step
	InnovationNorm float64 // L2 norm of observation minus predicted mean
}

// #endregion result

// #region dimension-error
// DimensionError reports an observation whose length does not match the
// configured dimension. The filter never truncates or pads.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("observation dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// #endregion dimension-error
