package attention

// #region config
// Config holds attention temperature parameters.
type Config struct {
	Dim     int     `yaml:"dim"`      // delta vector length
	Gain    float64 `yaml:"gain"`     // initial softmax temperature
	MinGain float64 `yaml:"min_gain"` // lower clamp for the controlled gain
	MaxGain float64 `yaml:"max_gain"` // upper clamp for the controlled gain
}

// DefaultConfig returns moderate-focus defaults.
func DefaultConfig() Config {
	return Config{
		Dim:     128,
		Gain:    1.0,
		MinGain: 0.1,
		MaxGain: 5.0,
	}
}

// #endregion config

// #region weights
// Weights is one normalized attention distribution plus focus metrics.
type Weights struct {
	Alpha      []float64 // sums to 1, elementwise in [0,1]
	Entropy    float64   // -sum(alpha*log(alpha))
	FocusIndex float64   // 1 - entropy/log(n); 0 = diffuse, 1 = concentrated
	PeakIndex  int       // dimension holding the largest weight
}

// #endregion weights
