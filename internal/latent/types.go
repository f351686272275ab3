package latent

// #region config
// Config holds the latent register dimensions and recurrence parameters.
type Config struct {
	DimLatent   int     `yaml:"dim_latent"`   // latent vector z length
	DimInput    int     `yaml:"dim_input"`    // stabilized observation length
	DimMemory   int     `yaml:"dim_memory"`   // working-buffer summary length
	LeakRate    float64 `yaml:"leak_rate"`    // 0 = full overwrite, 1 = frozen state
	NormCeiling float64 `yaml:"norm_ceiling"` // rescale threshold for the updated z
	Seed        int64   `yaml:"seed"`         // recurrence weight derivation seed
}

// DefaultConfig returns the standard compressed-latent layout.
func DefaultConfig() Config {
	return Config{
		DimLatent:   64,
		DimInput:    128,
		DimMemory:   64,
		LeakRate:    0.05,
		NormCeiling: 50.0,
		Seed:        1,
	}
}

// #endregion config

// #region metrics
// UpdateMetrics captures telemetry from one state fold.
type UpdateMetrics struct {
	Norm      float64 // L2 norm of the new state
	Change    float64 // L2 norm of new minus previous state
	Sparsity  float64 // fraction of near-zero components
	Rescaled  bool    // the norm ceiling fired this tick
	Stability float64 // 1/(1+Change); 1 = settled, ->0 = churning
}

// #endregion metrics

// #region snapshot
// Snapshot is the serializable portion of the register. Recurrence weights
// are re-derived from the config seed on restore, so only the dynamic state
// travels.
type Snapshot struct {
	Z    []float64 `json:"z"`
	Tick uint64    `json:"tick"`
}

// #endregion snapshot
