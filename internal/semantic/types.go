package semantic

// #region config
// Config controls prototype formation and matching.
type Config struct {
	MaxConcepts     int     `yaml:"max_concepts"`
	MatchThreshold  float64 `yaml:"match_threshold"`  // cosine above which an episode folds into a concept
	MergeThreshold  float64 `yaml:"merge_threshold"`  // cosine above which two concepts collapse
	LearningRate    float64 `yaml:"learning_rate"`    // EMA step toward new evidence
	ConfidenceGain  float64 `yaml:"confidence_gain"`  // confidence bump per supporting episode
	ConfidenceDecay float64 `yaml:"confidence_decay"` // per-tick confidence decay
}

// DefaultConfig returns conservative consolidation settings.
func DefaultConfig() Config {
	return Config{
		MaxConcepts:     100,
		MatchThreshold:  0.8,
		MergeThreshold:  0.92,
		LearningRate:    0.1,
		ConfidenceGain:  0.05,
		ConfidenceDecay: 0.002,
	}
}

// #endregion config

// #region concept
// Concept is a prototype vector distilled from repeated episodes.
type Concept struct {
	ID         int64     `json:"id"`
	Prototype  []float64 `json:"prototype"`
	Support    int       `json:"support"`    // episodes folded in
	Confidence float64   `json:"confidence"` // in [0,1]
	FirstTick  uint64    `json:"first_tick"`
	LastTick   uint64    `json:"last_tick"`
}

// Match pairs a concept with its similarity to a query.
type Match struct {
	ID         int64
	Similarity float64
	Concept    *Concept
}

// #endregion concept
