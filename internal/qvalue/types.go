package qvalue

// #region config
// Config shapes the value decomposition.
type Config struct {
	CostMagnitudeWeight  float64 `yaml:"cost_magnitude_weight"`
	CostComplexityWeight float64 `yaml:"cost_complexity_weight"`
	CostResourceWeight   float64 `yaml:"cost_resource_weight"`
	RiskMagnitudeWeight  float64 `yaml:"risk_magnitude_weight"`
	RiskStateWeight      float64 `yaml:"risk_state_weight"`
	RiskEnvWeight        float64 `yaml:"risk_env_weight"`
	SparseEpsilon        float64 `yaml:"sparse_epsilon"` // dims below this count as untouched
}

// DefaultConfig returns the standard decomposition weights.
func DefaultConfig() Config {
	return Config{
		CostMagnitudeWeight:  0.5,
		CostComplexityWeight: 0.3,
		CostResourceWeight:   0.2,
		RiskMagnitudeWeight:  0.4,
		RiskStateWeight:      0.4,
		RiskEnvWeight:        0.2,
		SparseEpsilon:        0.01,
	}
}

// #endregion config

// #region candidate
// Candidate is one action proposal under evaluation.
type Candidate struct {
	ID         string    `json:"id"`
	Action     []float64 `json:"action"`
	Complexity float64   `json:"complexity"` // [0,1], planner-supplied
	Resources  float64   `json:"resources"`  // [0,1], planner-supplied
	Tags       []string  `json:"tags,omitempty"`
}

// Inputs carries the evaluation context shared across a batch.
type Inputs struct {
	State        []float64 // current latent state
	Predicted    []float64 // predicted next state for a zero action, may be nil
	NormCeiling  float64   // latent norm bound
	EnvRisk      float64   // [0,1], external volatility estimate
	RiskAversion float64   // rho, from the homeostatic controller
}

// Metrics is the MIEM breakdown behind a valuation.
type Metrics struct {
	Magnitude  float64 `json:"magnitude"`
	Efficiency float64 `json:"efficiency"`
	Impact     float64 `json:"impact"`
	Modularity float64 `json:"modularity"`
	Risk       float64 `json:"risk"`
}

// Valuation is the scored outcome for one candidate.
type Valuation struct {
	CandidateID string  `json:"candidate_id"`
	Q           float64 `json:"q"`
	Reward      float64 `json:"reward"`
	Cost        float64 `json:"cost"`
	Risk        float64 `json:"risk"`
	Metrics     Metrics `json:"metrics"`
}

// #endregion candidate

// RewardModel estimates the expected reward of a candidate. The default
// model rewards impact discounted by risk; callers with domain knowledge
// supply their own.
type RewardModel func(c Candidate, in Inputs, m Metrics) float64

// DefaultReward values impactful, low-risk actions.
func DefaultReward(_ Candidate, _ Inputs, m Metrics) float64 {
	return m.Impact * (1.0 - m.Risk)
}
