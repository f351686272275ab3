package episodic

import "errors"

// #region config
// Config bounds the store and weights its retrieval scoring.
type Config struct {
	MaxEpisodes         int     `yaml:"max_episodes"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // cosine cutoff for similarity edges
	SimilarityWeight    float64 `yaml:"similarity_weight"`    // retrieval: cosine term
	RankWeight          float64 `yaml:"rank_weight"`          // retrieval: link-rank term
	RecencyWeight       float64 `yaml:"recency_weight"`       // retrieval: utility term
	RankDamping         float64 `yaml:"rank_damping"`
	RankMaxIter         int     `yaml:"rank_max_iter"`
	RankEpsilon         float64 `yaml:"rank_epsilon"`
	RankRefreshAdds     int     `yaml:"rank_refresh_adds"` // insertions before the rank cache is stale
	UtilityDecay        float64 `yaml:"utility_decay"`     // per-tick decay applied to episode utility
	RecallK             int     `yaml:"recall_k"`          // episodes offered to the working buffer per tick
}

// DefaultConfig returns a moderately connected store.
func DefaultConfig() Config {
	return Config{
		MaxEpisodes:         500,
		SimilarityThreshold: 0.7,
		SimilarityWeight:    0.5,
		RankWeight:          0.3,
		RecencyWeight:       0.2,
		RankDamping:         0.85,
		RankMaxIter:         50,
		RankEpsilon:         1e-6,
		RankRefreshAdds:     10,
		UtilityDecay:        0.01,
		RecallK:             3,
	}
}

// #endregion config

// #region edge
// EdgeKind labels why two episodes are linked.
type EdgeKind string

const (
	EdgeTemporal   EdgeKind = "temporal"   // consecutive ticks
	EdgeSimilarity EdgeKind = "similarity" // cosine above threshold
	EdgeCausal     EdgeKind = "causal"     // shared tag or context key
)

// Edge is an index-free link to another episode by stable handle.
type Edge struct {
	Target int64    `json:"target"`
	Kind   EdgeKind `json:"kind"`
	Weight float64  `json:"weight"`
}

// #endregion edge

// #region episode
// Episode is one consolidated past experience.
type Episode struct {
	ID          int64             `json:"id"`
	State       []float64         `json:"state"`
	Context     map[string]string `json:"context"`
	Tags        []string          `json:"tags"`
	CreatedTick uint64            `json:"created_tick"`
	Importance  float64           `json:"importance"`
	Utility     float64           `json:"utility"` // recency/usage score, bumped on retrieval
	AccessCount int               `json:"access_count"`
	Out         []Edge            `json:"out"`
}

// Scored pairs an episode with its retrieval score.
type Scored struct {
	ID      int64
	Score   float64
	Episode *Episode
}

// #endregion episode

// ErrStoreFull signals that an insert would exceed MaxEpisodes. Internal:
// the owning aggregate must run maintenance and retry, never surface it.
var ErrStoreFull = errors.New("episodic store full")
