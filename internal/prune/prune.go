// Package prune runs periodic maintenance over the memory stores. Episodes
// are scored on recency, usage, and impact; an episode is evicted only when
// every signal agrees it is stale, so a single weak signal never loses a
// memory that matters on another axis.
package prune

import (
	"sort"

	"github.com/danielpatrickdp/cognitive-core/internal/episodic"
	"github.com/danielpatrickdp/cognitive-core/internal/semantic"
)

// #region config
// Config sets the scoring weights and eviction thresholds.
type Config struct {
	Interval        int     `yaml:"interval"`     // ticks between maintenance passes
	SoftBound       int     `yaml:"soft_bound"`   // episode count that triggers eager eviction
	RecencyWeight   float64 `yaml:"recency_weight"`
	FrequencyWeight float64 `yaml:"frequency_weight"`
	ImpactWeight    float64 `yaml:"impact_weight"`
	UtilityFloor    float64 `yaml:"utility_floor"`    // conjunction: utility below this
	ImportanceFloor float64 `yaml:"importance_floor"` // conjunction: importance below this
	AccessFloor     int     `yaml:"access_floor"`     // conjunction: accesses at or below this
	MinAgeTicks     uint64  `yaml:"min_age_ticks"`    // grace period for fresh episodes
}

// DefaultConfig returns the standard maintenance cadence.
func DefaultConfig() Config {
	return Config{
		Interval:        25,
		SoftBound:       400,
		RecencyWeight:   0.4,
		FrequencyWeight: 0.3,
		ImpactWeight:    0.3,
		UtilityFloor:    0.2,
		ImportanceFloor: 0.3,
		AccessFloor:     1,
		MinAgeTicks:     10,
	}
}

// #endregion config

// #region report
// Report summarizes one maintenance pass.
type Report struct {
	Tick            uint64  `json:"tick"`
	EpisodesScored  int     `json:"episodes_scored"`
	EpisodesEvicted int     `json:"episodes_evicted"`
	ConceptsMerged  int     `json:"concepts_merged"`
	LowestScore     float64 `json:"lowest_score"`
}

// #endregion report

// #region maintainer
// Maintainer prunes an episodic store and compacts a semantic one.
type Maintainer struct {
	cfg     Config
	lastRun uint64
	hasRun  bool
}

// New returns a maintainer.
func New(cfg Config) *Maintainer {
	return &Maintainer{cfg: cfg}
}

// Due reports whether a pass should run at the given tick.
func (m *Maintainer) Due(tick uint64) bool {
	if m.cfg.Interval <= 0 {
		return false
	}
	if !m.hasRun {
		return tick >= uint64(m.cfg.Interval)
	}
	return tick-m.lastRun >= uint64(m.cfg.Interval)
}

// Run executes one maintenance pass: decay, conjunction eviction, eager
// eviction down to the soft bound, then a concept merge pass.
func (m *Maintainer) Run(eps *episodic.Store, sem *semantic.Store, tick uint64) Report {
	m.lastRun = tick
	m.hasRun = true

	eps.Decay()
	sem.Decay()

	rep := Report{Tick: tick, EpisodesScored: eps.Len(), LowestScore: 1.0}
	type scored struct {
		id    int64
		score float64
		ep    *episodic.Episode
	}
	var all []scored
	for _, id := range eps.IDs() {
		ep := eps.Get(id)
		s := m.Score(ep, tick)
		if s < rep.LowestScore {
			rep.LowestScore = s
		}
		all = append(all, scored{id: id, score: s, ep: ep})
	}

	// Conjunction rule: every staleness signal must fire.
	for _, sc := range all {
		ep := sc.ep
		if tick-ep.CreatedTick < m.cfg.MinAgeTicks {
			continue
		}
		if ep.Utility < m.cfg.UtilityFloor &&
			ep.Importance < m.cfg.ImportanceFloor &&
			ep.AccessCount <= m.cfg.AccessFloor {
			eps.Remove(sc.id)
			rep.EpisodesEvicted++
		}
	}

	// Still over the soft bound: evict lowest composite score regardless.
	if eps.Len() > m.cfg.SoftBound {
		sort.Slice(all, func(i, j int) bool {
			if all[i].score != all[j].score {
				return all[i].score < all[j].score
			}
			return all[i].id < all[j].id
		})
		for _, sc := range all {
			if eps.Len() <= m.cfg.SoftBound {
				break
			}
			if eps.Get(sc.id) == nil {
				continue
			}
			if tick-sc.ep.CreatedTick < m.cfg.MinAgeTicks {
				continue
			}
			eps.Remove(sc.id)
			rep.EpisodesEvicted++
		}
	}

	rep.ConceptsMerged = sem.MergePass()
	return rep
}

// ForceEvict removes the n lowest-scoring episodes, ignoring the staleness
// floors and the fresh-episode grace period. Returns the number evicted.
// Used when an insertion must succeed on a store that a regular pass could
// not shrink.
func (m *Maintainer) ForceEvict(eps *episodic.Store, tick uint64, n int) int {
	type scored struct {
		id    int64
		score float64
	}
	var all []scored
	for _, id := range eps.IDs() {
		all = append(all, scored{id: id, score: m.Score(eps.Get(id), tick)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score < all[j].score
		}
		return all[i].id < all[j].id
	})
	evicted := 0
	for _, sc := range all {
		if evicted >= n {
			break
		}
		eps.Remove(sc.id)
		evicted++
	}
	return evicted
}

// Snapshot is the serializable cadence state.
type Snapshot struct {
	LastRun uint64 `json:"last_run"`
	HasRun  bool   `json:"has_run"`
}

// Export captures the cadence state.
func (m *Maintainer) Export() Snapshot {
	return Snapshot{LastRun: m.lastRun, HasRun: m.hasRun}
}

// Import restores the cadence state.
func (m *Maintainer) Import(snap Snapshot) {
	m.lastRun = snap.LastRun
	m.hasRun = snap.HasRun
}

// Score computes the composite retention score for an episode in [0,1].
// Recency falls off with age, frequency saturates with access count, and
// impact is the stored importance.
func (m *Maintainer) Score(ep *episodic.Episode, tick uint64) float64 {
	age := float64(tick - ep.CreatedTick)
	recency := 1.0 / (1.0 + age/100.0)
	frequency := float64(ep.AccessCount) / (float64(ep.AccessCount) + 5.0)
	return m.cfg.RecencyWeight*recency +
		m.cfg.FrequencyWeight*frequency +
		m.cfg.ImpactWeight*ep.Importance
}

// #endregion maintainer
