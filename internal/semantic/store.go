// Package semantic consolidates episodic states into prototype concepts.
// Each observed state either reinforces the nearest existing concept via an
// exponential moving average or founds a new one.
package semantic

import (
	"fmt"
	"math"
	"sort"
)

// #region store
// Store holds the concept prototypes. Not safe for concurrent use.
type Store struct {
	cfg      Config
	nextID   int64
	concepts map[int64]*Concept
	order    []int64
}

// New returns an empty store.
func New(cfg Config) *Store {
	return &Store{
		cfg:      cfg,
		nextID:   1,
		concepts: make(map[int64]*Concept),
	}
}

// Len reports the number of concepts.
func (s *Store) Len() int { return len(s.concepts) }

// Get returns the concept for a handle, or nil.
func (s *Store) Get(id int64) *Concept { return s.concepts[id] }

// IDs returns all handles in creation order.
func (s *Store) IDs() []int64 {
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// #endregion store

// #region consolidate
// Consolidate folds a state into the concept space. Above the match
// threshold the nearest prototype moves toward the state by the learning
// rate; otherwise a new concept is founded. Returns the affected handle and
// whether a concept was created.
func (s *Store) Consolidate(state []float64, tick uint64) (int64, bool, error) {
	if len(state) == 0 {
		return 0, false, fmt.Errorf("empty state")
	}
	best, sim := s.nearest(state)
	if best != nil && sim >= s.cfg.MatchThreshold {
		lr := s.cfg.LearningRate
		for i := range best.Prototype {
			best.Prototype[i] = (1.0-lr)*best.Prototype[i] + lr*state[i]
		}
		best.Support++
		best.Confidence = math.Min(1.0, best.Confidence+s.cfg.ConfidenceGain)
		best.LastTick = tick
		return best.ID, false, nil
	}
	if len(s.concepts) >= s.cfg.MaxConcepts {
		s.evictWeakest()
	}
	c := &Concept{
		ID:         s.nextID,
		Prototype:  append([]float64(nil), state...),
		Support:    1,
		Confidence: s.cfg.ConfidenceGain,
		FirstTick:  tick,
		LastTick:   tick,
	}
	s.nextID++
	s.concepts[c.ID] = c
	s.order = append(s.order, c.ID)
	return c.ID, true, nil
}

func (s *Store) nearest(state []float64) (*Concept, float64) {
	var best *Concept
	bestSim := -1.0
	for _, id := range s.order {
		c := s.concepts[id]
		if len(c.Prototype) != len(state) {
			continue
		}
		sim := cosine(state, c.Prototype)
		if sim > bestSim {
			best, bestSim = c, sim
		}
	}
	return best, bestSim
}

func (s *Store) evictWeakest() {
	var victim int64
	worst := math.Inf(1)
	for _, id := range s.order {
		c := s.concepts[id]
		score := c.Confidence * float64(c.Support)
		if score < worst {
			victim, worst = id, score
		}
	}
	s.Remove(victim)
}

// #endregion consolidate

// #region query
// Query returns the k concepts most similar to the state, best first,
// skipping any below the similarity floor. Ties break toward the lower
// handle.
func (s *Store) Query(state []float64, k int, minSimilarity float64) []Match {
	if k <= 0 {
		return nil
	}
	matches := make([]Match, 0, len(s.concepts))
	for _, id := range s.order {
		c := s.concepts[id]
		if len(c.Prototype) != len(state) {
			continue
		}
		sim := cosine(state, c.Prototype)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, Match{ID: id, Similarity: sim, Concept: c})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}

// Decay applies the per-tick confidence decay to all concepts.
func (s *Store) Decay() {
	for _, c := range s.concepts {
		c.Confidence = math.Max(0, c.Confidence-s.cfg.ConfidenceDecay)
	}
}

// #endregion query

// #region merge
// MergePass collapses concept pairs whose prototypes exceed the merge
// threshold. The survivor is the higher-support concept; its prototype
// becomes the support-weighted mean. Returns the number of merges.
func (s *Store) MergePass() int {
	merged := 0
	for {
		a, b := s.findMergePair()
		if a == nil {
			return merged
		}
		if b.Support > a.Support {
			a, b = b, a
		}
		total := float64(a.Support + b.Support)
		wa, wb := float64(a.Support)/total, float64(b.Support)/total
		for i := range a.Prototype {
			a.Prototype[i] = wa*a.Prototype[i] + wb*b.Prototype[i]
		}
		a.Support += b.Support
		a.Confidence = math.Min(1.0, math.Max(a.Confidence, b.Confidence))
		if b.LastTick > a.LastTick {
			a.LastTick = b.LastTick
		}
		if b.FirstTick < a.FirstTick {
			a.FirstTick = b.FirstTick
		}
		s.Remove(b.ID)
		merged++
	}
}

func (s *Store) findMergePair() (*Concept, *Concept) {
	for i := 0; i < len(s.order); i++ {
		for j := i + 1; j < len(s.order); j++ {
			a, b := s.concepts[s.order[i]], s.concepts[s.order[j]]
			if len(a.Prototype) != len(b.Prototype) {
				continue
			}
			if cosine(a.Prototype, b.Prototype) >= s.cfg.MergeThreshold {
				return a, b
			}
		}
	}
	return nil, nil
}

// Remove deletes a concept. Removing an absent handle is a no-op.
func (s *Store) Remove(id int64) {
	if _, ok := s.concepts[id]; !ok {
		return
	}
	delete(s.concepts, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// #endregion merge

// #region snapshot
// Snapshot is the serializable form of the store.
type Snapshot struct {
	NextID   int64      `json:"next_id"`
	Order    []int64    `json:"order"`
	Concepts []*Concept `json:"concepts"`
}

// Export captures all concepts.
func (s *Store) Export() Snapshot {
	snap := Snapshot{NextID: s.nextID, Order: append([]int64(nil), s.order...)}
	for _, id := range s.order {
		snap.Concepts = append(snap.Concepts, s.concepts[id])
	}
	return snap
}

// Import replaces the store contents with a snapshot.
func (s *Store) Import(snap Snapshot) error {
	if len(snap.Order) != len(snap.Concepts) {
		return fmt.Errorf("snapshot order %d entries, concepts %d", len(snap.Order), len(snap.Concepts))
	}
	s.concepts = make(map[int64]*Concept, len(snap.Concepts))
	for _, c := range snap.Concepts {
		s.concepts[c.ID] = c
	}
	s.order = append([]int64(nil), snap.Order...)
	s.nextID = snap.NextID
	return nil
}

// #endregion snapshot

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
