// Package episodic keeps an in-memory graph of past experiences. Episodes
// are addressed by stable int64 handles so eviction never invalidates a
// reference held elsewhere, and links between them carry a kind and weight
// so retrieval can blend similarity with structural importance.
package episodic

import (
	"fmt"
	"math"
	"sort"
)

// #region store
// Store is the episodic memory graph. Not safe for concurrent use; the
// owning aggregate serializes access.
type Store struct {
	cfg      Config
	nextID   int64
	episodes map[int64]*Episode
	order    []int64 // insertion order, ascending handles
	lastID   int64   // most recently added, 0 when empty

	rank      map[int64]float64
	rankDirty bool
	addsSince int
}

// New returns an empty store.
func New(cfg Config) *Store {
	return &Store{
		cfg:       cfg,
		nextID:    1,
		episodes:  make(map[int64]*Episode),
		rank:      make(map[int64]float64),
		rankDirty: true,
	}
}

// Len reports the number of stored episodes.
func (s *Store) Len() int { return len(s.episodes) }

// Get returns the episode for a handle, or nil.
func (s *Store) Get(id int64) *Episode { return s.episodes[id] }

// IDs returns all handles in insertion order.
func (s *Store) IDs() []int64 {
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// #endregion store

// #region add
// Add stores a new episode and wires its edges. The state slice is copied.
// Returns ErrStoreFull when the store is at capacity.
func (s *Store) Add(state []float64, ctx map[string]string, tags []string, tick uint64, importance float64) (int64, error) {
	if len(s.episodes) >= s.cfg.MaxEpisodes {
		return 0, ErrStoreFull
	}
	ep := &Episode{
		ID:          s.nextID,
		State:       append([]float64(nil), state...),
		Context:     copyContext(ctx),
		Tags:        append([]string(nil), tags...),
		CreatedTick: tick,
		Importance:  importance,
		Utility:     1.0,
	}
	s.nextID++

	s.linkTemporal(ep)
	s.linkSimilarity(ep)
	s.linkCausal(ep)

	s.episodes[ep.ID] = ep
	s.order = append(s.order, ep.ID)
	s.lastID = ep.ID
	s.addsSince++
	if s.addsSince >= s.cfg.RankRefreshAdds {
		s.rankDirty = true
	}
	return ep.ID, nil
}

func (s *Store) linkTemporal(ep *Episode) {
	prev, ok := s.episodes[s.lastID]
	if !ok {
		return
	}
	ep.Out = append(ep.Out, Edge{Target: prev.ID, Kind: EdgeTemporal, Weight: 1.0})
	prev.Out = append(prev.Out, Edge{Target: ep.ID, Kind: EdgeTemporal, Weight: 1.0})
}

func (s *Store) linkSimilarity(ep *Episode) {
	for _, id := range s.order {
		other := s.episodes[id]
		sim := cosine(ep.State, other.State)
		if sim < s.cfg.SimilarityThreshold {
			continue
		}
		ep.Out = append(ep.Out, Edge{Target: other.ID, Kind: EdgeSimilarity, Weight: sim})
		other.Out = append(other.Out, Edge{Target: ep.ID, Kind: EdgeSimilarity, Weight: sim})
	}
}

func (s *Store) linkCausal(ep *Episode) {
	for _, id := range s.order {
		other := s.episodes[id]
		if !sharesTag(ep.Tags, other.Tags) && !sharesContextKey(ep.Context, other.Context) {
			continue
		}
		// Directed: the earlier episode points at the later one.
		other.Out = append(other.Out, Edge{Target: ep.ID, Kind: EdgeCausal, Weight: 0.8})
	}
}

// #endregion add

// #region retrieve
// Retrieve scores every episode against the query and returns the top k.
// Score blends cosine similarity, cached link rank, and utility; useRank
// false skips the rank term and its graph-wide recomputation. Ties break
// toward the lower handle so results are deterministic.
func (s *Store) Retrieve(query []float64, k int, useRank bool) ([]Scored, error) {
	if k <= 0 || len(s.episodes) == 0 {
		return nil, nil
	}
	for _, id := range s.order {
		if got := len(s.episodes[id].State); got != len(query) {
			return nil, fmt.Errorf("query dim %d, stored dim %d", len(query), got)
		}
		break
	}
	if useRank {
		s.refreshRank()
	}

	scored := make([]Scored, 0, len(s.episodes))
	for _, id := range s.order {
		ep := s.episodes[id]
		score := s.cfg.SimilarityWeight*cosine(query, ep.State) +
			s.cfg.RecencyWeight*ep.Utility
		if useRank {
			score += s.cfg.RankWeight * s.rank[id]
		}
		scored = append(scored, Scored{ID: id, Score: score, Episode: ep})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if k > len(scored) {
		k = len(scored)
	}
	top := scored[:k]
	for _, sc := range top {
		sc.Episode.AccessCount++
		sc.Episode.Utility = math.Min(1.0, sc.Episode.Utility+0.1)
	}
	return top, nil
}

// Decay applies the configured per-tick utility decay to all episodes.
func (s *Store) Decay() {
	for _, ep := range s.episodes {
		ep.Utility *= 1.0 - s.cfg.UtilityDecay
	}
}

// #endregion retrieve

// #region rank
// refreshRank recomputes the damped link-rank over the graph when stale.
// Edge weights distribute each node's rank across its out-links.
func (s *Store) refreshRank() {
	if !s.rankDirty {
		return
	}
	n := len(s.episodes)
	s.rank = make(map[int64]float64, n)
	if n == 0 {
		s.rankDirty = false
		s.addsSince = 0
		return
	}
	d := s.cfg.RankDamping
	base := (1.0 - d) / float64(n)
	for _, id := range s.order {
		s.rank[id] = 1.0 / float64(n)
	}
	for iter := 0; iter < s.cfg.RankMaxIter; iter++ {
		next := make(map[int64]float64, n)
		for _, id := range s.order {
			next[id] = base
		}
		for _, id := range s.order {
			ep := s.episodes[id]
			total := 0.0
			for _, e := range ep.Out {
				total += e.Weight
			}
			if total == 0 {
				// Dangling node: spread its rank evenly.
				share := d * s.rank[id] / float64(n)
				for _, tid := range s.order {
					next[tid] += share
				}
				continue
			}
			for _, e := range ep.Out {
				next[e.Target] += d * s.rank[id] * (e.Weight / total)
			}
		}
		delta := 0.0
		for _, id := range s.order {
			delta += math.Abs(next[id] - s.rank[id])
		}
		s.rank = next
		if delta < s.cfg.RankEpsilon {
			break
		}
	}
	// Normalize to [0,1] so the retrieval blend stays comparable across sizes.
	max := 0.0
	for _, r := range s.rank {
		if r > max {
			max = r
		}
	}
	if max > 0 {
		for id := range s.rank {
			s.rank[id] /= max
		}
	}
	s.rankDirty = false
	s.addsSince = 0
}

// Rank returns the cached normalized link rank for a handle, refreshing if
// stale.
func (s *Store) Rank(id int64) float64 {
	s.refreshRank()
	return s.rank[id]
}

// #endregion rank

// #region remove
// Remove deletes an episode and every edge pointing at it. Used by
// maintenance; removing an absent handle is a no-op.
func (s *Store) Remove(id int64) {
	if _, ok := s.episodes[id]; !ok {
		return
	}
	delete(s.episodes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for _, ep := range s.episodes {
		kept := ep.Out[:0]
		for _, e := range ep.Out {
			if e.Target != id {
				kept = append(kept, e)
			}
		}
		ep.Out = kept
	}
	if s.lastID == id {
		s.lastID = 0
		if len(s.order) > 0 {
			s.lastID = s.order[len(s.order)-1]
		}
	}
	s.rankDirty = true
}

// #endregion remove

// #region snapshot
// Snapshot is the serializable form of the store. The rank cache is
// recomputed on restore rather than persisted.
type Snapshot struct {
	NextID   int64      `json:"next_id"`
	LastID   int64      `json:"last_id"`
	Order    []int64    `json:"order"`
	Episodes []*Episode `json:"episodes"`
}

// Export captures the full graph.
func (s *Store) Export() Snapshot {
	snap := Snapshot{
		NextID: s.nextID,
		LastID: s.lastID,
		Order:  append([]int64(nil), s.order...),
	}
	for _, id := range s.order {
		snap.Episodes = append(snap.Episodes, s.episodes[id])
	}
	return snap
}

// Import replaces the store contents with a snapshot.
func (s *Store) Import(snap Snapshot) error {
	if len(snap.Order) != len(snap.Episodes) {
		return fmt.Errorf("snapshot order %d entries, episodes %d", len(snap.Order), len(snap.Episodes))
	}
	s.episodes = make(map[int64]*Episode, len(snap.Episodes))
	for _, ep := range snap.Episodes {
		s.episodes[ep.ID] = ep
	}
	s.order = append([]int64(nil), snap.Order...)
	s.nextID = snap.NextID
	s.lastID = snap.LastID
	s.rankDirty = true
	s.addsSince = 0
	return nil
}

// #endregion snapshot

// #region helpers
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
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

func sharesTag(a, b []string) bool {
	for _, t := range a {
		for _, u := range b {
			if t == u {
				return true
			}
		}
	}
	return false
}

func sharesContextKey(a, b map[string]string) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func copyContext(ctx map[string]string) map[string]string {
	if ctx == nil {
		return nil
	}
	out := make(map[string]string, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

// #endregion helpers
