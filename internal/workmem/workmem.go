// Package workmem holds a small gated buffer of recent states. Admission,
// retention, and readout each pass through a sigmoid gate so the buffer
// favors salient content without hard cutoffs.
package workmem

import (
	"fmt"
	"math"
	"sort"
)

// #region config
// Config sizes the buffer and shapes its gates.
type Config struct {
	Capacity       int     `yaml:"capacity"`
	InputGateBias  float64 `yaml:"input_gate_bias"`  // salience offset for admission
	ForgetGateBias float64 `yaml:"forget_gate_bias"` // activation offset for retention
	GateSteepness  float64 `yaml:"gate_steepness"`
	ActivationBump float64 `yaml:"activation_bump"` // on rehearse
	ActivationLeak float64 `yaml:"activation_leak"` // per-tick decay
	MatchThreshold float64 `yaml:"match_threshold"` // cosine above which a state counts as held
}

// DefaultConfig returns a seven-slot buffer.
func DefaultConfig() Config {
	return Config{
		Capacity:       7,
		InputGateBias:  0.3,
		ForgetGateBias: 0.2,
		GateSteepness:  6.0,
		ActivationBump: 0.3,
		ActivationLeak: 0.05,
		MatchThreshold: 0.95,
	}
}

// #endregion config

// #region item
// Item is a buffered state with its live activation level.
type Item struct {
	ID         int64     `json:"id"`
	State      []float64 `json:"state"`
	Salience   float64   `json:"salience"`
	Activation float64   `json:"activation"`
	AddedTick  uint64    `json:"added_tick"`
}

// #endregion item

// #region buffer
// Buffer is the gated working set. Not safe for concurrent use.
type Buffer struct {
	cfg    Config
	nextID int64
	items  []*Item
}

// New returns an empty buffer.
func New(cfg Config) *Buffer {
	return &Buffer{cfg: cfg, nextID: 1}
}

// Len reports the number of buffered items.
func (b *Buffer) Len() int { return len(b.items) }

// Admit offers a state to the buffer. The input gate converts salience to an
// admission probability threshold; below 0.5 the state is rejected. At
// capacity the lowest-activation item is displaced first. Returns the item
// handle and whether the state was admitted.
func (b *Buffer) Admit(state []float64, salience float64, tick uint64) (int64, bool, error) {
	if len(state) == 0 {
		return 0, false, fmt.Errorf("empty state")
	}
	gate := sigmoid(b.cfg.GateSteepness * (salience - b.cfg.InputGateBias))
	if gate < 0.5 {
		return 0, false, nil
	}
	if len(b.items) >= b.cfg.Capacity {
		b.displaceWeakest()
	}
	it := &Item{
		ID:         b.nextID,
		State:      append([]float64(nil), state...),
		Salience:   salience,
		Activation: gate,
		AddedTick:  tick,
	}
	b.nextID++
	b.items = append(b.items, it)
	return it.ID, true, nil
}

func (b *Buffer) displaceWeakest() {
	if len(b.items) == 0 {
		return
	}
	weakest := 0
	for i, it := range b.items {
		if it.Activation < b.items[weakest].Activation {
			weakest = i
		}
	}
	b.items = append(b.items[:weakest], b.items[weakest+1:]...)
}

// SetInputBias retunes the admission gate. Higher bias admits less.
func (b *Buffer) SetInputBias(bias float64) {
	b.cfg.InputGateBias = bias
}

// Match returns the handle of the first buffered item already representing
// the given state, by cosine against the match threshold. Insertion order
// keeps the result deterministic.
func (b *Buffer) Match(state []float64) (int64, bool) {
	for _, it := range b.items {
		if len(it.State) != len(state) {
			continue
		}
		if cosine(it.State, state) >= b.cfg.MatchThreshold {
			return it.ID, true
		}
	}
	return 0, false
}

// Rehearse bumps an item's activation, protecting it from forgetting.
// Returns false for an unknown handle.
func (b *Buffer) Rehearse(id int64) bool {
	for _, it := range b.items {
		if it.ID == id {
			it.Activation = math.Min(1.0, it.Activation+b.cfg.ActivationBump)
			return true
		}
	}
	return false
}

// Tick leaks activation and drops items whose forget gate closes.
func (b *Buffer) Tick() {
	kept := b.items[:0]
	for _, it := range b.items {
		it.Activation -= b.cfg.ActivationLeak
		gate := sigmoid(b.cfg.GateSteepness * (it.Activation - b.cfg.ForgetGateBias))
		if gate >= 0.5 {
			kept = append(kept, it)
		}
	}
	b.items = kept
}

// Readout returns the activation-weighted mean of the buffered states
// projected to the requested dimension. An empty buffer yields zeros.
func (b *Buffer) Readout(dim int) []float64 {
	out := make([]float64, dim)
	total := 0.0
	for _, it := range b.items {
		gate := sigmoid(b.cfg.GateSteepness * (it.Activation - b.cfg.ForgetGateBias))
		for i := 0; i < dim && i < len(it.State); i++ {
			out[i] += gate * it.Activation * it.State[i]
		}
		total += gate * it.Activation
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}

// Items returns the buffer contents ordered by descending activation, ties
// toward the lower handle.
func (b *Buffer) Items() []*Item {
	out := append([]*Item(nil), b.items...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Activation != out[j].Activation {
			return out[i].Activation > out[j].Activation
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// #endregion buffer

// #region snapshot
// Snapshot is the serializable form of the buffer.
type Snapshot struct {
	NextID int64   `json:"next_id"`
	Items  []*Item `json:"items"`
}

// Export captures the buffer contents.
func (b *Buffer) Export() Snapshot {
	return Snapshot{NextID: b.nextID, Items: append([]*Item(nil), b.items...)}
}

// Import replaces the buffer contents with a snapshot.
func (b *Buffer) Import(snap Snapshot) {
	b.items = append([]*Item(nil), snap.Items...)
	b.nextID = snap.NextID
}

// #endregion snapshot

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

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
