// Package brain wires the subsystems into one perceive-decide-act loop.
// Each Tick stabilizes the observation, folds it into the latent register,
// updates the memory stores, values and selects an action, audits it, and
// lets the homeostatic controller retune the meta-parameters. A single
// mutex serializes ticks; the subsystems themselves stay lock-free.
package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/cognitive-core/internal/attention"
	"github.com/danielpatrickdp/cognitive-core/internal/audit"
	"github.com/danielpatrickdp/cognitive-core/internal/config"
	"github.com/danielpatrickdp/cognitive-core/internal/control"
	"github.com/danielpatrickdp/cognitive-core/internal/decide"
	"github.com/danielpatrickdp/cognitive-core/internal/episodic"
	"github.com/danielpatrickdp/cognitive-core/internal/latent"
	"github.com/danielpatrickdp/cognitive-core/internal/prune"
	"github.com/danielpatrickdp/cognitive-core/internal/qvalue"
	"github.com/danielpatrickdp/cognitive-core/internal/semantic"
	"github.com/danielpatrickdp/cognitive-core/internal/sensor"
	"github.com/danielpatrickdp/cognitive-core/internal/workmem"
)

// #region brain
// Brain is the assembled core.
type Brain struct {
	mu  sync.Mutex
	cfg config.Config
	log *zap.Logger

	filter   *sensor.Filter
	attn     *attention.Unit
	state    *latent.State
	eps      *episodic.Store
	sem      *semantic.Store
	buf      *workmem.Buffer
	maint    *prune.Maintainer
	valuator *qvalue.Valuator
	selector *decide.Selector
	auditor  *audit.Auditor
	ctrl     *control.Controller

	prevAction []float64
	predicted  []float64 // next-observation prediction from last tick
	lastRisk   float64
	lastTel    Telemetry
}

// New assembles a brain from the configuration. A nil logger is replaced
// with a no-op one; a nil reward model falls back to the default.
func New(cfg config.Config, logger *zap.Logger, reward qvalue.RewardModel) (*Brain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Brain{
		cfg:      cfg,
		log:      logger,
		filter:   sensor.New(cfg.Sensor),
		attn:     attention.New(cfg.Attention),
		state:    latent.New(cfg.Latent),
		eps:      episodic.New(cfg.Episodic),
		sem:      semantic.New(cfg.Semantic),
		buf:      workmem.New(cfg.Workmem),
		maint:    prune.New(cfg.Prune),
		valuator: qvalue.New(cfg.Qvalue, reward),
		selector: decide.New(cfg.Decide),
		auditor:  audit.New(cfg.Audit),
		ctrl:     control.New(cfg.Control),
	}, nil
}

// #endregion brain

// #region tick
// Tick runs one full loop iteration.
func (b *Brain) Tick(ctx context.Context, in TickInput) (TickOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return TickOutput{}, err
	}

	// Perceive.
	sensed, err := b.filter.Filter(in.Observation)
	if err != nil {
		return TickOutput{}, fmt.Errorf("sense: %w", err)
	}

	// Surprise against last tick's prediction.
	var delta []float64
	surprise := 0.0
	if b.predicted != nil {
		var energy float64
		delta, energy = latent.Surprise(sensed.Stabilized, b.predicted)
		surprise = energy / (1.0 + energy)
	} else {
		delta = sensed.Stabilized
	}

	// Homeostasis first, so attention and valuation see fresh parameters.
	uncertainty := sensed.Uncertainty / (1.0 + sensed.Uncertainty)
	params := b.ctrl.Step(control.Signals{
		Surprise:       surprise,
		Uncertainty:    uncertainty,
		MemoryPressure: float64(b.eps.Len()) / float64(b.cfg.Episodic.MaxEpisodes),
		Risk:           b.lastRisk,
	})
	b.attn.SetGain(params.AttentionGain)
	b.buf.SetInputBias(params.GateThreshold)

	// Recall long-term content into the working buffer before the readout,
	// so retrieved experience reaches the fold and the decision.
	recalled, err := b.eps.Retrieve(sensed.Stabilized, b.cfg.Episodic.RecallK, true)
	if err != nil {
		return TickOutput{}, fmt.Errorf("recall: %w", err)
	}
	b.refreshBuffer(recalled, b.state.Tick()+1)

	// Attend and fold.
	weights, err := b.attn.Compute(delta, nil)
	if err != nil {
		return TickOutput{}, fmt.Errorf("attend: %w", err)
	}
	memory := b.buf.Readout(b.cfg.Latent.DimMemory)
	metrics, err := b.state.Update(sensed.Stabilized, weights.Alpha, memory)
	if err != nil {
		return TickOutput{}, fmt.Errorf("fold: %w", err)
	}
	tick := b.state.Tick()

	// Decide, audit.
	out := TickOutput{Tick: tick}
	if len(in.Candidates) > 0 {
		d, derr := b.decideAndAudit(ctx, in, sensed.Stabilized, surprise, uncertainty, recalled, params)
		if derr != nil {
			return TickOutput{}, derr
		}
		out.Action = d.Action
		out.Verdict = d.Verdict
		out.Confidence = d.Confidence
		out.Decision = d.Decision
		b.lastRisk = d.risk
		b.prevAction = d.Action
	}

	// Remember.
	importance := out.Confidence
	if importance == 0 {
		importance = surprise
	}
	var warnings []string
	if metrics.Rescaled {
		warnings = append(warnings, "latent state rescaled to norm ceiling")
	}
	epID, forced, err := b.remember(sensed.Stabilized, in, tick, importance)
	if err != nil {
		return TickOutput{}, err
	}
	if forced {
		warnings = append(warnings, "episode stored after forced eviction")
	}
	out.EpisodeID = epID
	if _, _, err := b.sem.Consolidate(b.state.Vector(), tick); err != nil {
		return TickOutput{}, fmt.Errorf("consolidate: %w", err)
	}
	salience := math.Max(surprise, weights.FocusIndex)
	if id, ok := b.buf.Match(sensed.Stabilized); ok {
		b.buf.Rehearse(id)
	} else if _, _, err := b.buf.Admit(sensed.Stabilized, salience, tick); err != nil {
		return TickOutput{}, fmt.Errorf("admit: %w", err)
	}
	b.buf.Tick()

	// Predict for the next tick.
	b.predicted = b.state.PredictNext(out.Action)

	// Maintain.
	maintained := false
	if b.maint.Due(tick) {
		rep := b.maint.Run(b.eps, b.sem, tick)
		maintained = true
		b.log.Debug("maintenance pass",
			zap.Uint64("tick", tick),
			zap.Int("evicted", rep.EpisodesEvicted),
			zap.Int("merged", rep.ConceptsMerged))
	}

	out.Telemetry = Telemetry{
		Tick:           tick,
		Surprise:       surprise,
		Uncertainty:    sensed.Uncertainty,
		FocusIndex:     weights.FocusIndex,
		AttentionPeak:  weights.PeakIndex,
		Latent:         metrics,
		Params:         params,
		Regime:         b.ctrl.Context(),
		Episodes:       b.eps.Len(),
		Concepts:       b.sem.Len(),
		BufferItems:    b.buf.Len(),
		Recalled:       len(recalled),
		MemoryPressure: float64(b.eps.Len()) / float64(b.cfg.Episodic.MaxEpisodes),
		Maintenance:    maintained,
		Warnings:       warnings,
	}
	b.lastTel = out.Telemetry

	b.log.Debug("tick",
		zap.Uint64("tick", tick),
		zap.Float64("surprise", surprise),
		zap.Float64("norm", metrics.Norm),
		zap.String("verdict", string(out.Verdict)))
	return out, nil
}

// refreshBuffer offers recalled long-term content to the working buffer.
// States already represented are rehearsed as sustained relevance; beyond
// that, only the highest-relevance unrepresented episode competes for a
// slot. The best-matching concept prototype takes the same path.
func (b *Brain) refreshBuffer(recalled []episodic.Scored, tick uint64) {
	admitted := false
	for _, sc := range recalled {
		if id, ok := b.buf.Match(sc.Episode.State); ok {
			b.buf.Rehearse(id)
			continue
		}
		if admitted {
			continue
		}
		if _, ok, _ := b.buf.Admit(sc.Episode.State, clamp01(sc.Score), tick); ok {
			admitted = true
		}
	}
	for _, m := range b.sem.Query(b.state.Vector(), 1, b.cfg.Semantic.MatchThreshold) {
		if id, ok := b.buf.Match(m.Concept.Prototype); ok {
			b.buf.Rehearse(id)
			continue
		}
		_, _, _ = b.buf.Admit(m.Concept.Prototype, m.Similarity, tick)
	}
}

type decided struct {
	Action     []float64
	Verdict    audit.Verdict
	Confidence float64
	Decision   *decide.Decision
	risk       float64
}

func (b *Brain) decideAndAudit(ctx context.Context, in TickInput, stabilized []float64, surprise, uncertainty float64, recalled []episodic.Scored, params control.Params) (decided, error) {
	vals, err := b.valuator.EvaluateBatch(ctx, in.Candidates, qvalue.Inputs{
		State:        stabilized,
		Predicted:    b.predicted,
		NormCeiling:  b.cfg.Latent.NormCeiling,
		EnvRisk:      in.EnvRisk,
		RiskAversion: params.RiskAversion,
	})
	if err != nil {
		return decided{}, fmt.Errorf("value: %w", err)
	}
	dec, err := b.selector.Select(in.Candidates, vals)
	if errors.Is(err, decide.ErrNoFeasibleCandidate) {
		predicted := b.state.PredictNext(nil)
		b.log.Warn("no feasible candidate, emitting fallback",
			zap.Int("candidates", len(in.Candidates)))
		return decided{
			Action:  b.auditor.Fallback(predicted, len(stabilized)),
			Verdict: audit.VerdictBlocked,
			risk:    maxRisk(vals),
		}, nil
	}
	if err != nil {
		return decided{}, fmt.Errorf("select: %w", err)
	}

	chosen := in.Candidates[dec.Index]
	evidence := make([][]float64, 0, len(recalled))
	for _, sc := range recalled {
		evidence = append(evidence, sc.Episode.State)
	}
	res, err := b.auditor.Audit(audit.Request{
		Action:      chosen.Action,
		PrevAction:  b.prevAction,
		Predicted:   b.state.PredictNext(chosen.Action),
		Evidence:    evidence,
		Surprise:    surprise,
		Uncertainty: uncertainty,
		Risk:        vals[dec.Index].Risk,
	})
	if err != nil {
		return decided{}, fmt.Errorf("audit: %w", err)
	}
	return decided{
		Action:     res.Action,
		Verdict:    res.Verdict,
		Confidence: res.Confidence,
		Decision:   &dec,
		risk:       vals[dec.Index].Risk,
	}, nil
}

// remember stores an episode, running an early maintenance pass when the
// store is full and forcing an eviction when even that frees nothing, so
// every tick leaves a trace.
func (b *Brain) remember(state []float64, in TickInput, tick uint64, importance float64) (int64, bool, error) {
	id, err := b.eps.Add(state, in.Context, in.Tags, tick, importance)
	if errors.Is(err, episodic.ErrStoreFull) {
		b.maint.Run(b.eps, b.sem, tick)
		id, err = b.eps.Add(state, in.Context, in.Tags, tick, importance)
	}
	forced := false
	if errors.Is(err, episodic.ErrStoreFull) {
		// Grace periods can hold a full store right after a restore.
		b.maint.ForceEvict(b.eps, tick, 1)
		forced = true
		b.log.Warn("forcing eviction, store full after maintenance",
			zap.Uint64("tick", tick))
		id, err = b.eps.Add(state, in.Context, in.Tags, tick, importance)
	}
	if err != nil {
		return 0, forced, fmt.Errorf("remember: %w", err)
	}
	return id, forced, nil
}

// #endregion tick

// #region accessors
// Telemetry returns the last tick's readout.
func (b *Brain) Telemetry() Telemetry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastTel
}

// Params returns the live meta-parameters.
func (b *Brain) Params() control.Params {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl.Params()
}

// AdaptToContext switches the homeostatic regime.
func (b *Brain) AdaptToContext(ctx control.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ctrl.AdaptToContext(ctx); err != nil {
		return err
	}
	b.log.Info("regime change", zap.String("context", string(ctx)))
	return nil
}

// Retrieve queries episodic memory with the current latent projection.
func (b *Brain) Retrieve(query []float64, k int) ([]episodic.Scored, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eps.Retrieve(query, k, true)
}

// Concepts queries semantic memory.
func (b *Brain) Concepts(query []float64, k int) []semantic.Match {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sem.Query(query, k, 0)
}

// #endregion accessors

// #region snapshot
// snapshot is the serialized dynamic state. Fixed weights are re-derived
// from the config seed, so only the moving parts travel.
type snapshot struct {
	ConfigSum  uint32            `json:"config_sum"`
	Sensor     sensor.Snapshot   `json:"sensor"`
	Latent     latent.Snapshot   `json:"latent"`
	Episodic   episodic.Snapshot `json:"episodic"`
	Semantic   semantic.Snapshot `json:"semantic"`
	Workmem    workmem.Snapshot  `json:"workmem"`
	Control    control.Snapshot  `json:"control"`
	Prune      prune.Snapshot    `json:"prune"`
	PrevAction []float64         `json:"prev_action,omitempty"`
	Predicted  []float64         `json:"predicted,omitempty"`
	LastRisk   float64           `json:"last_risk"`
}

// Export serializes the dynamic state as JSON, stamped with a checksum of
// the configuration it was built under.
func (b *Brain) Export() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sum, err := configSum(b.cfg)
	if err != nil {
		return nil, err
	}
	snap := snapshot{
		ConfigSum:  sum,
		Sensor:     b.filter.Export(),
		Latent:     b.state.Export(),
		Episodic:   b.eps.Export(),
		Semantic:   b.sem.Export(),
		Workmem:    b.buf.Export(),
		Control:    b.ctrl.Export(),
		Prune:      b.maint.Export(),
		PrevAction: b.prevAction,
		Predicted:  b.predicted,
		LastRisk:   b.lastRisk,
	}
	return json.Marshal(snap)
}

// Import restores dynamic state from an Export payload. The configuration
// checksum must match the live configuration.
func (b *Brain) Import(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	sum, err := configSum(b.cfg)
	if err != nil {
		return err
	}
	if snap.ConfigSum != sum {
		return fmt.Errorf("snapshot config checksum %08x does not match live config %08x", snap.ConfigSum, sum)
	}
	if err := b.filter.Import(snap.Sensor); err != nil {
		return fmt.Errorf("restore sensor: %w", err)
	}
	if err := b.state.Import(snap.Latent); err != nil {
		return fmt.Errorf("restore latent: %w", err)
	}
	if err := b.eps.Import(snap.Episodic); err != nil {
		return fmt.Errorf("restore episodic: %w", err)
	}
	if err := b.sem.Import(snap.Semantic); err != nil {
		return fmt.Errorf("restore semantic: %w", err)
	}
	b.buf.Import(snap.Workmem)
	if err := b.ctrl.Import(snap.Control); err != nil {
		return fmt.Errorf("restore control: %w", err)
	}
	b.maint.Import(snap.Prune)
	b.attn.SetGain(b.ctrl.Params().AttentionGain)
	b.buf.SetInputBias(b.ctrl.Params().GateThreshold)
	b.prevAction = snap.PrevAction
	b.predicted = snap.Predicted
	b.lastRisk = snap.LastRisk
	return nil
}

func configSum(cfg config.Config) (uint32, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("checksum config: %w", err)
	}
	return crc32.ChecksumIEEE(raw), nil
}

// #endregion snapshot

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func maxRisk(vals []qvalue.Valuation) float64 {
	max := 0.0
	for _, v := range vals {
		if v.Risk > max {
			max = v.Risk
		}
	}
	return max
}
