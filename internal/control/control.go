// Package control keeps the core's meta-parameters inside healthy ranges.
// Five PID loops each watch one internal signal and steer one parameter:
// surprise drives exploration and learning rate, uncertainty drives
// attention gain, memory pressure drives the admission threshold, and
// observed risk drives risk aversion. Context presets rebias the loops
// without discarding their accumulated state.
package control

import "fmt"

// #region types
// Signals are the per-tick measurements fed to the loops, each in [0,1].
type Signals struct {
	Surprise       float64 `json:"surprise"`
	Uncertainty    float64 `json:"uncertainty"`
	MemoryPressure float64 `json:"memory_pressure"`
	Risk           float64 `json:"risk"`
}

// Params are the live meta-parameters the rest of the core reads.
type Params struct {
	Exploration   float64 `json:"exploration"`    // [0.1, 2.0]
	LearningRate  float64 `json:"learning_rate"`  // [0.001, 0.1]
	AttentionGain float64 `json:"attention_gain"` // [0.1, 5.0]
	GateThreshold float64 `json:"gate_threshold"` // [0.2, 0.9]
	RiskAversion  float64 `json:"risk_aversion"`  // [0.0, 1.0]
}

// Context is a named operating regime.
type Context string

const (
	ContextLearning     Context = "learning"
	ContextExploitation Context = "exploitation"
	ContextExploration  Context = "exploration"
	ContextEmergency    Context = "emergency"
)

// #endregion types

// #region config
// LoopConfig sets one loop's gains, target, and output range.
type LoopConfig struct {
	Kp       float64 `yaml:"kp"`
	Ki       float64 `yaml:"ki"`
	Kd       float64 `yaml:"kd"`
	Setpoint float64 `yaml:"setpoint"` // target for the measured signal
	Base     float64 `yaml:"base"`     // parameter value at zero error
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
}

// Config holds all five loops.
type Config struct {
	Exploration  LoopConfig `yaml:"exploration"`
	LearningRate LoopConfig `yaml:"learning_rate"`
	Attention    LoopConfig `yaml:"attention"`
	Gate         LoopConfig `yaml:"gate"`
	RiskAversion LoopConfig `yaml:"risk_aversion"`
}

// DefaultConfig returns the standard loop tuning for the learning regime.
func DefaultConfig() Config {
	return Config{
		Exploration:  LoopConfig{Kp: 1.2, Ki: 0.05, Kd: 0.4, Setpoint: 0.3, Base: 0.5, Min: 0.1, Max: 2.0},
		LearningRate: LoopConfig{Kp: 0.08, Ki: 0.004, Kd: 0.02, Setpoint: 0.3, Base: 0.01, Min: 0.001, Max: 0.1},
		Attention:    LoopConfig{Kp: 3.0, Ki: 0.1, Kd: 0.8, Setpoint: 0.3, Base: 1.0, Min: 0.1, Max: 5.0},
		Gate:         LoopConfig{Kp: 0.6, Ki: 0.02, Kd: 0.1, Setpoint: 0.5, Base: 0.5, Min: 0.2, Max: 0.9},
		RiskAversion: LoopConfig{Kp: 0.9, Ki: 0.04, Kd: 0.2, Setpoint: 0.2, Base: 0.3, Min: 0.0, Max: 1.0},
	}
}

// Validate rejects loop tunings that cannot run.
func (c Config) Validate() error {
	loops := []struct {
		name string
		lc   LoopConfig
	}{
		{"exploration", c.Exploration},
		{"learning_rate", c.LearningRate},
		{"attention", c.Attention},
		{"gate", c.Gate},
		{"risk_aversion", c.RiskAversion},
	}
	for _, l := range loops {
		if l.lc.Min >= l.lc.Max {
			return fmt.Errorf("%s loop: min %g must be below max %g", l.name, l.lc.Min, l.lc.Max)
		}
		if l.lc.Base < l.lc.Min || l.lc.Base > l.lc.Max {
			return fmt.Errorf("%s loop: base %g outside [%g, %g]", l.name, l.lc.Base, l.lc.Min, l.lc.Max)
		}
	}
	return nil
}

// #endregion config

// #region controller
// Controller owns the five loops. Not safe for concurrent use.
type Controller struct {
	exploration  *PID
	learningRate *PID
	attention    *PID
	gate         *PID
	riskAversion *PID
	context      Context
}

// New returns a controller in the learning regime, tuned per the config.
func New(cfg Config) *Controller {
	c := &Controller{
		exploration:  newLoop(cfg.Exploration),
		learningRate: newLoop(cfg.LearningRate),
		attention:    newLoop(cfg.Attention),
		gate:         newLoop(cfg.Gate),
		riskAversion: newLoop(cfg.RiskAversion),
	}
	c.context = ContextLearning
	return c
}

func newLoop(lc LoopConfig) *PID {
	return NewPID(lc.Kp, lc.Ki, lc.Kd, lc.Setpoint, lc.Base, lc.Min, lc.Max)
}

// Step feeds one tick's signals through every loop and returns the updated
// parameters.
func (c *Controller) Step(sig Signals) Params {
	return Params{
		Exploration:   c.exploration.Step(sig.Surprise),
		LearningRate:  c.learningRate.Step(sig.Surprise),
		AttentionGain: c.attention.Step(sig.Uncertainty),
		GateThreshold: c.gate.Step(sig.MemoryPressure),
		RiskAversion:  c.riskAversion.Step(sig.Risk),
	}
}

// Params returns the current parameters without stepping.
func (c *Controller) Params() Params {
	return Params{
		Exploration:   c.exploration.Value(),
		LearningRate:  c.learningRate.Value(),
		AttentionGain: c.attention.Value(),
		GateThreshold: c.gate.Value(),
		RiskAversion:  c.riskAversion.Value(),
	}
}

// Context returns the active regime.
func (c *Controller) Context() Context { return c.context }

// #endregion controller

// #region adapt
// AdaptToContext rebiases the loops for a named regime. Integral state is
// kept so the transition is smooth; only bases and setpoints move.
func (c *Controller) AdaptToContext(ctx Context) error {
	switch ctx {
	case ContextLearning:
		c.exploration.Base, c.exploration.Setpoint = 0.5, 0.3
		c.learningRate.Base, c.learningRate.Setpoint = 0.02, 0.3
		c.attention.Base = 1.0
		c.gate.Base = 0.5
		c.riskAversion.Base = 0.3
	case ContextExploitation:
		c.exploration.Base, c.exploration.Setpoint = 0.15, 0.5
		c.learningRate.Base, c.learningRate.Setpoint = 0.005, 0.5
		c.attention.Base = 1.5
		c.gate.Base = 0.6
		c.riskAversion.Base = 0.4
	case ContextExploration:
		c.exploration.Base, c.exploration.Setpoint = 1.2, 0.2
		c.learningRate.Base, c.learningRate.Setpoint = 0.05, 0.2
		c.attention.Base = 0.8
		c.gate.Base = 0.3
		c.riskAversion.Base = 0.15
	case ContextEmergency:
		c.exploration.Base, c.exploration.Setpoint = 0.1, 0.8
		c.learningRate.Base, c.learningRate.Setpoint = 0.001, 0.8
		c.attention.Base = 3.0
		c.gate.Base = 0.8
		c.riskAversion.Base = 0.9
	default:
		return fmt.Errorf("unknown context %q", ctx)
	}
	c.context = ctx
	return nil
}

// #endregion adapt

// #region snapshot
// Snapshot is the serializable state of all five loops.
type Snapshot struct {
	Context      Context  `json:"context"`
	Exploration  PIDState `json:"exploration"`
	LearningRate PIDState `json:"learning_rate"`
	Attention    PIDState `json:"attention"`
	Gate         PIDState `json:"gate"`
	RiskAversion PIDState `json:"risk_aversion"`
}

// Export captures all loop states.
func (c *Controller) Export() Snapshot {
	return Snapshot{
		Context:      c.context,
		Exploration:  c.exploration.Export(),
		LearningRate: c.learningRate.Export(),
		Attention:    c.attention.Export(),
		Gate:         c.gate.Export(),
		RiskAversion: c.riskAversion.Export(),
	}
}

// Import restores all loop states.
func (c *Controller) Import(snap Snapshot) error {
	switch snap.Context {
	case ContextLearning, ContextExploitation, ContextExploration, ContextEmergency:
	default:
		return fmt.Errorf("unknown context %q", snap.Context)
	}
	c.context = snap.Context
	c.exploration.Import(snap.Exploration)
	c.learningRate.Import(snap.LearningRate)
	c.attention.Import(snap.Attention)
	c.gate.Import(snap.Gate)
	c.riskAversion.Import(snap.RiskAversion)
	return nil
}

// #endregion snapshot
