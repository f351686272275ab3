package control

// #region pid
// PID is one discrete proportional-integral-derivative loop driving a
// bounded parameter. The integral term is clamped to its own bound so a
// long excursion cannot wind up and overshoot on the way back.
type PID struct {
	Kp, Ki, Kd float64

	Setpoint float64 // target for the measured signal
	Base     float64 // parameter value at zero error
	Min, Max float64 // parameter range

	IntegralLimit float64
	IntegralLeak  float64 // per-step retention of the accumulated error

	integral float64
	prevErr  float64
	primed   bool
	value    float64
}

// NewPID returns a loop resting at its base value.
func NewPID(kp, ki, kd, setpoint, base, min, max float64) *PID {
	return &PID{
		Kp: kp, Ki: ki, Kd: kd,
		Setpoint:      setpoint,
		Base:          base,
		Min:           min,
		Max:           max,
		IntegralLimit: (max - min) * 2.0,
		IntegralLeak:  0.9,
		value:         clamp(base, min, max),
	}
}

// Step feeds one measurement and returns the new parameter value.
func (p *PID) Step(measured float64) float64 {
	err := measured - p.Setpoint
	p.integral = p.integral*p.IntegralLeak + err
	p.integral = clamp(p.integral, -p.IntegralLimit, p.IntegralLimit)
	deriv := 0.0
	if p.primed {
		deriv = err - p.prevErr
	}
	p.prevErr = err
	p.primed = true

	p.value = clamp(p.Base+p.Kp*err+p.Ki*p.integral+p.Kd*deriv, p.Min, p.Max)
	return p.value
}

// Value returns the current parameter without stepping.
func (p *PID) Value() float64 { return p.value }

// Reset clears accumulated state and returns to the base value.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.primed = false
	p.value = clamp(p.Base, p.Min, p.Max)
}

// #endregion pid

// #region snapshot
// PIDState is the serializable dynamic state of one loop.
type PIDState struct {
	Integral float64 `json:"integral"`
	PrevErr  float64 `json:"prev_err"`
	Primed   bool    `json:"primed"`
	Value    float64 `json:"value"`
	Setpoint float64 `json:"setpoint"`
	Base     float64 `json:"base"`
}

// Export captures the loop's dynamic state.
func (p *PID) Export() PIDState {
	return PIDState{
		Integral: p.integral,
		PrevErr:  p.prevErr,
		Primed:   p.primed,
		Value:    p.value,
		Setpoint: p.Setpoint,
		Base:     p.Base,
	}
}

// Import restores the loop's dynamic state.
func (p *PID) Import(s PIDState) {
	p.integral = s.Integral
	p.prevErr = s.PrevErr
	p.primed = s.Primed
	p.value = clamp(s.Value, p.Min, p.Max)
	p.Setpoint = s.Setpoint
	p.Base = s.Base
}

// #endregion snapshot

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
