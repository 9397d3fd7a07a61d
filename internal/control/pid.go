package control

import "time"

// PID is a positional PID controller with derivative on measurement and an
// integral term clamped to the output range.
type PID struct {
	Kp, Ki, Kd float64
	Min, Max   float64

	// Integral is the accumulated integral term.
	Integral float64

	now       func() time.Time
	last      time.Time
	prevInput float64
	primed    bool
}

// NewPID creates a controller that measures dt with now.
func NewPID(now func() time.Time) *PID {
	return &PID{now: now}
}

// Compute returns the controller output for the current measurement.
// The first call after construction has dt = 0: only the proportional and
// (clamped) integral terms contribute.
func (p *PID) Compute(input, setpoint float64) float64 {
	t := p.now()
	var dt float64
	if p.primed {
		dt = t.Sub(p.last).Seconds()
	}

	err := setpoint - input
	out := p.Kp * err
	if dt > 0 {
		out += p.Kd * (p.prevInput - input) / dt
	}

	p.Integral = clamp(p.Integral+p.Ki*err*dt, p.Min, p.Max)
	out += p.Integral

	p.last = t
	p.prevInput = input
	p.primed = true

	return clamp(out, p.Min, p.Max)
}

// ResetIntegral clears the accumulated integral term.
func (p *PID) ResetIntegral() {
	p.Integral = 0
}
