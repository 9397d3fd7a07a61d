package control

import (
	"time"

	"github.com/sweeney/boiler-climate/internal/regulator"
)

// Controller implements regulator.Capability with a single PID instance and
// a single relay tuner shared across cycles.
type Controller struct {
	pid   *PID
	tuner *RelayTuner
}

// NewController creates a Controller. now supplies time for the PID dt and
// the tuner's sampling; pass time.Now outside tests.
func NewController(now func() time.Time) *Controller {
	return &Controller{
		pid:   NewPID(now),
		tuner: NewRelayTuner(now),
	}
}

// Compensation evaluates the equitherm curve.
func (c *Controller) Compensation(in regulator.CompensationInput) float64 {
	e := Equitherm{N: in.N, K: in.K, T: in.T}
	return e.Result(in.Indoor, in.Outdoor, in.Target, in.Bounds.Min, in.Bounds.Max)
}

// PID runs one controller iteration with the given gains and bounds.
func (c *Controller) PID(in regulator.PIDInput) float64 {
	c.pid.Kp = in.Gains.P
	c.pid.Ki = in.Gains.I
	c.pid.Kd = in.Gains.D
	c.pid.Min = in.Bounds.Min
	c.pid.Max = in.Bounds.Max
	return c.pid.Compute(in.Input, in.Setpoint)
}

// ResetPIDIntegral clears the PID integral term.
func (c *Controller) ResetPIDIntegral() {
	c.pid.ResetIntegral()
}

// Tuner returns the relay tuner.
func (c *Controller) Tuner() regulator.Tuner {
	return c.tuner
}
