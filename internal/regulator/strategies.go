package regulator

import (
	"math"

	"go.uber.org/zap"

	"github.com/sweeney/boiler-climate/internal/climate"
)

const (
	// contributionDeadband is the minimum change of a strategy result that
	// replaces its cached contribution.
	contributionDeadband = 0.5

	// targetEpsilon detects a changed target.
	targetEpsilon = 0.0001

	// turboKt replaces the equitherm indoor gain while turbo is on.
	turboKt = 10
)

// normalTemp blends the enabled strategies, or returns the raw target when
// none is enabled (manual mode).
func (e *Engine) normalTemp(s *climate.Settings, st *climate.State) int {
	var sum float64

	if math.Abs(e.prevTarget-s.Heating.Target) > targetEpsilon {
		e.prevTarget = s.Heating.Target
		e.log.Info("new target", zap.Float64("target", s.Heating.Target))

		if s.Equitherm.Enable && s.PID.Enable {
			e.ctrl.ResetPIDIntegral()
			e.logPID.Info("integral sum has been reset")
		}
	}

	if s.Equitherm.Enable {
		et := e.compensation(s, st, float64(s.Heating.MinTemp), float64(s.Heating.MaxTemp))
		sum += e.cache(&e.prevEtResult, et, e.logET, "new result")
	}

	switch {
	case s.PID.Enable && st.HeatingEnabled:
		b := Bounds{Min: float64(s.PID.MinTemp), Max: float64(s.PID.MaxTemp)}
		if s.Equitherm.Enable {
			// Trim term on top of the compensation base.
			b = Bounds{Min: -float64(s.PID.MaxTemp), Max: float64(s.PID.MaxTemp)}
		}
		pid := e.ctrl.PID(PIDInput{
			Input:    st.Temperatures.Indoor,
			Setpoint: s.Heating.Target,
			Gains:    PIDGains{P: s.PID.P, I: s.PID.I, D: s.PID.D},
			Bounds:   b,
		})
		sum += e.cache(&e.prevPidResult, pid, e.logPID, "new result")

	case s.PID.Enable:
		// Heating is off: the controller is frozen, not reset.
		sum += e.prevPidResult
	}

	if !s.Equitherm.Enable && !s.PID.Enable {
		sum = s.Heating.Target
	}

	return clampInt(int(math.Round(sum)), 0, 100)
}

// emergencyTemp follows the compensation curve toward the emergency target
// when configured and the outdoor reading is real, else the fixed target.
func (e *Engine) emergencyTemp(s *climate.Settings, st *climate.State) int {
	if s.Emergency.UseEquitherm && s.Sensors.Outdoor.Type.Hardware() {
		et := e.compensation(s, st, float64(s.Heating.MinTemp), float64(s.Heating.MaxTemp))
		return int(math.Round(e.cache(&e.prevEtResult, et, e.logET, "new emergency result")))
	}
	return int(math.Round(s.Emergency.Target))
}

// compensation evaluates the equitherm curve with mode-dependent inputs.
func (e *Engine) compensation(s *climate.Settings, st *climate.State, min, max float64) float64 {
	in := CompensationInput{
		Indoor:  st.Temperatures.Indoor,
		Outdoor: st.Temperatures.Outdoor,
		Target:  s.Heating.Target,
		N:       s.Equitherm.N,
		K:       s.Equitherm.K,
		T:       s.Equitherm.T,
		Bounds:  Bounds{Min: min, Max: max},
	}

	switch {
	case st.Emergency:
		in.T = 0
		in.Indoor = 0
		in.Target = s.Emergency.Target
	case s.PID.Enable:
		// PID owns the indoor error.
		in.T = 0
		in.Indoor = math.Round(st.Temperatures.Indoor)
		in.Outdoor = math.Round(st.Temperatures.Outdoor)
	case s.Heating.Turbo:
		in.T = turboKt
	}

	return e.ctrl.Compensation(in)
}

// cache replaces *prev with v when it moved by at least the contribution
// deadband and returns the (possibly unchanged) cached value.
func (e *Engine) cache(prev *float64, v float64, log *zap.Logger, msg string) float64 {
	if math.Abs(*prev-v)+targetEpsilon >= contributionDeadband {
		*prev = v
		log.Info(msg, zap.Int("rounded", int(math.Round(v))), zap.Float64("result", v))
	}
	return *prev
}
