// Package regulator turns filtered temperatures and settings into a bounded
// heating setpoint. Each Step arbitrates between the emergency fallback, an
// in-flight auto-tune and the normal blend of weather compensation and PID.
//
// The package holds no locks: Step must be called from the goroutine that
// owns the climate.State it mutates.
package regulator

import (
	"math"

	"go.uber.org/zap"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// Path names the strategy that produced a cycle's candidate.
type Path string

const (
	PathEmergency Path = "emergency"
	PathTuning    Path = "tuning"
	PathNormal    Path = "normal"
)

// Result describes one regulation cycle.
type Result struct {
	Path Path
	// Candidate is the bounded setpoint computed this cycle.
	Candidate int
	// Changed reports that State.HeatingSetpoint was overwritten.
	Changed bool
	// SettingsChanged reports that Settings were mutated (turbo cleared or
	// tuned gains committed) and should be persisted.
	SettingsChanged bool
}

// Engine is the heating regulation engine. Not safe for concurrent use.
type Engine struct {
	ctrl   Capability
	log    *zap.Logger
	logET  *zap.Logger
	logPID *zap.Logger
	tune   *autoTune

	prevTarget    float64
	prevEtResult  float64
	prevPidResult float64
}

// New creates an engine that delegates control math to ctrl.
func New(ctrl Capability, log *zap.Logger) *Engine {
	log = log.Named("regulator")
	return &Engine{
		ctrl:   ctrl,
		log:    log,
		logET:  log.Named("equitherm"),
		logPID: log.Named("pid"),
		tune:   newAutoTune(ctrl.Tuner(), log.Named("tuning")),
	}
}

// Tuning reports whether an auto-tune run is in flight and its tuner state.
func (e *Engine) Tuning() (bool, TunerState) {
	return e.tune.running, e.tune.tuner.State()
}

// Step runs one regulation cycle and writes the setpoint into st.
func (e *Engine) Step(s *climate.Settings, st *climate.State) Result {
	var res Result
	candidate := st.HeatingSetpoint

	if st.Emergency {
		res.Path = PathEmergency
		res.SettingsChanged = e.disableTurbo(s)
		candidate = e.emergencyTemp(s, st)
	} else {
		if st.Tuning.Enabled || e.tune.running {
			res.Path = PathTuning
			res.SettingsChanged = e.disableTurbo(s)

			sp, done, committed := e.tune.step(e, s, st)
			res.SettingsChanged = res.SettingsChanged || committed
			if done {
				st.Tuning.Enabled = false
			} else {
				candidate = sp
			}
		}

		if !st.Tuning.Enabled {
			res.Path = PathNormal
			if s.Heating.Turbo && (math.Abs(s.Heating.Target-st.Temperatures.Indoor) < 1 || (s.Equitherm.Enable && s.PID.Enable)) {
				res.SettingsChanged = e.disableTurbo(s) || res.SettingsChanged
			}
			candidate = e.normalTemp(s, st)
		}
	}

	if candidate < s.Heating.MinTemp || candidate > s.Heating.MaxTemp {
		candidate = clampInt(candidate, s.Heating.MinTemp, s.Heating.MaxTemp)
	}

	if absInt(st.HeatingSetpoint-candidate) >= 1 {
		st.HeatingSetpoint = candidate
		res.Changed = true
	}
	res.Candidate = candidate
	return res
}

// disableTurbo clears the turbo flag and reports whether it was set.
func (e *Engine) disableTurbo(s *climate.Settings) bool {
	if !s.Heating.Turbo {
		return false
	}
	s.Heating.Turbo = false
	e.log.Info("turbo mode auto disabled")
	return true
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
