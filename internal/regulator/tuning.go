package regulator

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/boiler-climate/internal/climate"
)

const (
	// MinTuneAccuracy is the lowest accuracy (percent) whose gains are kept.
	MinTuneAccuracy = 90

	defaultTuneStep    = 5.0
	tuneDifferential   = 10.0
	tuneTestWindow     = 20 * time.Minute
	tuneHysteresis     = 0.15
	tuneSettle         = 60 * time.Second
	tuneSampleInterval = 10 * time.Second
)

// autoTune owns the auto-tune lifecycle on behalf of the engine.
type autoTune struct {
	tuner  Tuner
	log    *zap.Logger
	logPID *zap.Logger
	logET  *zap.Logger

	running   bool
	strategy  climate.TuningStrategy
	lastState TunerState
}

func newAutoTune(tuner Tuner, log *zap.Logger) *autoTune {
	return &autoTune{
		tuner:  tuner,
		log:    log,
		logPID: log.Named("pid"),
		logET:  log.Named("equitherm"),
	}
}

func (a *autoTune) clear() {
	a.running = false
	a.strategy = climate.TuneEquitherm
	a.lastState = TunerIdle
}

// step runs one tuning cycle. It returns the setpoint to apply, or done when
// tuning ended this cycle without one (stopped, finished or unsupported).
// committed reports that tuned gains were written into s.
func (a *autoTune) step(e *Engine, s *climate.Settings, st *climate.State) (setpoint int, done, committed bool) {
	if a.running && (!st.Tuning.Enabled || st.Tuning.Strategy != a.strategy) {
		if a.strategy == climate.TunePID {
			a.tuner.Reset()
		}
		a.clear()
		a.log.Info("stopped")
	}

	if !st.Tuning.Enabled {
		return 0, true, false
	}

	switch st.Tuning.Strategy {
	case climate.TuneEquitherm:
		a.logET.Info("not implemented")
		return 0, true, false
	case climate.TunePID:
		return a.stepPID(e, s, st)
	}

	a.log.Warn("unknown tuning strategy", zap.Int("strategy", int(st.Tuning.Strategy)))
	return 0, true, false
}

func (a *autoTune) stepPID(e *Engine, s *climate.Settings, st *climate.State) (int, bool, bool) {
	baseline := s.Heating.Target
	if s.Equitherm.Enable {
		baseline = e.compensation(s, st, float64(s.Heating.MinTemp), float64(s.Heating.MaxTemp))
	}

	if a.running && a.tuner.State() == TunerFinished {
		a.logPID.Info("finished")
		a.report()

		accuracy := a.tuner.Accuracy()
		gains := a.tuner.Gains()
		a.tuner.Reset()
		a.clear()

		if accuracy < MinTuneAccuracy {
			a.logPID.Warn("bad result, try again", zap.Int("accuracy", accuracy))
			return 0, true, false
		}

		s.PID.P, s.PID.I, s.PID.D = gains.P, gains.I, gains.D
		a.logPID.Info("gains committed",
			zap.Int("accuracy", accuracy),
			zap.Float64("p", gains.P), zap.Float64("i", gains.I), zap.Float64("d", gains.D))
		return 0, true, true
	}

	if !a.running {
		step := defaultTuneStep
		indoor := st.Temperatures.Indoor
		if indoor > 0 && indoor-st.Temperatures.Outdoor > tuneDifferential {
			step = math.Ceil(float64(st.HeatingSetpoint) / indoor * 2)
		}

		a.tuner.Start(TunerParams{
			Start:      step,
			Step:       step,
			TestWindow: tuneTestWindow,
			Hysteresis: tuneHysteresis,
			Settle:     tuneSettle,
			Interval:   tuneSampleInterval,
		})
		a.running = true
		a.strategy = climate.TunePID
		a.lastState = a.tuner.State()
		a.logPID.Info("started", zap.Float64("start", step), zap.Float64("step", step))
	}

	a.tuner.Feed(st.Temperatures.Indoor)
	a.tuner.Step()

	if state := a.tuner.State(); state != a.lastState {
		a.logPID.Info("state changed", zap.Stringer("from", a.lastState), zap.Stringer("to", state))
		a.report()
		a.lastState = state
	}

	return int(math.Round(baseline + a.tuner.Output())), false, false
}

func (a *autoTune) report() {
	a.logPID.Info("tuner report", zap.String("report", a.tuner.Report()))
}
