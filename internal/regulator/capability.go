package regulator

import "time"

// Bounds is an inclusive output range.
type Bounds struct {
	Min float64
	Max float64
}

// CompensationInput feeds the weather-compensation curve.
type CompensationInput struct {
	Indoor  float64
	Outdoor float64
	Target  float64
	// N, K and T are the curve slope, shape exponent and indoor correction gain.
	N, K, T float64
	Bounds  Bounds
}

// PIDGains are the feedback controller coefficients.
type PIDGains struct {
	P, I, D float64
}

// PIDInput feeds the feedback controller.
type PIDInput struct {
	Input    float64
	Setpoint float64
	Gains    PIDGains
	Bounds   Bounds
}

// TunerState is the lifecycle of a relay-feedback auto-tune run.
type TunerState int

const (
	TunerIdle TunerState = iota
	TunerRunning
	TunerEvaluating
	TunerFinished
)

func (s TunerState) String() string {
	switch s {
	case TunerIdle:
		return "idle"
	case TunerRunning:
		return "relay test"
	case TunerEvaluating:
		return "evaluating"
	case TunerFinished:
		return "finished"
	}
	return "unknown"
}

// TunerParams configures a relay-feedback test.
type TunerParams struct {
	// Start is the output held while the process settles.
	Start float64
	// Step is the relay amplitude around Start.
	Step float64
	// TestWindow bounds the relay test duration.
	TestWindow time.Duration
	// Hysteresis is the input band around the settled baseline.
	Hysteresis float64
	// Settle is how long Start is held before the relay begins.
	Settle time.Duration
	// Interval is the sampling period.
	Interval time.Duration
}

// Tuner is a relay-feedback auto-tuner.
type Tuner interface {
	Start(p TunerParams)
	Feed(sample float64)
	Step()
	State() TunerState
	Output() float64
	// Accuracy is the confidence of the result in percent.
	Accuracy() int
	Gains() PIDGains
	Reset()
	// Report is a human-readable diagnostic dump.
	Report() string
}

// Capability provides the control math the engine arbitrates between.
type Capability interface {
	Compensation(in CompensationInput) float64
	PID(in PIDInput) float64
	ResetPIDIntegral()
	Tuner() Tuner
}
