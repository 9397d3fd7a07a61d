package control

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sweeney/boiler-climate/internal/regulator"
)

// minSwitches ends the relay test early once enough oscillation has been
// observed: the first half-period is discarded, six more are measured.
const minSwitches = 7

// RelayTuner derives PID gains with the relay-feedback (Åström-Hägglund)
// method and Ziegler-Nichols rules.
//
// After Start the output is held at Params.Start for Params.Settle; the
// input at that moment becomes the baseline. The output then toggles
// between Start+Step and Start-Step whenever the input leaves the
// hysteresis band around the baseline. Peaks, troughs and switch times give
// the ultimate gain and period.
type RelayTuner struct {
	now func() time.Time

	params  regulator.TunerParams
	state   regulator.TunerState
	started time.Time
	sampled time.Time

	input    float64
	output   float64
	settled  bool
	baseline float64
	high     bool
	curMax   float64
	curMin   float64
	relayAt  time.Time

	switches int
	peaks    []float64
	troughs  []float64
	rises    []time.Time

	ku, tu   float64
	gains    regulator.PIDGains
	accuracy int
}

// NewRelayTuner creates an idle tuner that reads time from now.
func NewRelayTuner(now func() time.Time) *RelayTuner {
	return &RelayTuner{now: now}
}

// Start begins a new test, discarding any previous one.
func (t *RelayTuner) Start(p regulator.TunerParams) {
	t.Reset()
	t.params = p
	t.state = regulator.TunerRunning
	t.started = t.now()
	t.output = p.Start
}

// Feed records the latest process value.
func (t *RelayTuner) Feed(sample float64) {
	t.input = sample
}

// Step advances the test by one sample period.
func (t *RelayTuner) Step() {
	switch t.state {
	case regulator.TunerRunning:
		t.relay()
	case regulator.TunerEvaluating:
		t.evaluate()
		t.state = regulator.TunerFinished
	}
}

func (t *RelayTuner) relay() {
	now := t.now()
	if !t.sampled.IsZero() && now.Sub(t.sampled) < t.params.Interval {
		return
	}
	t.sampled = now

	if !t.settled {
		if now.Sub(t.started) < t.params.Settle {
			return
		}
		t.settled = true
		t.baseline = t.input
		t.relayAt = now
		t.high = true
		t.output = t.params.Start + t.params.Step
		t.curMax, t.curMin = t.input, t.input
		return
	}

	t.curMax = math.Max(t.curMax, t.input)
	t.curMin = math.Min(t.curMin, t.input)

	switch {
	case t.high && t.input >= t.baseline+t.params.Hysteresis:
		if t.switches > 0 {
			t.troughs = append(t.troughs, t.curMin)
		}
		t.rises = append(t.rises, now)
		t.setRelay(false)
	case !t.high && t.input <= t.baseline-t.params.Hysteresis:
		t.peaks = append(t.peaks, t.curMax)
		t.setRelay(true)
	}

	if t.switches >= minSwitches || now.Sub(t.relayAt) >= t.params.TestWindow {
		t.state = regulator.TunerEvaluating
	}
}

func (t *RelayTuner) setRelay(high bool) {
	t.switches++
	t.high = high
	t.curMax, t.curMin = t.input, t.input
	if high {
		t.output = t.params.Start + t.params.Step
	} else {
		t.output = t.params.Start - t.params.Step
	}
}

func (t *RelayTuner) evaluate() {
	t.output = t.params.Start
	if len(t.rises) < 3 || len(t.peaks) < 2 || len(t.troughs) < 2 {
		return
	}

	periods := make([]float64, 0, len(t.rises)-1)
	for i := 1; i < len(t.rises); i++ {
		periods = append(periods, t.rises[i].Sub(t.rises[i-1]).Seconds())
	}

	peak, trough := mean(t.peaks), mean(t.troughs)
	amplitude := (peak - trough) / 2
	if amplitude <= 0 {
		return
	}
	t.tu = mean(periods)
	t.ku = 4 * t.params.Step / (math.Pi * amplitude)

	t.gains = regulator.PIDGains{
		P: 0.6 * t.ku,
		I: 1.2 * t.ku / t.tu,
		D: 0.075 * t.ku * t.tu,
	}

	spread := math.Max(stddev(periods)/t.tu, math.Max(stddev(t.peaks), stddev(t.troughs))/(2*amplitude))
	t.accuracy = int(math.Round(clamp(100*(1-spread), 0, 100)))
}

// State returns the current lifecycle state.
func (t *RelayTuner) State() regulator.TunerState {
	return t.state
}

// Output returns the relay output to apply on top of the baseline setpoint.
func (t *RelayTuner) Output() float64 {
	return t.output
}

// Accuracy returns the result confidence in percent (0 until finished).
func (t *RelayTuner) Accuracy() int {
	return t.accuracy
}

// Gains returns the tuned gains (zero until finished).
func (t *RelayTuner) Gains() regulator.PIDGains {
	return t.gains
}

// Reset returns the tuner to idle.
func (t *RelayTuner) Reset() {
	*t = RelayTuner{now: t.now}
}

// Report returns a diagnostic dump of the run.
func (t *RelayTuner) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s\n", t.state)
	fmt.Fprintf(&b, "output: %.2f baseline: %.2f input: %.2f\n", t.output, t.baseline, t.input)
	fmt.Fprintf(&b, "half-periods: %d peaks: %d troughs: %d\n", t.switches, len(t.peaks), len(t.troughs))
	if t.state == regulator.TunerFinished {
		fmt.Fprintf(&b, "ku: %.4f tu: %.1fs\n", t.ku, t.tu)
		fmt.Fprintf(&b, "p: %.4f i: %.6f d: %.4f\n", t.gains.P, t.gains.I, t.gains.D)
		fmt.Fprintf(&b, "accuracy: %d%%\n", t.accuracy)
	}
	return b.String()
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)))
}
