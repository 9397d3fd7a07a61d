package control

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/boiler-climate/internal/regulator"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestEquithermPassesThroughTarget(t *testing.T) {
	e := Equitherm{N: 0.7, K: 3, T: 0}
	assert.InDelta(t, 21.0, e.Result(21, 21, 21, 20, 90), 1e-9)
}

func TestEquithermReachesMaxAtSpan(t *testing.T) {
	e := Equitherm{N: 1, K: 2}
	// (90-21)/1 = 69 degrees below target.
	assert.InDelta(t, 90.0, e.Result(21, 21-69, 21, 20, 90), 1e-9)
	assert.Equal(t, 90.0, e.Result(21, -60, 21, 20, 90), "clamped beyond span")
}

func TestEquithermMonotonicInOutdoor(t *testing.T) {
	e := Equitherm{N: 0.7, K: 3, T: 2}
	prev := math.Inf(1)
	for outdoor := -20.0; outdoor <= 20; outdoor += 2.5 {
		v := e.Result(20, outdoor, 21, 20, 90)
		assert.LessOrEqual(t, v, prev, "outdoor=%v", outdoor)
		assert.GreaterOrEqual(t, v, 20.0)
		prev = v
	}
}

func TestEquithermIndoorCorrection(t *testing.T) {
	e := Equitherm{N: 0.7, K: 3, T: 2}
	cold := e.Result(19, 0, 21, 20, 90)
	warm := e.Result(21, 0, 21, 20, 90)
	assert.InDelta(t, 4.0, cold-warm, 1e-9)
}

func TestEquithermDegenerateFactors(t *testing.T) {
	e := Equitherm{N: 0, K: 3, T: 1}
	assert.Equal(t, 22.0, e.Result(20, -10, 21, 20, 90))
}

func TestPIDFirstCallNoIntegration(t *testing.T) {
	c := &clock{t: t0}
	p := NewPID(c.now)
	p.Kp, p.Ki, p.Kd = 2, 0.5, 0
	p.Min, p.Max = -90, 90

	assert.InDelta(t, 4.0, p.Compute(19, 21), 1e-9)
	assert.Zero(t, p.Integral)
}

func TestPIDIntegratesOverTime(t *testing.T) {
	c := &clock{t: t0}
	p := NewPID(c.now)
	p.Kp, p.Ki = 2, 0.5
	p.Min, p.Max = -90, 90

	p.Compute(19, 21)
	c.advance(10 * time.Second)
	// 4 + 0.5*2*10
	assert.InDelta(t, 14.0, p.Compute(19, 21), 1e-9)

	p.ResetIntegral()
	c.advance(10 * time.Second)
	assert.InDelta(t, 14.0, p.Compute(19, 21), 1e-9)
}

func TestPIDDerivativeOnMeasurement(t *testing.T) {
	c := &clock{t: t0}
	p := NewPID(c.now)
	p.Kd = 10
	p.Min, p.Max = -90, 90

	p.Compute(20, 21)
	c.advance(5 * time.Second)
	// rising input brakes the output: 10 * (20-21)/5
	assert.InDelta(t, -2.0, p.Compute(21, 21), 1e-9)
}

func TestPIDClampsOutputAndIntegral(t *testing.T) {
	c := &clock{t: t0}
	p := NewPID(c.now)
	p.Kp, p.Ki = 100, 10
	p.Min, p.Max = 20, 80

	assert.Equal(t, 80.0, p.Compute(10, 21))
	for i := 0; i < 10; i++ {
		c.advance(time.Minute)
		p.Compute(10, 21)
	}
	assert.Equal(t, 80.0, p.Integral)

	p.Kp, p.Ki = 0, 0
	assert.Equal(t, 80.0, p.Compute(30, 21))
}

func tunerParams() regulator.TunerParams {
	return regulator.TunerParams{
		Start:      5,
		Step:       5,
		TestWindow: 20 * time.Minute,
		Hysteresis: 0.25,
		Settle:     time.Minute,
		Interval:   10 * time.Second,
	}
}

// runIntegrator drives the tuner against an integrating process whose input
// moves 0.0625 per sample per unit of relay deviation.
func runIntegrator(c *clock, tu *RelayTuner, maxSamples int) int {
	x := 20.0
	for i := 0; i < maxSamples; i++ {
		c.advance(10 * time.Second)
		tu.Feed(x)
		tu.Step()
		if tu.State() != regulator.TunerRunning {
			return i + 1
		}
		x += (tu.Output() - 5) * 0.0125
	}
	return maxSamples
}

func TestRelayTunerLifecycle(t *testing.T) {
	c := &clock{t: t0}
	tu := NewRelayTuner(c.now)
	assert.Equal(t, regulator.TunerIdle, tu.State())

	tu.Start(tunerParams())
	assert.Equal(t, regulator.TunerRunning, tu.State())
	assert.Equal(t, 5.0, tu.Output(), "start value held while settling")

	n := runIntegrator(c, tu, 500)
	assert.Equal(t, 58, n)
	require.Equal(t, regulator.TunerEvaluating, tu.State())

	tu.Step()
	require.Equal(t, regulator.TunerFinished, tu.State())
	assert.Equal(t, 100, tu.Accuracy())

	g := tu.Gains()
	ku := 4 * 5 / (math.Pi * 0.25)
	assert.InDelta(t, 0.6*ku, g.P, 1e-9)
	assert.InDelta(t, 1.2*ku/160, g.I, 1e-9)
	assert.InDelta(t, 0.075*ku*160, g.D, 1e-9)

	report := tu.Report()
	assert.True(t, strings.Contains(report, "accuracy: 100%"), report)

	tu.Reset()
	assert.Equal(t, regulator.TunerIdle, tu.State())
	assert.Zero(t, tu.Accuracy())
}

func TestRelayTunerSettleHoldsStart(t *testing.T) {
	c := &clock{t: t0}
	tu := NewRelayTuner(c.now)
	tu.Start(tunerParams())

	for i := 0; i < 5; i++ {
		c.advance(10 * time.Second)
		tu.Feed(20)
		tu.Step()
		assert.Equal(t, 5.0, tu.Output(), "sample %d", i)
	}
	c.advance(10 * time.Second)
	tu.Step()
	assert.Equal(t, 10.0, tu.Output(), "relay engages high after settle")
}

func TestRelayTunerSamplesAtInterval(t *testing.T) {
	c := &clock{t: t0}
	tu := NewRelayTuner(c.now)
	p := tunerParams()
	p.Settle = 0
	tu.Start(p)

	c.advance(10 * time.Second)
	tu.Feed(20)
	tu.Step() // settles, relay high

	c.advance(time.Second)
	tu.Feed(25)
	tu.Step() // too soon, ignored
	assert.Equal(t, 10.0, tu.Output())

	c.advance(9 * time.Second)
	tu.Step()
	assert.Equal(t, 0.0, tu.Output(), "relay drops after input crosses band")
}

func TestRelayTunerWindowWithoutOscillation(t *testing.T) {
	c := &clock{t: t0}
	tu := NewRelayTuner(c.now)
	p := tunerParams()
	p.TestWindow = time.Minute
	tu.Start(p)

	for i := 0; i < 20 && tu.State() == regulator.TunerRunning; i++ {
		c.advance(10 * time.Second)
		tu.Feed(20)
		tu.Step()
	}
	require.Equal(t, regulator.TunerEvaluating, tu.State())
	tu.Step()
	assert.Equal(t, regulator.TunerFinished, tu.State())
	assert.Zero(t, tu.Accuracy())
	assert.Equal(t, regulator.PIDGains{}, tu.Gains())
}

func TestControllerImplementsCapability(t *testing.T) {
	c := &clock{t: t0}
	var capability regulator.Capability = NewController(c.now)

	out := capability.PID(regulator.PIDInput{
		Input:    19,
		Setpoint: 21,
		Gains:    regulator.PIDGains{P: 2},
		Bounds:   regulator.Bounds{Min: -90, Max: 90},
	})
	assert.InDelta(t, 4.0, out, 1e-9)

	v := capability.Compensation(regulator.CompensationInput{
		Indoor: 21, Outdoor: 21, Target: 21, N: 0.7, K: 3,
		Bounds: regulator.Bounds{Min: 20, Max: 90},
	})
	assert.InDelta(t, 21.0, v, 1e-9)

	assert.Equal(t, regulator.TunerIdle, capability.Tuner().State())
	capability.ResetPIDIntegral()
}
