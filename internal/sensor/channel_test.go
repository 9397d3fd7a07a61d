package sensor

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sweeney/boiler-climate/internal/climate"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const latency = 750 * time.Millisecond

func newTestChannel(d *FakeDriver) (*Channel, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewChannel("indoor", FakeOpener(d, nil, nil), zap.New(core)), logs
}

// cycle steps the channel through one full conversion starting at now and
// returns the completion outcome and the time of completion.
func cycle(c *Channel, cfg climate.SensorSettings, now time.Time, target *float64) (Outcome, time.Time) {
	done := now.Add(latency)
	return c.Step(cfg, done, target), done
}

func TestChannelStart(t *testing.T) {
	d := NewFakeDriver(latency, 21.5)
	c, _ := newTestChannel(d)
	var target float64

	assert.Equal(t, PhaseUninitialized, c.Phase())
	out := c.Step(climate.SensorSettings{Type: climate.SensorDS18B20}, t0, &target)

	assert.Equal(t, OutcomeStarted, out)
	assert.Equal(t, PhaseConversionPending, c.Phase())
	assert.Equal(t, Resolution, d.Resolution)
	assert.Equal(t, 1, d.Requests)
	assert.Equal(t, 0, d.Reads)
	assert.Zero(t, target)
}

func TestChannelWaitsForLatency(t *testing.T) {
	d := NewFakeDriver(latency, 21.5)
	c, _ := newTestChannel(d)
	cfg := climate.SensorSettings{}
	var target float64

	c.Step(cfg, t0, &target)
	out := c.Step(cfg, t0.Add(latency-time.Millisecond), &target)

	assert.Equal(t, OutcomeWaiting, out)
	assert.Equal(t, 0, d.Reads)
	assert.Equal(t, 1, d.Requests)
}

func TestChannelFirstSamplePublished(t *testing.T) {
	d := NewFakeDriver(latency, 21.5)
	c, logs := newTestChannel(d)
	cfg := climate.SensorSettings{Offset: 0.5}
	var target float64

	c.Step(cfg, t0, &target)
	out, _ := cycle(c, cfg, t0, &target)

	assert.Equal(t, OutcomePublished, out)
	assert.InDelta(t, 22.0, target, 1e-9)
	assert.Equal(t, 2, d.Requests, "next conversion requested after completion")
	assert.Equal(t, 1, logs.FilterMessage("new temp").Len())

	f, ok := c.Filtered()
	require.True(t, ok)
	assert.InDelta(t, 21.5, f, 1e-9)
}

func TestChannelDeadbandSuppressesRepublish(t *testing.T) {
	d := NewFakeDriver(latency, 20.0, 20.0, 20.05, 20.05, 20.0)
	c, logs := newTestChannel(d)
	cfg := climate.SensorSettings{Offset: 0.25}
	var target float64

	now := t0
	c.Step(cfg, now, &target)
	out, now := cycle(c, cfg, now, &target)
	require.Equal(t, OutcomePublished, out)

	for i := 0; i < 4; i++ {
		out, now = cycle(c, cfg, now, &target)
		assert.Equal(t, OutcomeFiltered, out, "sample %d", i)
	}
	assert.InDelta(t, 20.25, target, 1e-9)
	assert.Equal(t, 1, logs.FilterMessage("new temp").Len())
}

func TestChannelPublishesBeyondDeadband(t *testing.T) {
	d := NewFakeDriver(latency, 20.0, 21.0)
	c, logs := newTestChannel(d)
	cfg := climate.SensorSettings{}
	var target float64

	now := t0
	c.Step(cfg, now, &target)
	_, now = cycle(c, cfg, now, &target)
	out, _ := cycle(c, cfg, now, &target)

	// 20 + (21-20)*0.15
	assert.Equal(t, OutcomePublished, out)
	assert.InDelta(t, 20.15, target, 1e-9)
	assert.Equal(t, 2, logs.FilterMessage("new temp").Len())
}

func TestChannelTruncatesToHundredths(t *testing.T) {
	d := NewFakeDriver(latency, 10.0, 20.0)
	c, _ := newTestChannel(d)
	cfg := climate.SensorSettings{}
	var target float64

	now := t0
	c.Step(cfg, now, &target)
	_, now = cycle(c, cfg, now, &target)
	_, now = cycle(c, cfg, now, &target) // 11.5
	cycle(c, cfg, now, &target)          // 11.5 + 8.5*0.15 = 12.775 -> 12.77

	f, _ := c.Filtered()
	assert.InDelta(t, 12.77, f, 1e-9)
}

func TestChannelFilterConverges(t *testing.T) {
	d := NewFakeDriver(latency, 10.0, 20.0)
	c, _ := newTestChannel(d)
	cfg := climate.SensorSettings{}
	var target float64

	now := t0
	c.Step(cfg, now, &target)
	_, now = cycle(c, cfg, now, &target)

	prev, _ := c.Filtered()
	for i := 0; i < 40; i++ {
		_, now = cycle(c, cfg, now, &target)
		f, _ := c.Filtered()
		require.GreaterOrEqual(t, f, prev, "cycle %d: filter must not move away from input", i)
		require.LessOrEqual(t, f, 20.0)
		prev = f
	}
	assert.Less(t, math.Abs(prev-20.0), 0.07)
}

func TestChannelFilterStableOnConstantInput(t *testing.T) {
	d := NewFakeDriver(latency, 20.1)
	c, _ := newTestChannel(d)
	cfg := climate.SensorSettings{}
	var target float64

	now := t0
	c.Step(cfg, now, &target)
	for i := 0; i < 20; i++ {
		_, now = cycle(c, cfg, now, &target)
	}
	f, _ := c.Filtered()
	assert.InDelta(t, 20.1, f, 1e-9)
}

func TestChannelTimeoutRetriesOncePerTimeout(t *testing.T) {
	d := NewFakeDriver(latency, 21.0)
	c, logs := newTestChannel(d)
	cfg := climate.SensorSettings{}
	target := 19.5

	c.Step(cfg, t0, &target)
	d.Ready = false

	assert.Equal(t, OutcomeWaiting, c.Step(cfg, t0.Add(latency), &target))
	assert.Equal(t, OutcomeWaiting, c.Step(cfg, t0.Add(999*time.Millisecond), &target))
	assert.Equal(t, 1, d.Requests)

	assert.Equal(t, OutcomeTimeout, c.Step(cfg, t0.Add(time.Second), &target))
	assert.Equal(t, 2, d.Requests)

	// Timer was reset: the next second is quiet again.
	assert.Equal(t, OutcomeWaiting, c.Step(cfg, t0.Add(1500*time.Millisecond), &target))
	assert.Equal(t, OutcomeWaiting, c.Step(cfg, t0.Add(1999*time.Millisecond), &target))
	assert.Equal(t, 2, d.Requests)

	assert.Equal(t, OutcomeTimeout, c.Step(cfg, t0.Add(2*time.Second), &target))
	assert.Equal(t, 3, d.Requests)

	assert.Equal(t, 0, d.Reads)
	assert.Equal(t, 19.5, target, "last good value retained")
	assert.Equal(t, 2, logs.FilterMessage("could not read temperature data (no response)").Len())
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestChannelRecoversAfterTimeout(t *testing.T) {
	d := NewFakeDriver(latency, 21.0)
	c, _ := newTestChannel(d)
	cfg := climate.SensorSettings{}
	var target float64

	c.Step(cfg, t0, &target)
	d.Ready = false
	c.Step(cfg, t0.Add(time.Second), &target)

	d.Ready = true
	out := c.Step(cfg, t0.Add(time.Second+latency), &target)
	assert.Equal(t, OutcomePublished, out)
	assert.InDelta(t, 21.0, target, 1e-9)
}

func TestChannelDisconnectedDiscarded(t *testing.T) {
	d := NewFakeDriver(latency, DisconnectedC)
	c, logs := newTestChannel(d)
	cfg := climate.SensorSettings{}
	target := 18.0

	c.Step(cfg, t0, &target)
	out, _ := cycle(c, cfg, t0, &target)

	assert.Equal(t, OutcomeDisconnected, out)
	assert.Equal(t, 18.0, target)
	assert.Equal(t, 2, d.Requests, "conversion re-requested after a bad read")
	_, ok := c.Filtered()
	assert.False(t, ok, "disconnected reading must not seed the filter")
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestChannelReadErrorDiscarded(t *testing.T) {
	d := NewFakeDriver(latency, 21.0)
	d.ReadError = errors.New("bus fault")
	c, _ := newTestChannel(d)
	cfg := climate.SensorSettings{}
	var target float64

	c.Step(cfg, t0, &target)
	out, _ := cycle(c, cfg, t0, &target)
	assert.Equal(t, OutcomeDisconnected, out)
	assert.Zero(t, target)
}

func TestChannelNeverPublishesBeforeFirstSuccess(t *testing.T) {
	d := NewFakeDriver(latency, DisconnectedC, DisconnectedC, 22.0)
	c, _ := newTestChannel(d)
	cfg := climate.SensorSettings{}
	var target float64

	now := t0
	c.Step(cfg, now, &target)
	var out Outcome
	out, now = cycle(c, cfg, now, &target)
	assert.Equal(t, OutcomeDisconnected, out)
	out, now = cycle(c, cfg, now, &target)
	assert.Equal(t, OutcomeDisconnected, out)
	assert.Zero(t, target)

	out, _ = cycle(c, cfg, now, &target)
	assert.Equal(t, OutcomePublished, out)
	assert.InDelta(t, 22.0, target, 1e-9)
}

func TestChannelOpenFailureRetries(t *testing.T) {
	opens := 0
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewChannel("outdoor", FakeOpener(nil, errors.New("no bus"), &opens), zap.New(core))
	var target float64

	assert.Equal(t, OutcomeOpenFailed, c.Step(climate.SensorSettings{}, t0, &target))
	assert.Equal(t, OutcomeOpenFailed, c.Step(climate.SensorSettings{}, t0.Add(time.Second), &target))
	assert.Equal(t, 2, opens)
	assert.Equal(t, PhaseUninitialized, c.Phase())
	assert.Equal(t, 2, logs.FilterMessage("could not open sensor").Len())
	assert.NoError(t, c.Close())
}

func TestChannelClose(t *testing.T) {
	d := NewFakeDriver(latency, 21.0)
	c, _ := newTestChannel(d)
	var target float64
	c.Step(climate.SensorSettings{}, t0, &target)

	require.NoError(t, c.Close())
	assert.True(t, d.Closed)
}
