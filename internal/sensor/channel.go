package sensor

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/boiler-climate/internal/climate"
)

const (
	// FilterK is the exponential smoothing factor.
	FilterK = 0.15

	// ResponseTimeout is how long a conversion may stay incomplete before
	// it is re-requested.
	ResponseTimeout = 1000 * time.Millisecond

	// publishDeadband suppresses updates smaller than a tenth of a degree.
	publishDeadband = 0.099

	// truncEpsilon keeps values like 20.15 (stored as 20.1499...) from
	// losing a hundredth when truncated.
	truncEpsilon = 1e-9
)

// Phase is the conversion state of a channel.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseConversionPending
)

func (p Phase) String() string {
	if p == PhaseConversionPending {
		return "conversion_pending"
	}
	return "uninitialized"
}

// Outcome describes what a single Step did.
type Outcome string

const (
	OutcomeIdle         Outcome = "idle"         // channel disabled
	OutcomeOpenFailed   Outcome = "open_failed"  // driver could not be constructed
	OutcomeStarted      Outcome = "started"      // driver opened, first conversion requested
	OutcomeWaiting      Outcome = "waiting"      // conversion still in progress
	OutcomeTimeout      Outcome = "timeout"      // no response, conversion re-requested
	OutcomeDisconnected Outcome = "disconnected" // reading discarded
	OutcomeFiltered     Outcome = "filtered"     // sample absorbed, within deadband
	OutcomePublished    Outcome = "published"    // new value written to shared state
)

// Channel runs the conversion state machine for one sensor.
// Not safe for concurrent use.
type Channel struct {
	name string
	open Opener
	log  *zap.Logger

	driver    Driver
	phase     Phase
	started   time.Time
	filtered  float64
	hasSample bool
	published bool
}

// NewChannel creates a channel. The driver is opened on the first Step.
func NewChannel(name string, open Opener, log *zap.Logger) *Channel {
	return &Channel{
		name: name,
		open: open,
		log:  log,
	}
}

// Phase returns the current conversion phase.
func (c *Channel) Phase() Phase {
	return c.phase
}

// Filtered returns the filter accumulator (without calibration offset) and
// whether at least one sample was absorbed.
func (c *Channel) Filtered() (float64, bool) {
	return c.filtered, c.hasSample
}

// Step advances the state machine by exactly one step. It never blocks.
// On a published reading, target receives the filtered value plus cfg.Offset.
func (c *Channel) Step(cfg climate.SensorSettings, now time.Time, target *float64) Outcome {
	if c.phase == PhaseUninitialized {
		return c.start(cfg, now)
	}

	elapsed := now.Sub(c.started)
	if elapsed < c.driver.ConversionLatency() {
		return OutcomeWaiting
	}

	if !c.driver.ConversionComplete() {
		if elapsed < ResponseTimeout {
			return OutcomeWaiting
		}
		c.log.Warn("could not read temperature data (no response)", zap.Duration("elapsed", elapsed))
		c.request(now)
		return OutcomeTimeout
	}

	outcome := c.absorb(cfg, target)
	c.request(now)
	return outcome
}

func (c *Channel) start(cfg climate.SensorSettings, now time.Time) Outcome {
	d, err := c.open(cfg)
	if err != nil {
		c.log.Error("could not open sensor", zap.String("channel", c.name), zap.Int("pin", cfg.Pin), zap.Error(err))
		return OutcomeOpenFailed
	}
	if err := d.SetResolution(Resolution); err != nil {
		c.log.Warn("could not set resolution", zap.Int("bits", Resolution), zap.Error(err))
	}
	c.driver = d
	c.phase = PhaseConversionPending
	c.request(now)
	return OutcomeStarted
}

func (c *Channel) request(now time.Time) {
	if err := c.driver.RequestConversion(); err != nil {
		c.log.Error("could not request conversion", zap.Error(err))
	}
	c.started = now
}

func (c *Channel) absorb(cfg climate.SensorSettings, target *float64) Outcome {
	raw, err := c.driver.ReadCelsius()
	if err != nil || raw == DisconnectedC {
		c.log.Error("could not read temperature data (not connected)", zap.Error(err))
		return OutcomeDisconnected
	}
	c.log.Debug("raw temp", zap.Float64("raw", raw))

	if !c.hasSample {
		c.filtered = raw
		c.hasSample = true
	} else {
		c.filtered += (raw - c.filtered) * FilterK
	}
	c.filtered = math.Floor(c.filtered*100+truncEpsilon) / 100

	value := c.filtered + cfg.Offset
	if c.published && math.Abs(*target-value) <= publishDeadband {
		return OutcomeFiltered
	}
	*target = value
	c.published = true
	c.log.Info("new temp", zap.Float64("temp", value))
	return OutcomePublished
}

// Close releases the driver, if one was opened.
func (c *Channel) Close() error {
	if c.driver == nil {
		return nil
	}
	return c.driver.Close()
}
