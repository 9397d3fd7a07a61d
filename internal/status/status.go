// Package status provides a thread-safe status tracker for the climate
// daemon. It is written by the run loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// Config contains daemon configuration for display.
type Config struct {
	SensorIntervalMs    int64
	RegulatorIntervalMs int64
	Broker              string
	HTTPAddr            string
	SettingsPath        string
	GPIO                bool
}

// Regulation describes the latest regulation cycle.
type Regulation struct {
	Path         string
	TunerRunning bool
	TunerState   string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Climate       climate.State
	Settings      climate.Settings
	Regulation    Regulation
	Ready         bool // a regulation cycle has run
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the state after a regulation cycle.
func (t *Tracker) Update(st climate.State, s climate.Settings, reg Regulation) {
	t.mu.Lock()
	t.snap.Climate = st
	t.snap.Settings = s
	t.snap.Regulation = reg
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
