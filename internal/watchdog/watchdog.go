// Package watchdog raises the emergency flag when connectivity to the
// upstream broker has been lost for too long.
package watchdog

import (
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// DefaultThreshold is how long connectivity may be lost before emergency
// mode is entered.
const DefaultThreshold = 120 * time.Second

// Watchdog tracks connectivity loss. Not safe for concurrent use.
type Watchdog struct {
	threshold time.Duration
	log       *zap.Logger

	lostAt  time.Time
	tripped bool
}

// New creates a watchdog with the given threshold.
func New(threshold time.Duration, log *zap.Logger) *Watchdog {
	return &Watchdog{threshold: threshold, log: log.Named("watchdog")}
}

// Observe records the current connectivity and updates st.Emergency.
// It reports whether the emergency flag changed.
func (w *Watchdog) Observe(connected bool, now time.Time, s *climate.Settings, st *climate.State) bool {
	if connected {
		w.lostAt = time.Time{}
		if w.tripped {
			w.tripped = false
			st.Emergency = false
			w.log.Info("connection restored, emergency mode off")
			return true
		}
		return false
	}

	if !s.Emergency.Enable {
		w.lostAt = time.Time{}
		return false
	}

	if w.lostAt.IsZero() {
		w.lostAt = now
		w.log.Warn("connection lost")
		return false
	}

	if !w.tripped && now.Sub(w.lostAt) > w.threshold {
		w.tripped = true
		st.Emergency = true
		w.log.Error("connection lost for too long, emergency mode on",
			zap.Duration("lost_for", now.Sub(w.lostAt)))
		return true
	}
	return false
}

// LostSince returns when connectivity was first seen lost, or the zero time.
func (w *Watchdog) LostSince() time.Time {
	return w.lostAt
}
