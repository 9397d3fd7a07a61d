// Package contacts debounces the boiler's dry contacts into stable states.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package contacts

import (
	"time"

	"github.com/sweeney/boiler-climate/internal/gpio"
)

// DefaultDebounce is how long a contact must hold a new level to count.
const DefaultDebounce = 250 * time.Millisecond

// Kind names a debounced transition.
type Kind string

const (
	DemandOn  Kind = "DEMAND_ON"
	DemandOff Kind = "DEMAND_OFF"
	FaultOn   Kind = "FAULT_ON"
	FaultOff  Kind = "FAULT_OFF"
)

// Transition is a debounced contact change.
type Transition struct {
	Timestamp time.Time
	Kind      Kind
	// Contacts holds both stable levels after the change.
	Contacts gpio.Contacts
}

// Counts tracks transitions since startup.
type Counts struct {
	DemandOn  int
	DemandOff int
	FaultOn   int
	FaultOff  int
}

// line tracks debounce state for a single contact.
type line struct {
	stable       bool
	pending      bool
	hasPending   bool
	pendingSince time.Time
	baselined    bool
}

// Debouncer turns raw contact samples into stable levels and transitions.
// Not safe for concurrent use.
type Debouncer struct {
	debounce  time.Duration
	demand    line
	fault     line
	baselined bool
	counts    Counts
}

// NewDebouncer creates a debouncer with the given hold time.
func NewDebouncer(debounce time.Duration) *Debouncer {
	return &Debouncer{debounce: debounce}
}

// Process takes a sample and returns the transitions it completes.
// Nothing is returned until both contacts have a baseline.
func (d *Debouncer) Process(c gpio.Contacts, now time.Time) []Transition {
	demandChanged := d.step(&d.demand, c.HeatingDemand, now)
	faultChanged := d.step(&d.fault, c.Fault, now)

	if !d.baselined {
		d.baselined = d.demand.baselined && d.fault.baselined
		return nil
	}

	var out []Transition
	if demandChanged {
		out = append(out, d.transition(now, DemandOn, DemandOff, d.demand.stable))
	}
	if faultChanged {
		out = append(out, d.transition(now, FaultOn, FaultOff, d.fault.stable))
	}
	return out
}

func (d *Debouncer) transition(now time.Time, on, off Kind, level bool) Transition {
	kind := off
	if level {
		kind = on
	}
	switch kind {
	case DemandOn:
		d.counts.DemandOn++
	case DemandOff:
		d.counts.DemandOff++
	case FaultOn:
		d.counts.FaultOn++
	case FaultOff:
		d.counts.FaultOff++
	}
	return Transition{Timestamp: now, Kind: kind, Contacts: d.Stable()}
}

// step advances one line and reports whether its stable level flipped.
func (d *Debouncer) step(l *line, level bool, now time.Time) bool {
	if l.baselined && level == l.stable {
		l.hasPending = false
		return false
	}

	if !l.hasPending || l.pending != level {
		l.pending = level
		l.hasPending = true
		l.pendingSince = now
		return false
	}

	if now.Sub(l.pendingSince) < d.debounce {
		return false
	}

	l.hasPending = false
	l.stable = level
	if !l.baselined {
		l.baselined = true
		return false
	}
	return true
}

// Baselined reports whether both contacts have a stable level.
func (d *Debouncer) Baselined() bool {
	return d.baselined
}

// Stable returns the debounced levels. Before the baseline both are false.
func (d *Debouncer) Stable() gpio.Contacts {
	return gpio.Contacts{HeatingDemand: d.demand.stable, Fault: d.fault.stable}
}

// Counts returns the transitions seen since startup.
func (d *Debouncer) Counts() Counts {
	return d.counts
}
