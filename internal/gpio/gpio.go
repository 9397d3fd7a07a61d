// Package gpio reads the boiler's dry contacts through GPIO inputs.
// The real implementation uses the Linux GPIO character device; the fake
// implementation scripts readings for tests.
package gpio

// Contacts is one logical reading of the inputs.
type Contacts struct {
	// HeatingDemand is the room thermostat / user heating toggle.
	HeatingDemand bool
	// Fault is the boiler's fault relay.
	Fault bool
}

// Reader reads the contact inputs.
type Reader interface {
	// Read returns the logical contact states. Raw inputs are active-low
	// through the optocoupler: raw 1 = logical OFF.
	Read() (Contacts, error)

	// Close releases GPIO resources.
	Close() error
}

// Default pins (BCM numbering).
const (
	PinDemand = 26
	PinFault  = 16
)
