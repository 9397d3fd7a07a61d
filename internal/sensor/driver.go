// Package sensor polls temperature sensors without blocking and publishes
// filtered, calibrated readings into the shared climate state.
// The real driver reads DS18B20 devices through the Linux 1-Wire sysfs
// interface. The fake driver allows testing without hardware.
package sensor

import (
	"time"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// DisconnectedC is the reading a bus driver reports for a device that did
// not answer.
const DisconnectedC = -127.0

// Resolution is the conversion resolution requested from every sensor (bits).
const Resolution = 12

// Driver is a temperature-sensor bus driver with asynchronous conversions.
type Driver interface {
	// SetResolution configures the conversion resolution in bits.
	SetResolution(bits int) error

	// RequestConversion starts a conversion and returns immediately.
	RequestConversion() error

	// ConversionLatency is the minimum time a conversion needs at the
	// configured resolution.
	ConversionLatency() time.Duration

	// ConversionComplete reports whether the last requested conversion has
	// finished. It never blocks.
	ConversionComplete() bool

	// ReadCelsius returns the last converted value, or DisconnectedC.
	ReadCelsius() (float64, error)

	// Close releases bus resources.
	Close() error
}

// Opener constructs a driver for the given sensor settings.
type Opener func(cfg climate.SensorSettings) (Driver, error)
