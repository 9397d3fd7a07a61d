package sensor

import (
	"time"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// FakeDriver is a test double that returns scripted readings.
type FakeDriver struct {
	// Latency is returned by ConversionLatency.
	Latency time.Duration

	// Ready controls the return value of ConversionComplete.
	Ready bool

	// Readings contains scripted values returned by ReadCelsius.
	// Each call consumes the next value; the last one repeats.
	Readings []float64

	// ReadError, if set, will be returned by ReadCelsius.
	ReadError error

	// RequestError, if set, will be returned by RequestConversion.
	RequestError error

	// Resolution records the last SetResolution argument.
	Resolution int

	// Requests counts RequestConversion calls.
	Requests int

	// Reads counts ReadCelsius calls.
	Reads int

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeDriver creates a ready FakeDriver with the given readings.
func NewFakeDriver(latency time.Duration, readings ...float64) *FakeDriver {
	return &FakeDriver{Latency: latency, Ready: true, Readings: readings}
}

// SetResolution records the requested resolution.
func (f *FakeDriver) SetResolution(bits int) error {
	f.Resolution = bits
	return nil
}

// RequestConversion counts the request.
func (f *FakeDriver) RequestConversion() error {
	f.Requests++
	return f.RequestError
}

// ConversionLatency returns Latency.
func (f *FakeDriver) ConversionLatency() time.Duration {
	return f.Latency
}

// ConversionComplete returns Ready.
func (f *FakeDriver) ConversionComplete() bool {
	return f.Ready
}

// ReadCelsius returns the next scripted reading.
func (f *FakeDriver) ReadCelsius() (float64, error) {
	f.Reads++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Readings) == 0 {
		return DisconnectedC, nil
	}
	v := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return v, nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

// FakeOpener returns an Opener that hands out d, or err if set.
// Opens counts how many times the opener was invoked.
func FakeOpener(d *FakeDriver, err error, opens *int) Opener {
	return func(climate.SensorSettings) (Driver, error) {
		if opens != nil {
			*opens++
		}
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}
