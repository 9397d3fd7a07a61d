// Package climate holds the settings and shared runtime state exchanged by the
// sensor pipeline, the regulation engine and the daemon's collaborators.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
//
// Each field of State has exactly one writer: the sensor pipeline writes
// Temperatures, the regulation engine writes HeatingSetpoint, and the daemon
// loop writes the external flags. All writers run on the same goroutine.
package climate

// SensorType selects where a temperature comes from.
type SensorType int

const (
	// SensorBoiler means the value is reported by the boiler itself.
	SensorBoiler SensorType = 0
	// SensorManual means the value is pushed by an external source (MQTT).
	SensorManual SensorType = 1
	// SensorDS18B20 means a 1-Wire sensor polled by the sensor pipeline.
	SensorDS18B20 SensorType = 2
)

func (t SensorType) String() string {
	switch t {
	case SensorBoiler:
		return "boiler"
	case SensorManual:
		return "manual"
	case SensorDS18B20:
		return "ds18b20"
	}
	return "unknown"
}

// Hardware reports whether the value comes from a physical sensor rather
// than a virtual/external source.
func (t SensorType) Hardware() bool {
	return t != SensorManual
}

// TuningStrategy identifies the regulator being auto-tuned.
type TuningStrategy int

const (
	// TuneEquitherm is reserved; tuning the compensation curve is not implemented.
	TuneEquitherm TuningStrategy = 0
	// TunePID runs the relay-feedback tuner for the PID gains.
	TunePID TuningStrategy = 1
)

func (s TuningStrategy) String() string {
	switch s {
	case TuneEquitherm:
		return "equitherm"
	case TunePID:
		return "pid"
	}
	return "unknown"
}

// HeatingSettings bounds and targets the heating circuit.
type HeatingSettings struct {
	// Target is the desired indoor temperature (°C).
	Target float64 `yaml:"target"`
	// MinTemp and MaxTemp bound the emitted flow setpoint (°C).
	MinTemp int `yaml:"min_temp"`
	MaxTemp int `yaml:"max_temp"`
	// Turbo is cleared by the regulation engine when incompatible with the
	// active strategy. It is the only setting the engine writes back.
	Turbo bool `yaml:"turbo"`
}

// EquithermSettings configures the weather-compensation curve.
type EquithermSettings struct {
	Enable bool    `yaml:"enable"`
	N      float64 `yaml:"n_factor"` // curve slope
	K      float64 `yaml:"k_factor"` // curve shape exponent
	T      float64 `yaml:"t_factor"` // indoor correction gain
}

// PIDSettings configures the feedback controller.
type PIDSettings struct {
	Enable  bool    `yaml:"enable"`
	P       float64 `yaml:"p_factor"`
	I       float64 `yaml:"i_factor"`
	D       float64 `yaml:"d_factor"`
	MinTemp int     `yaml:"min_temp"`
	MaxTemp int     `yaml:"max_temp"`
}

// EmergencySettings configures the fallback used when connectivity is lost.
type EmergencySettings struct {
	Enable       bool    `yaml:"enable"`
	Target       float64 `yaml:"target"`
	UseEquitherm bool    `yaml:"use_equitherm"`
}

// SensorSettings configures one temperature input.
type SensorSettings struct {
	Type SensorType `yaml:"type"`
	Pin  int        `yaml:"pin"`
	// Device optionally pins a specific 1-Wire device id (e.g. "28-0316a2795a3f").
	Device string  `yaml:"device,omitempty"`
	Offset float64 `yaml:"offset"`
}

// SensorsSettings groups the outdoor and indoor inputs.
type SensorsSettings struct {
	Outdoor SensorSettings `yaml:"outdoor"`
	Indoor  SensorSettings `yaml:"indoor"`
}

// Settings is the externally owned configuration. The core treats it as
// read-only except for Heating.Turbo and the PID gains committed by a
// successful auto-tune.
type Settings struct {
	Heating   HeatingSettings   `yaml:"heating"`
	Equitherm EquithermSettings `yaml:"equitherm"`
	PID       PIDSettings       `yaml:"pid"`
	Emergency EmergencySettings `yaml:"emergency"`
	Sensors   SensorsSettings   `yaml:"sensors"`
}

// Temperatures holds the calibrated, filtered readings.
type Temperatures struct {
	Outdoor float64
	Indoor  float64
}

// Tuning is the operator's auto-tune request.
type Tuning struct {
	Enabled  bool
	Strategy TuningStrategy
}

// State is the shared runtime blackboard.
type State struct {
	Temperatures Temperatures

	// Emergency is set when connectivity has been lost for too long.
	Emergency bool
	// Fault reflects a boiler fault condition.
	Fault bool
	// HeatingEnabled reflects the user/contact heating toggle.
	HeatingEnabled bool

	// HeatingSetpoint is the flow temperature handed to the boiler (0-100).
	HeatingSetpoint int

	Tuning Tuning
}
