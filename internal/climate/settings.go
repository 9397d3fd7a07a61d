package climate

import (
	"errors"
	"fmt"
)

// Defaults for the heating circuit.
const (
	DefaultHeatingMinTemp = 20
	DefaultHeatingMaxTemp = 90
)

// DefaultSettings returns the settings a fresh appliance starts with.
func DefaultSettings() Settings {
	return Settings{
		Heating: HeatingSettings{
			Target:  21,
			MinTemp: DefaultHeatingMinTemp,
			MaxTemp: DefaultHeatingMaxTemp,
		},
		Equitherm: EquithermSettings{
			N: 0.7,
			K: 3,
			T: 2,
		},
		PID: PIDSettings{
			P:       50,
			I:       0.006,
			D:       10000,
			MinTemp: DefaultHeatingMinTemp,
			MaxTemp: DefaultHeatingMaxTemp,
		},
		Emergency: EmergencySettings{
			Enable: true,
			Target: 40,
		},
		Sensors: SensorsSettings{
			Outdoor: SensorSettings{Type: SensorBoiler},
			Indoor:  SensorSettings{Type: SensorManual},
		},
	}
}

var (
	ErrHeatingBounds = errors.New("heating bounds invalid")
	ErrPIDBounds     = errors.New("pid bounds invalid")
	ErrEquitherm     = errors.New("equitherm factors must be positive")
	ErrPIDGains      = errors.New("pid gains must not be negative")
	ErrSensorType    = errors.New("unknown sensor type")
)

// Validate reports the first inconsistency found in s.
func (s *Settings) Validate() error {
	h := s.Heating
	if h.MinTemp < 0 || h.MaxTemp > 100 || h.MinTemp >= h.MaxTemp {
		return fmt.Errorf("%w: min=%d max=%d", ErrHeatingBounds, h.MinTemp, h.MaxTemp)
	}
	if s.PID.MinTemp < 0 || s.PID.MaxTemp > 100 || s.PID.MinTemp >= s.PID.MaxTemp {
		return fmt.Errorf("%w: min=%d max=%d", ErrPIDBounds, s.PID.MinTemp, s.PID.MaxTemp)
	}
	if s.Equitherm.Enable && (s.Equitherm.N <= 0 || s.Equitherm.K <= 0) {
		return fmt.Errorf("%w: n=%g k=%g", ErrEquitherm, s.Equitherm.N, s.Equitherm.K)
	}
	if s.PID.P < 0 || s.PID.I < 0 || s.PID.D < 0 {
		return fmt.Errorf("%w: p=%g i=%g d=%g", ErrPIDGains, s.PID.P, s.PID.I, s.PID.D)
	}
	for name, sensor := range map[string]SensorSettings{"outdoor": s.Sensors.Outdoor, "indoor": s.Sensors.Indoor} {
		if sensor.Type < SensorBoiler || sensor.Type > SensorDS18B20 {
			return fmt.Errorf("%w: %s=%d", ErrSensorType, name, sensor.Type)
		}
	}
	return nil
}
