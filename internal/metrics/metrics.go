// Package metrics exposes the climate controller's state as Prometheus
// collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/boiler-climate/internal/climate"
	"github.com/sweeney/boiler-climate/internal/regulator"
	"github.com/sweeney/boiler-climate/internal/sensor"
)

const namespace = "boiler_climate"

// Metrics holds the collectors. Create one per registry.
type Metrics struct {
	Temperature     *prometheus.GaugeVec
	Setpoint        prometheus.Gauge
	Emergency       prometheus.Gauge
	HeatingEnabled  prometheus.Gauge
	Fault           prometheus.Gauge
	Tuning          prometheus.Gauge
	SensorOutcomes  *prometheus.CounterVec
	RegulatorCycles *prometheus.CounterVec
	SettingsSaves   *prometheus.CounterVec
	MQTTConnected   prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Temperature: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sensors",
			Name:      "temperature_celsius",
			Help:      "Filtered temperature by sensor",
		}, []string{"sensor"}),
		Setpoint: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "heating",
			Name:      "setpoint_celsius",
			Help:      "Flow temperature handed to the boiler",
		}),
		Emergency: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "emergency",
			Help:      "1 while emergency mode is active",
		}),
		HeatingEnabled: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "heating",
			Name:      "enabled",
			Help:      "1 while heating is enabled",
		}),
		Fault: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "boiler",
			Name:      "fault",
			Help:      "1 while the boiler reports a fault",
		}),
		Tuning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "regulator",
			Name:      "tuning",
			Help:      "1 while an auto-tune is requested",
		}),
		SensorOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensors",
			Name:      "steps_total",
			Help:      "Sensor channel steps by outcome",
		}, []string{"sensor", "outcome"}),
		RegulatorCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "regulator",
			Name:      "cycles_total",
			Help:      "Regulation cycles by path",
		}, []string{"path"}),
		SettingsSaves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settings",
			Name:      "saves_total",
			Help:      "Settings persistence attempts by result",
		}, []string{"result"}),
		MQTTConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "connected",
			Help:      "1 while the broker connection is up",
		}),
	}
}

// ObserveState copies the shared state into the gauges.
func (m *Metrics) ObserveState(st climate.State) {
	m.Temperature.WithLabelValues("outdoor").Set(st.Temperatures.Outdoor)
	m.Temperature.WithLabelValues("indoor").Set(st.Temperatures.Indoor)
	m.Setpoint.Set(float64(st.HeatingSetpoint))
	m.Emergency.Set(boolGauge(st.Emergency))
	m.HeatingEnabled.Set(boolGauge(st.HeatingEnabled))
	m.Fault.Set(boolGauge(st.Fault))
	m.Tuning.Set(boolGauge(st.Tuning.Enabled))
}

// ObserveSensors counts one pipeline step. Idle channels are not counted.
func (m *Metrics) ObserveSensors(outdoor, indoor sensor.Outcome) {
	if outdoor != sensor.OutcomeIdle {
		m.SensorOutcomes.WithLabelValues("outdoor", string(outdoor)).Inc()
	}
	if indoor != sensor.OutcomeIdle {
		m.SensorOutcomes.WithLabelValues("indoor", string(indoor)).Inc()
	}
}

// ObserveCycle counts one regulation cycle.
func (m *Metrics) ObserveCycle(res regulator.Result) {
	m.RegulatorCycles.WithLabelValues(string(res.Path)).Inc()
}

// ObserveSave counts a settings save attempt.
func (m *Metrics) ObserveSave(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SettingsSaves.WithLabelValues(result).Inc()
}

// ObserveConnected records the broker connection status.
func (m *Metrics) ObserveConnected(connected bool) {
	m.MQTTConnected.Set(boolGauge(connected))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
