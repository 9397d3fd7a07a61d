package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string           `json:"event,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Ready          bool             `json:"ready"`
	UptimeSeconds  int64            `json:"uptime_seconds"`
	StartTime      string           `json:"start_time"`
	Timestamp      string           `json:"timestamp"`
	Temperatures   TemperaturesJSON `json:"temperatures"`
	Setpoint       int              `json:"setpoint"`
	Path           string           `json:"path,omitempty"`
	HeatingEnabled bool             `json:"heating_enabled"`
	Fault          bool             `json:"fault"`
	Emergency      bool             `json:"emergency"`
	Tuning         TuningJSON       `json:"tuning"`
	Settings       SettingsJSON     `json:"settings"`
	MQTT           MQTTStatus       `json:"mqtt"`
	Config         ConfigJSON       `json:"config"`
}

// TemperaturesJSON holds the filtered temperatures.
type TemperaturesJSON struct {
	Outdoor float64 `json:"outdoor"`
	Indoor  float64 `json:"indoor"`
}

// TuningJSON reports the auto-tune request and the tuner's progress.
type TuningJSON struct {
	Enabled  bool   `json:"enabled"`
	Strategy string `json:"strategy"`
	Running  bool   `json:"running"`
	State    string `json:"state,omitempty"`
}

// SettingsJSON is the subset of settings shown on the status page.
type SettingsJSON struct {
	Target    float64       `json:"target"`
	Turbo     bool          `json:"turbo"`
	MinTemp   int           `json:"min_temp"`
	MaxTemp   int           `json:"max_temp"`
	Equitherm EquithermJSON `json:"equitherm"`
	PID       PIDJSON       `json:"pid"`
	Outdoor   string        `json:"outdoor_sensor"`
	Indoor    string        `json:"indoor_sensor"`
}

// EquithermJSON mirrors the compensation settings.
type EquithermJSON struct {
	Enabled bool    `json:"enabled"`
	N       float64 `json:"n"`
	K       float64 `json:"k"`
	T       float64 `json:"t"`
}

// PIDJSON mirrors the PID settings.
type PIDJSON struct {
	Enabled bool    `json:"enabled"`
	P       float64 `json:"p"`
	I       float64 `json:"i"`
	D       float64 `json:"d"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SensorIntervalMs    int64  `json:"sensor_interval_ms"`
	RegulatorIntervalMs int64  `json:"regulator_interval_ms"`
	Broker              string `json:"broker"`
	HTTPAddr            string `json:"http_addr"`
	SettingsPath        string `json:"settings_path"`
	GPIO                bool   `json:"gpio"`
}

func buildInner(snap Snapshot) StatusInner {
	st, s := snap.Climate, snap.Settings
	return StatusInner{
		Ready:          snap.Ready,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		Temperatures:   TemperaturesJSON{Outdoor: st.Temperatures.Outdoor, Indoor: st.Temperatures.Indoor},
		Setpoint:       st.HeatingSetpoint,
		Path:           snap.Regulation.Path,
		HeatingEnabled: st.HeatingEnabled,
		Fault:          st.Fault,
		Emergency:      st.Emergency,
		Tuning: TuningJSON{
			Enabled:  st.Tuning.Enabled,
			Strategy: st.Tuning.Strategy.String(),
			Running:  snap.Regulation.TunerRunning,
			State:    snap.Regulation.TunerState,
		},
		Settings: SettingsJSON{
			Target:    s.Heating.Target,
			Turbo:     s.Heating.Turbo,
			MinTemp:   s.Heating.MinTemp,
			MaxTemp:   s.Heating.MaxTemp,
			Equitherm: EquithermJSON{Enabled: s.Equitherm.Enable, N: s.Equitherm.N, K: s.Equitherm.K, T: s.Equitherm.T},
			PID:       PIDJSON{Enabled: s.PID.Enable, P: s.PID.P, I: s.PID.I, D: s.PID.D},
			Outdoor:   s.Sensors.Outdoor.Type.String(),
			Indoor:    s.Sensors.Indoor.Type.String(),
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			SensorIntervalMs:    snap.Config.SensorIntervalMs,
			RegulatorIntervalMs: snap.Config.RegulatorIntervalMs,
			Broker:              snap.Config.Broker,
			HTTPAddr:            snap.Config.HTTPAddr,
			SettingsPath:        snap.Config.SettingsPath,
			GPIO:                snap.Config.GPIO,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
