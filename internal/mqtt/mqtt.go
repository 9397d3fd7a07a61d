// Package mqtt publishes climate telemetry and receives operator commands,
// with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// Topics.
const (
	// TopicState carries the retained climate state.
	TopicState = "energy/boiler/climate/state"
	// TopicSystem carries lifecycle events and the last will.
	TopicSystem = "energy/boiler/climate/system"
	// TopicCommandPrefix prefixes command topics, e.g. ".../set/target".
	TopicCommandPrefix = "energy/boiler/climate/set/"
	// TopicCommands subscribes to every command topic.
	TopicCommands = TopicCommandPrefix + "#"
)

// Publisher publishes telemetry to MQTT.
type Publisher interface {
	// PublishState sends the climate state. Errors must not crash the process.
	PublishState(event StateEvent) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource delivers parsed operator commands.
type CommandSource interface {
	Commands() <-chan Command
}

// StateEvent is one climate state publication.
type StateEvent struct {
	Timestamp time.Time
	State     climate.State
	// Path is the regulation path that produced the setpoint.
	Path string
}

// SystemEvent represents a system lifecycle event (startup, shutdown, emergency).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "EMERGENCY"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the state message envelope.
type Payload struct {
	Climate ClimatePayload `json:"climate"`
}

// ClimatePayload contains the published climate state.
type ClimatePayload struct {
	Timestamp      string              `json:"timestamp"`
	Temperatures   TemperaturesPayload `json:"temperatures"`
	Setpoint       int                 `json:"setpoint"`
	Path           string              `json:"path,omitempty"`
	HeatingEnabled bool                `json:"heating_enabled"`
	Fault          bool                `json:"fault"`
	Emergency      bool                `json:"emergency"`
	Tuning         TuningPayload       `json:"tuning"`
}

// TemperaturesPayload holds the filtered temperatures.
type TemperaturesPayload struct {
	Outdoor float64 `json:"outdoor"`
	Indoor  float64 `json:"indoor"`
}

// TuningPayload reports the auto-tune request.
type TuningPayload struct {
	Enabled  bool   `json:"enabled"`
	Strategy string `json:"strategy"`
}

// FormatStatePayload creates the JSON payload for a state publication.
func FormatStatePayload(event StateEvent) ([]byte, error) {
	st := event.State
	payload := Payload{
		Climate: ClimatePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Temperatures: TemperaturesPayload{
				Outdoor: st.Temperatures.Outdoor,
				Indoor:  st.Temperatures.Indoor,
			},
			Setpoint:       st.HeatingSetpoint,
			Path:           event.Path,
			HeatingEnabled: st.HeatingEnabled,
			Fault:          st.Fault,
			Emergency:      st.Emergency,
			Tuning: TuningPayload{
				Enabled:  st.Tuning.Enabled,
				Strategy: st.Tuning.Strategy.String(),
			},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the payload for simple system events (LWT, RECONNECTED)
// that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
