package sensor

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// Pipeline drives the outdoor and indoor channels.
type Pipeline struct {
	Outdoor *Channel
	Indoor  *Channel
}

// NewPipeline creates both channels using the same driver opener.
func NewPipeline(open Opener, log *zap.Logger) *Pipeline {
	return &Pipeline{
		Outdoor: NewChannel("outdoor", open, log.Named("sensors.outdoor")),
		Indoor:  NewChannel("indoor", open, log.Named("sensors.indoor")),
	}
}

// Step advances each channel whose sensor type is DS18B20, outdoor first.
// Channels of other types report OutcomeIdle.
func (p *Pipeline) Step(s *climate.Settings, st *climate.State, now time.Time) (outdoor, indoor Outcome) {
	outdoor, indoor = OutcomeIdle, OutcomeIdle
	if s.Sensors.Outdoor.Type == climate.SensorDS18B20 {
		outdoor = p.Outdoor.Step(s.Sensors.Outdoor, now, &st.Temperatures.Outdoor)
	}
	if s.Sensors.Indoor.Type == climate.SensorDS18B20 {
		indoor = p.Indoor.Step(s.Sensors.Indoor, now, &st.Temperatures.Indoor)
	}
	return outdoor, indoor
}

// Close releases both channels' drivers.
func (p *Pipeline) Close() error {
	return errors.Join(p.Outdoor.Close(), p.Indoor.Close())
}
