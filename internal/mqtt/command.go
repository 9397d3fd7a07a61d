package mqtt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// CommandKind names what a command changes. It is the last topic segment
// under TopicCommandPrefix.
type CommandKind string

const (
	CommandTarget  CommandKind = "target"  // indoor target, °C
	CommandTurbo   CommandKind = "turbo"   // ON/OFF
	CommandHeating CommandKind = "heating" // ON/OFF
	CommandTuning  CommandKind = "tuning"  // OFF, pid, equitherm
	CommandOutdoor CommandKind = "outdoor" // external outdoor reading, °C
	CommandIndoor  CommandKind = "indoor"  // external indoor reading, °C
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadPayload     = errors.New("bad command payload")
)

// Command is a parsed operator command.
type Command struct {
	Kind     CommandKind
	Value    float64
	On       bool
	Strategy climate.TuningStrategy
}

// ParseCommand decodes a message received on a command topic.
func ParseCommand(topic string, payload []byte) (Command, error) {
	kind := CommandKind(strings.TrimPrefix(topic, TopicCommandPrefix))
	if kind == CommandKind(topic) {
		return Command{}, fmt.Errorf("%w: topic %q", ErrUnknownCommand, topic)
	}
	body := strings.TrimSpace(string(payload))
	cmd := Command{Kind: kind}

	var err error
	switch kind {
	case CommandTarget, CommandOutdoor, CommandIndoor:
		cmd.Value, err = parseTemperature(body)
	case CommandTurbo, CommandHeating:
		cmd.On, err = parseSwitch(body)
	case CommandTuning:
		cmd.On, cmd.Strategy, err = parseTuning(body)
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, kind)
	}
	if err != nil {
		return Command{}, fmt.Errorf("%s: %w", kind, err)
	}
	return cmd, nil
}

func parseTemperature(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a temperature", ErrBadPayload, s)
	}
	if v < -60 || v > 120 {
		return 0, fmt.Errorf("%w: %g out of range", ErrBadPayload, v)
	}
	return v, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "ON", "TRUE", "1":
		return true, nil
	case "OFF", "FALSE", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not ON/OFF", ErrBadPayload, s)
}

func parseTuning(s string) (bool, climate.TuningStrategy, error) {
	switch strings.ToLower(s) {
	case "off", "false", "0":
		return false, climate.TuneEquitherm, nil
	case "pid":
		return true, climate.TunePID, nil
	case "equitherm":
		return true, climate.TuneEquitherm, nil
	}
	return false, 0, fmt.Errorf("%w: %q is not off, pid or equitherm", ErrBadPayload, s)
}
