//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the contacts from the Linux GPIO character device.
type RealReader struct {
	chip   *gpiocdev.Chip
	demand *gpiocdev.Line
	fault  *gpiocdev.Line
}

// NewRealReader requests both pins as pulled-down inputs on gpiochip0.
func NewRealReader(pinDemand, pinFault int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	demand, err := chip.RequestLine(pinDemand, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request demand pin %d: %w", pinDemand, err)
	}

	fault, err := chip.RequestLine(pinFault, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		demand.Close()
		chip.Close()
		return nil, fmt.Errorf("request fault pin %d: %w", pinFault, err)
	}

	return &RealReader{chip: chip, demand: demand, fault: fault}, nil
}

// Read returns the logical contact states.
func (r *RealReader) Read() (Contacts, error) {
	demandRaw, err := r.demand.Value()
	if err != nil {
		return Contacts{}, fmt.Errorf("read demand pin: %w", err)
	}
	faultRaw, err := r.fault.Value()
	if err != nil {
		return Contacts{}, fmt.Errorf("read fault pin: %w", err)
	}

	return Contacts{
		HeatingDemand: demandRaw == 0,
		Fault:         faultRaw == 0,
	}, nil
}

// Close returns both pins to pulled-down inputs (the Pi boot default) and
// releases them.
func (r *RealReader) Close() error {
	var errs []error
	for name, line := range map[string]*gpiocdev.Line{"demand": r.demand, "fault": r.fault} {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
