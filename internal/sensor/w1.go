package sensor

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// DefaultW1Root is where the Linux w1 subsystem exposes its devices.
const DefaultW1Root = "/sys/bus/w1/devices"

// ds18b20Family is the 1-Wire family code prefix of DS18B20 devices.
const ds18b20Family = "28-"

var (
	ErrNoDevice        = errors.New("w1: no ds18b20 device found")
	ErrAmbiguousDevice = errors.New("w1: several ds18b20 devices found, set sensor device id")
	errCRC             = errors.New("w1: crc check failed")
)

// conversionLatency returns the DS18B20 conversion time for a resolution.
func conversionLatency(bits int) time.Duration {
	switch bits {
	case 9:
		return 94 * time.Millisecond
	case 10:
		return 188 * time.Millisecond
	case 11:
		return 375 * time.Millisecond
	}
	return 750 * time.Millisecond
}

type w1Result struct {
	celsius float64
	err     error
}

// W1Driver reads a DS18B20 through the kernel w1_therm driver. The kernel
// read blocks for the whole conversion, so it runs on its own goroutine and
// completion is polled.
type W1Driver struct {
	dir        string
	resolution int

	done     chan w1Result
	inflight bool
	ready    bool
	last     w1Result
}

// NewW1Opener returns an Opener that resolves devices under root.
// An empty root means DefaultW1Root.
func NewW1Opener(root string) Opener {
	if root == "" {
		root = DefaultW1Root
	}
	return func(cfg climate.SensorSettings) (Driver, error) {
		dir, err := findW1Device(root, cfg.Device)
		if err != nil {
			return nil, err
		}
		return &W1Driver{
			dir:        dir,
			resolution: Resolution,
			done:       make(chan w1Result, 1),
		}, nil
	}
}

func findW1Device(root, id string) (string, error) {
	if id != "" {
		dir := filepath.Join(root, id)
		if _, err := os.Stat(filepath.Join(dir, "w1_slave")); err != nil {
			return "", fmt.Errorf("w1: device %s: %w", id, err)
		}
		return dir, nil
	}

	matches, err := filepath.Glob(filepath.Join(root, ds18b20Family+"*"))
	if err != nil {
		return "", fmt.Errorf("w1: list devices: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", ErrNoDevice
	case 1:
		return matches[0], nil
	}
	sort.Strings(matches)
	return "", fmt.Errorf("%w: %s", ErrAmbiguousDevice, strings.Join(matches, ", "))
}

// SetResolution writes the resolution attribute. Kernels without the
// attribute keep the device default of 12 bits.
func (d *W1Driver) SetResolution(bits int) error {
	d.resolution = bits
	err := os.WriteFile(filepath.Join(d.dir, "resolution"), []byte(strconv.Itoa(bits)), 0o644)
	if err != nil {
		return fmt.Errorf("w1: set resolution: %w", err)
	}
	return nil
}

// RequestConversion starts a background read unless one is already running.
func (d *W1Driver) RequestConversion() error {
	d.ready = false
	if d.inflight {
		return nil
	}
	d.inflight = true
	go func() {
		v, err := readW1Slave(filepath.Join(d.dir, "w1_slave"))
		d.done <- w1Result{celsius: v, err: err}
	}()
	return nil
}

// ConversionLatency returns the datasheet conversion time.
func (d *W1Driver) ConversionLatency() time.Duration {
	return conversionLatency(d.resolution)
}

// ConversionComplete collects a finished background read without blocking.
func (d *W1Driver) ConversionComplete() bool {
	if d.ready {
		return true
	}
	select {
	case r := <-d.done:
		d.inflight = false
		d.ready = true
		d.last = r
		return true
	default:
		return false
	}
}

// ReadCelsius returns the last completed reading.
func (d *W1Driver) ReadCelsius() (float64, error) {
	if d.last.err != nil {
		return DisconnectedC, d.last.err
	}
	return d.last.celsius, nil
}

// Close is a no-op; a running read finishes into the buffered channel.
func (d *W1Driver) Close() error {
	return nil
}

// readW1Slave parses the two-line w1_slave format:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func readW1Slave(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return DisconnectedC, fmt.Errorf("w1: open: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return DisconnectedC, fmt.Errorf("w1: read: %w", err)
	}
	if len(lines) < 2 {
		return DisconnectedC, fmt.Errorf("w1: short read (%d lines)", len(lines))
	}
	if !strings.HasSuffix(lines[0], "YES") {
		return DisconnectedC, errCRC
	}
	i := strings.LastIndex(lines[1], "t=")
	if i < 0 {
		return DisconnectedC, fmt.Errorf("w1: no temperature in %q", lines[1])
	}
	milli, err := strconv.Atoi(lines[1][i+2:])
	if err != nil {
		return DisconnectedC, fmt.Errorf("w1: parse temperature: %w", err)
	}
	return float64(milli) / 1000, nil
}
