// Command boiler-climate reads outdoor and indoor temperatures, computes the
// boiler flow setpoint and publishes the climate state to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sweeney/boiler-climate/internal/climate"
	"github.com/sweeney/boiler-climate/internal/config"
	"github.com/sweeney/boiler-climate/internal/contacts"
	"github.com/sweeney/boiler-climate/internal/control"
	"github.com/sweeney/boiler-climate/internal/gpio"
	"github.com/sweeney/boiler-climate/internal/logging"
	"github.com/sweeney/boiler-climate/internal/metrics"
	"github.com/sweeney/boiler-climate/internal/mqtt"
	"github.com/sweeney/boiler-climate/internal/regulator"
	"github.com/sweeney/boiler-climate/internal/sensor"
	"github.com/sweeney/boiler-climate/internal/status"
	"github.com/sweeney/boiler-climate/internal/watchdog"
	"github.com/sweeney/boiler-climate/internal/web"
)

type options struct {
	settingsPath      string
	sensorInterval    time.Duration
	regulatorInterval time.Duration
	poll              time.Duration
	debounce          time.Duration
	heartbeat         time.Duration
	broker            string
	httpAddr          string
	pinDemand         int
	pinFault          int
	noGPIO            bool
	printSettings     bool
	w1Root            string
}

func main() {
	var opts options
	pflag.StringVar(&opts.settingsPath, "settings", "/var/lib/boiler-climate/settings.yaml", "Settings file (YAML)")
	pflag.DurationVar(&opts.sensorInterval, "sensor-interval", time.Second, "Sensor pipeline step interval")
	pflag.DurationVar(&opts.regulatorInterval, "regulator-interval", 10*time.Second, "Regulation cycle interval")
	pflag.DurationVar(&opts.poll, "poll", 100*time.Millisecond, "GPIO polling interval")
	pflag.DurationVar(&opts.debounce, "debounce", contacts.DefaultDebounce, "Contact debounce duration")
	pflag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	pflag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	pflag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	pflag.IntVar(&opts.pinDemand, "pin-demand", gpio.PinDemand, "BCM pin number of the heating demand contact")
	pflag.IntVar(&opts.pinFault, "pin-fault", gpio.PinFault, "BCM pin number of the boiler fault contact")
	pflag.BoolVar(&opts.noGPIO, "no-gpio", false, "Do not read boiler contacts; heating is switched over MQTT")
	pflag.BoolVar(&opts.printSettings, "print-settings", false, "Print the effective settings and exit")
	pflag.StringVar(&opts.w1Root, "w1-root", sensor.DefaultW1Root, "1-Wire sysfs device directory")
	logLevel := pflag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := pflag.String("log-format", "json", "Log format (json, console)")
	pflag.Parse()

	log, err := logging.New(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(opts, log); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

func run(opts options, log *zap.Logger) error {
	store := config.NewStore(opts.settingsPath)
	settings, err := store.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.printSettings {
		out, err := config.Marshal(settings)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	var reader gpio.Reader
	if !opts.noGPIO {
		r, err := gpio.NewRealReader(opts.pinDemand, opts.pinFault)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer r.Close()
		reader = r
	}

	pipeline := sensor.NewPipeline(sensor.NewW1Opener(opts.w1Root), log)
	defer pipeline.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tracker := status.NewTracker(time.Now(), status.Config{
		SensorIntervalMs:    opts.sensorInterval.Milliseconds(),
		RegulatorIntervalMs: opts.regulatorInterval.Milliseconds(),
		Broker:              opts.broker,
		HTTPAddr:            opts.httpAddr,
		SettingsPath:        store.Path(),
		GPIO:                reader != nil,
	})

	will := mqtt.SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "connection lost", Retained: true}
	publisher, err := mqtt.NewRealPublisher(opts.broker, clientID(), will, log)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	d := &daemon{
		log:       log,
		settings:  settings,
		store:     store,
		pipeline:  pipeline,
		engine:    regulator.New(control.NewController(time.Now), log),
		watchdog:  watchdog.New(watchdog.DefaultThreshold, log),
		metrics:   metrics.New(registry),
		tracker:   tracker,
		publisher: publisher,
		gpio:      reader,
		debouncer: contacts.NewDebouncer(opts.debounce),
		heartbeat: opts.heartbeat,
		now:       time.Now,
	}
	d.seed()

	start := time.Now()
	d.lastHeartbeat = start
	d.publishLifecycle(start, "STARTUP", "")

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, registry)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", zap.String("addr", opts.httpAddr))
	}

	log.Info("started",
		zap.Duration("sensor_interval", opts.sensorInterval),
		zap.Duration("regulator_interval", opts.regulatorInterval),
		zap.Duration("poll", opts.poll),
		zap.Duration("debounce", opts.debounce),
		zap.Duration("heartbeat", opts.heartbeat),
		zap.String("broker", opts.broker),
		zap.String("settings", store.Path()),
		zap.Bool("gpio", reader != nil))

	var pollTick <-chan time.Time
	if reader != nil {
		pollTicker := time.NewTicker(opts.poll)
		defer pollTicker.Stop()
		pollTick = pollTicker.C
	}
	sensorTicker := time.NewTicker(opts.sensorInterval)
	defer sensorTicker.Stop()
	regulatorTicker := time.NewTicker(opts.regulatorInterval)
	defer regulatorTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(pollTick, sensorTicker.C, regulatorTicker.C, sigCh)
}

func clientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "boiler-climate"
	}
	return "boiler-climate-" + host
}

// settingsSaver persists settings after a mutation.
type settingsSaver interface {
	Save(climate.Settings) error
}

// broker is the MQTT surface the run loop needs.
type broker interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
	mqtt.CommandSource
}

// daemon owns the settings and the shared state. Every field is touched only
// from the runLoop goroutine.
type daemon struct {
	log       *zap.Logger
	settings  climate.Settings
	state     climate.State
	store     settingsSaver
	pipeline  *sensor.Pipeline
	engine    *regulator.Engine
	watchdog  *watchdog.Watchdog
	metrics   *metrics.Metrics
	tracker   *status.Tracker
	publisher broker
	gpio      gpio.Reader // nil with --no-gpio
	debouncer *contacts.Debouncer
	heartbeat time.Duration
	now       func() time.Time

	lastHeartbeat time.Time

	published bool
	lastState climate.State
	lastPath  regulator.Path
}

// seed sets the state before the first cycle. Without contacts there is no
// demand signal, so heating starts enabled and is switched over MQTT.
func (d *daemon) seed() {
	d.state.HeatingEnabled = d.gpio == nil
}

func (d *daemon) runLoop(pollTick, sensorTick, regulatorTick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			d.shutdown(s)
			return nil
		case <-pollTick:
			d.poll()
		case <-sensorTick:
			d.sense()
		case <-regulatorTick:
			d.regulate()
		case cmd := <-d.publisher.Commands():
			d.apply(cmd)
		}
	}
}

// poll samples the boiler contacts. Levels reach the state once debounced.
func (d *daemon) poll() {
	now := d.now()
	c, err := d.gpio.Read()
	if err != nil {
		d.log.Warn("gpio read error", zap.Error(err))
		return
	}
	for _, tr := range d.debouncer.Process(c, now) {
		d.log.Info("contact transition", zap.String("kind", string(tr.Kind)))
	}
	if d.debouncer.Baselined() {
		d.applyContacts(d.debouncer.Stable())
	}
}

// sense advances the sensor pipeline.
func (d *daemon) sense() {
	now := d.now()
	outdoor, indoor := d.pipeline.Step(&d.settings, &d.state, now)
	d.metrics.ObserveSensors(outdoor, indoor)
}

func (d *daemon) applyContacts(c gpio.Contacts) {
	if c.HeatingDemand != d.state.HeatingEnabled {
		d.log.Info("heating demand changed", zap.Bool("enabled", c.HeatingDemand))
		d.state.HeatingEnabled = c.HeatingDemand
	}
	if c.Fault != d.state.Fault {
		if c.Fault {
			d.log.Warn("boiler fault reported")
		} else {
			d.log.Info("boiler fault cleared")
		}
		d.state.Fault = c.Fault
	}
}

// regulate runs one regulation cycle and publishes what changed.
func (d *daemon) regulate() {
	now := d.now()
	connected := d.publisher.IsConnected()
	d.tracker.SetMQTTConnected(connected)
	d.metrics.ObserveConnected(connected)
	emergencyChanged := d.watchdog.Observe(connected, now, &d.settings, &d.state)

	res := d.engine.Step(&d.settings, &d.state)
	d.metrics.ObserveCycle(res)
	if res.SettingsChanged {
		d.save()
	}

	running, tunerState := d.engine.Tuning()
	d.tracker.Update(d.state, d.settings, status.Regulation{
		Path:         string(res.Path),
		TunerRunning: running,
		TunerState:   tunerState.String(),
	})
	d.metrics.ObserveState(d.state)

	if emergencyChanged {
		reason := "off"
		if d.state.Emergency {
			reason = "on"
		}
		d.publishLifecycle(now, "EMERGENCY", reason)
	}
	d.publishState(now, res.Path)
	d.checkHeartbeat(now)
}

func (d *daemon) checkHeartbeat(now time.Time) {
	if d.heartbeat <= 0 || now.Sub(d.lastHeartbeat) < d.heartbeat {
		return
	}
	d.lastHeartbeat = now
	counts := d.debouncer.Counts()
	d.log.Info("heartbeat",
		zap.Duration("uptime", d.tracker.Snapshot().Uptime()),
		zap.Int("demand_on", counts.DemandOn),
		zap.Int("demand_off", counts.DemandOff),
		zap.Int("fault_on", counts.FaultOn),
		zap.Int("fault_off", counts.FaultOff))
	d.publishLifecycle(now, "HEARTBEAT", "")
}

func (d *daemon) publishState(now time.Time, path regulator.Path) {
	if d.published && d.lastState == d.state && d.lastPath == path {
		return
	}
	err := d.publisher.PublishState(mqtt.StateEvent{Timestamp: now, State: d.state, Path: string(path)})
	if err != nil {
		// Retried on the next cycle.
		d.log.Warn("state publish error", zap.Error(err))
		return
	}
	d.published = true
	d.lastState = d.state
	d.lastPath = path
}

func (d *daemon) publishLifecycle(now time.Time, event, reason string) {
	snap := d.tracker.Snapshot()
	err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		d.log.Warn("system event publish error", zap.String("event", event), zap.Error(err))
		return
	}
	d.log.Info("published system event", zap.String("event", event), zap.String("reason", reason))
}

func (d *daemon) save() {
	err := d.store.Save(d.settings)
	d.metrics.ObserveSave(err)
	if err != nil {
		d.log.Error("could not save settings", zap.Error(err))
		return
	}
	d.log.Info("settings saved")
}

// apply executes an operator command between cycles.
func (d *daemon) apply(cmd mqtt.Command) {
	log := d.log.With(zap.String("command", string(cmd.Kind)))
	switch cmd.Kind {
	case mqtt.CommandTarget:
		d.settings.Heating.Target = cmd.Value
		d.save()
	case mqtt.CommandTurbo:
		d.settings.Heating.Turbo = cmd.On
		d.save()
	case mqtt.CommandHeating:
		if d.gpio != nil {
			log.Warn("ignored, heating is driven by the demand contact")
			return
		}
		d.state.HeatingEnabled = cmd.On
	case mqtt.CommandTuning:
		d.state.Tuning = climate.Tuning{Enabled: cmd.On, Strategy: cmd.Strategy}
	case mqtt.CommandOutdoor:
		if d.settings.Sensors.Outdoor.Type != climate.SensorManual {
			log.Warn("ignored, outdoor sensor is not manual", zap.Stringer("type", d.settings.Sensors.Outdoor.Type))
			return
		}
		d.state.Temperatures.Outdoor = cmd.Value
	case mqtt.CommandIndoor:
		if d.settings.Sensors.Indoor.Type != climate.SensorManual {
			log.Warn("ignored, indoor sensor is not manual", zap.Stringer("type", d.settings.Sensors.Indoor.Type))
			return
		}
		d.state.Temperatures.Indoor = cmd.Value
	default:
		log.Warn("ignored, unknown command")
		return
	}
	log.Info("command applied", zap.Float64("value", cmd.Value), zap.Bool("on", cmd.On))
}

func (d *daemon) shutdown(s os.Signal) {
	d.log.Info("shutting down", zap.Stringer("signal", s))
	reason := "UNKNOWN"
	switch s {
	case syscall.SIGINT:
		reason = "SIGINT"
	case syscall.SIGTERM:
		reason = "SIGTERM"
	}
	d.tracker.SetMQTTConnected(d.publisher.IsConnected())
	d.publishLifecycle(d.now(), "SHUTDOWN", reason)
}
