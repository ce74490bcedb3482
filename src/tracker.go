package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the tracker.
 *
 * Description:	At start up there is a short window for pressing
 *		'`' on the console.  If that happens, the engineering
 *		console runs.  Otherwise GPS updates drive the beacon
 *		schedule until interrupted.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func TrackerMain() {
	var configFile = pflag.StringP("config", "c", "", "Configuration file.  Default settings match the original tracker.")
	var verbose = pflag.BoolP("verbose", "v", false, "Debug output including frame dumps.")
	var console = pflag.Bool("console", false, "Go straight to the engineering console.")
	var calibrate = pflag.StringP("calibrate", "x", "", "Transmit a steady mark or space tone until interrupted.")
	var listDevices = pflag.Bool("list-devices", false, "List sound card output devices and exit.")
	var version = pflag.Bool("version", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - APRS tracker.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *version {
		printVersion(*verbose)
		return
	}

	if *listDevices {
		var names, err = ListAudioDevices()
		if err != nil {
			logger.Fatal("Listing audio devices", "err", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return
	}

	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	var config = DefaultConfig()
	if *configFile != "" {
		var c, err = LoadConfig(*configFile)
		if err != nil {
			logger.Fatal("Loading config", "err", err)
		}
		config = *c
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err = runTracker(ctx, config, trackerOptions{
		console:   *console,
		calibrate: *calibrate,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Tracker", "err", err)
	}
}

type trackerOptions struct {
	console   bool
	calibrate string
}

// tracker is everything opened for one run, so it can all be closed again.
type tracker struct {
	config  Config
	out     *Output
	key     RadioKey
	tx      *Transmitter
	metrics *Metrics
	txlog   *TxLog
	track   *TrackLog
	mqtt    *MQTTPublisher
}

func openTracker(config Config) (*tracker, error) {
	var t = &tracker{config: config}

	var station, err = config.StationConfig()
	if err != nil {
		return nil, err
	}

	timing, err := config.ToneTiming()
	if err != nil {
		return nil, err
	}

	t.out, err = OpenOutput(config.Output, timing)
	if err != nil {
		return nil, err
	}

	t.key, err = OpenRadioKey(config.PTT)
	if err != nil {
		t.Close() //nolint:errcheck
		return nil, err
	}

	engine, err := NewTncEngine(station, t.out.Clock, t.out.DAC, WithToneTiming(timing))
	if err != nil {
		t.Close() //nolint:errcheck
		return nil, err
	}

	logger.Info("Transmitter ready", "station", station.Source(), "timing", timing)

	t.metrics = NewMetrics()

	t.tx = NewTransmitter(engine, t.key)
	t.tx.Tail = config.PTT.Tail
	t.tx.Metrics = t.metrics

	if config.TxLog.Dir != "" {
		t.txlog, err = OpenTxLog(config.TxLog.Dir, config.TxLog.Pattern)
		if err != nil {
			t.Close() //nolint:errcheck
			return nil, err
		}
		t.tx.Observe(t.txlog)
	}

	if config.TrackLog.Path != "" {
		t.track, err = OpenTrackLog(config.TrackLog.Path)
		if err != nil {
			t.Close() //nolint:errcheck
			return nil, err
		}
	}

	t.mqtt, err = NewMQTTPublisher(config.MQTT)
	if err != nil {
		// The broker being down shouldn't keep the balloon quiet.
		logger.Warn("MQTT disabled", "err", err)
	}
	if t.mqtt != nil {
		t.tx.Observe(t.mqtt)
	}

	return t, nil
}

func (t *tracker) Close() error {
	var errs []error

	if t.mqtt != nil {
		t.mqtt.Close()
	}
	if t.track != nil {
		errs = append(errs, t.track.Close())
	}
	if t.txlog != nil {
		errs = append(errs, t.txlog.Close())
	}
	if t.key != nil {
		errs = append(errs, t.key.Close())
	}
	if t.out != nil {
		errs = append(errs, t.out.Close())
	}

	return errors.Join(errs...)
}

func runTracker(ctx context.Context, config Config, opts trackerOptions) error {
	var t, err = openTracker(config)
	if err != nil {
		return err
	}
	defer t.Close() //nolint:errcheck

	if config.Metrics.Listen != "" {
		go func() {
			if err := t.metrics.Serve(ctx, config.Metrics.Listen); err != nil {
				logger.Error("Metrics server", "err", err)
			}
		}()
	}

	if opts.calibrate != "" {
		var tone, err = ParseTone(opts.calibrate)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}

		logger.Info("Calibrating, interrupt to stop", "tone", tone)

		return t.tx.CalibrateTone(ctx, tone)
	}

	var in, out, closeConsole, consoleErr = openConsole(config.Console)
	if consoleErr != nil {
		return consoleErr
	}
	defer closeConsole() //nolint:errcheck

	var fifo = NewFIFO(CONSOLE_FIFO_SIZE)
	go func() {
		if err := fifo.Fill(ctx, in); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Console input", "err", err)
		}
	}()

	var consoleMode = opts.console
	if !consoleMode {
		fmt.Fprintf(out, "Press '%c' to enter console mode\r\n", CONSOLE_ENTER)
		consoleMode = WaitForConsole(ctx, fifo, config.Console.Wait)
	}

	if consoleMode {
		logger.Info("Console mode")
		return NewConsole(fifo, out, t.tx).Run(ctx)
	}

	return t.runBeacons(ctx)
}

// openConsole returns stdin/stdout, or a serial port if one is configured.
func openConsole(cfg ConsoleConfig) (io.Reader, io.Writer, func() error, error) {
	if cfg.Device == "" {
		return os.Stdin, os.Stdout, func() error { return nil }, nil
	}

	var port, err = OpenSerialPort(cfg.Device, cfg.Baud)
	if err != nil {
		return nil, nil, nil, err
	}

	return port, port, port.Close, nil
}

func (t *tracker) runBeacons(ctx context.Context) error {
	var store = NewGPSStore()
	var updates = store.Updates()

	var errc = make(chan error, 1)
	if err := startGPS(ctx, t.config.GPS, store, errc); err != nil {
		return err
	}

	var station = t.tx.Engine.Config()

	var beacons = NewBeaconScheduler(t.tx, station.Dest)
	beacons.PositionSlots = t.config.Beacon.PositionSlots
	beacons.StatusSlots = t.config.Beacon.StatusSlots
	beacons.StatusPrefix = t.config.Beacon.StatusPrefix
	beacons.StatusComment = t.config.Beacon.StatusComment
	beacons.MicE = t.config.MicEOptions()
	beacons.Metrics = t.metrics
	if t.track != nil {
		beacons.Track = t.track
	}

	logger.Info("GPS mode", "source", t.config.GPS.Source)

	var beaconErr = make(chan error, 1)
	go func() {
		beaconErr <- beacons.Run(ctx, updates)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("GPS: %w", err)
	case err := <-beaconErr:
		return err
	}
}

// startGPS starts the configured reader.  Its terminal error arrives on errc.
func startGPS(ctx context.Context, cfg GPSConfig, store *GPSStore, errc chan<- error) error {
	switch cfg.Source {
	case GPS_SOURCE_SERIAL:
		var port, err = OpenSerialPort(cfg.Device, cfg.Baud)
		if err != nil {
			return err
		}

		go func() {
			<-ctx.Done()
			port.Close() //nolint:errcheck
		}()

		go func() {
			errc <- ReadNMEA(ctx, port, store)
		}()

	case GPS_SOURCE_GPSD:
		var src = NewGPSDSource(cfg.GPSD, store)

		go func() {
			errc <- src.Run(ctx)
		}()

	default:
		logger.Warn("No GPS source configured; nothing will be sent")
	}

	return nil
}
