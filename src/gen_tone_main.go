package picaprs

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

/*-------------------------------------------------------------------
 *
 * Name:        GenToneMain
 *
 * Purpose:     Produce a steady mark or space tone for calibration,
 *		to a sound card, a .WAV file or the GPIO DAC.
 *
 * Description:	This is the same waveform the tracker's calibration
 *		mode produces, so a frequency counter on the output
 *		shows what the timer values really give.
 *
 *--------------------------------------------------------------------*/

func GenToneMain() {
	var configFile = pflag.StringP("config", "c", "", "Configuration file for modem and output settings.")
	var toneName = pflag.StringP("tone", "x", "mark", "Tone to generate: mark or space.")
	var duration = pflag.DurationP("duration", "t", 2*time.Second, "How long.  0 runs until interrupted.")
	var outputFile = pflag.StringP("output-file", "o", "", "Write to .wav file rather than the configured output.")
	var verbose = pflag.BoolP("verbose", "v", false, "Debug output.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Generate a calibration tone.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	var tone, err = ParseTone(*toneName)
	if err != nil {
		logger.Fatal("Tone", "err", err)
	}

	var config = DefaultConfig()
	if *configFile != "" {
		var c, loadErr = LoadConfig(*configFile)
		if loadErr != nil {
			logger.Fatal("Loading config", "err", loadErr)
		}
		config = *c
	}

	if *outputFile != "" {
		config.Output.Mode = OUTPUT_WAV
		config.Output.WAVFile = *outputFile
	}

	if err := genTone(config, tone, *duration); err != nil {
		logger.Fatal("Generating tone", "err", err)
	}
}

func genTone(config Config, tone Tone, duration time.Duration) error {
	var timing, err = config.ToneTiming()
	if err != nil {
		return err
	}

	station, err := config.StationConfig()
	if err != nil {
		return err
	}

	out, err := OpenOutput(config.Output, timing)
	if err != nil {
		return err
	}

	key, err := OpenRadioKey(config.PTT)
	if err != nil {
		out.Close() //nolint:errcheck
		return err
	}

	engine, err := NewTncEngine(station, out.Clock, out.DAC, WithToneTiming(timing))
	if err != nil {
		key.Close() //nolint:errcheck
		out.Close() //nolint:errcheck
		return err
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if duration > 0 && config.Output.Mode != OUTPUT_WAV {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	logger.Info("Generating tone", "tone", tone, "hz", timing.Frequency(tone), "duration", duration)

	var tx = NewTransmitter(engine, key)

	if config.Output.Mode == OUTPUT_WAV {
		// A file isn't paced by anything, so count samples instead of time.
		err = renderToneSamples(engine, out, tone, duration)
	} else {
		err = tx.CalibrateTone(ctx, tone)
	}

	var keyErr = key.Close()
	var outErr = out.Close()

	if err != nil {
		return err
	}
	if keyErr != nil {
		return keyErr
	}

	return outErr
}

// renderToneSamples produces exactly duration of tone, one sine cycle at a time.
func renderToneSamples(engine *TncEngine, out *Output, tone Tone, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("%w: a file needs a duration", ErrConfig)
	}

	var timing = engine.Timing()
	var cycles = int(duration.Seconds() * timing.Frequency(tone))

	var w waveform
	out.Clock.SetPeriod(timing.Period(tone))

	for range cycles * SINE_TABLE_LEN {
		if err := out.DAC.Put(w.next()); err != nil {
			return err
		}
		if err := out.Clock.Wait(); err != nil {
			return err
		}
	}

	return out.Flush()
}
