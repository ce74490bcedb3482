// Simple test utility for the GPS readers
package picaprs

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func GPSMonitorMain() {
	var configFile = pflag.StringP("config", "c", "", "Configuration file for the GPS settings.")
	var device = pflag.StringP("device", "d", "", "Serial port, overriding the config.")
	var baud = pflag.IntP("baud", "b", 0, "Serial speed, overriding the config.")
	var gpsdAddr = pflag.StringP("gpsd", "g", "", "Read from gpsd at host:port instead of a serial port.")
	var verbose = pflag.BoolP("verbose", "v", false, "Show every sentence.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Show what the tracker would see from the GPS.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

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

	if *device != "" {
		config.GPS.Source = GPS_SOURCE_SERIAL
		config.GPS.Device = *device
	}
	if *baud != 0 {
		config.GPS.Baud = *baud
	}
	if *gpsdAddr != "" {
		config.GPS.Source = GPS_SOURCE_GPSD
		config.GPS.GPSD = *gpsdAddr
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store = NewGPSStore()
	var updates = store.Updates()

	var errc = make(chan error, 1)
	if err := startGPS(ctx, config.GPS, store, errc); err != nil {
		logger.Fatal("GPS", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errc:
			logger.Fatal("GPS", "err", err)
		case gps := <-updates:
			if gps.HasFix() {
				fmt.Println(gps.String())
			} else {
				fmt.Println("Location currently not available.")
			}
		}
	}
}
