package picaprs

/*------------------------------------------------------------------
 *
 * Name:	gen_aprs
 *
 * Purpose:	Test program for generating tracker frames.
 *
 * Description:	Frames are built and modulated exactly as the
 *		tracker would, then written to a .WAV file or played
 *		through a sound card.  Useful for checking a decoder
 *		against the tracker's output without a radio.
 *
 * Examples:	Built-in position, status and test frames:
 *
 *			gen_aprs -o z1.wav
 *			atest z1.wav
 *
 *		User-defined content:
 *
 *			echo "AD7ZJ-11>APRS,WIDE2-2:>Testing" | gen_aprs -o z.wav -
 *
 *		Straight to the default sound card:
 *
 *			gen_aprs -d default
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

const DEFAULT_SAMPLES_PER_SEC = 44100

// builtinFix is where the console test packet says we are.
var builtinFix = GPSData{
	Hours: 15, Minutes: 51, Seconds: 46,
	Day: 1, Month: 6, Year: 2024,
	Latitude:    300083333,
	Longitude:   -1000001667,
	Altitude:    200000,
	Speed:       123,
	Heading:     27000,
	DOP:         9,
	TrackedSats: 10,
	Fix:         Fix3D,
}

type genPacket struct {
	station StationConfig
	dest    Callsign
	message string
	kind    string
}

func builtinPackets(station StationConfig) []genPacket {
	var dest, info = MicEEncode(&builtinFix)

	return []genPacket{
		{station: station, dest: dest, message: info, kind: KIND_POSITION},
		{station: station, dest: station.Dest, message: StatusText(&builtinFix, DEFAULT_STATUS_PREFIX, DEFAULT_STATUS_COMMENT), kind: KIND_STATUS},
		{station: station, dest: station.Dest, message: CONSOLE_TEST_PACKET, kind: KIND_TEST},
	}
}

// readPackets reads monitor format lines, one frame per line.
func readPackets(r io.Reader, base StationConfig) ([]genPacket, error) {
	var packets []genPacket

	var scanner = bufio.NewScanner(r)
	for scanner.Scan() {
		var line = scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		var station, dest, message, err = ParseMonitorFormat(line, base)
		if err != nil {
			return nil, err
		}

		packets = append(packets, genPacket{station: station, dest: dest, message: message, kind: KIND_TEXT})
	}

	return packets, scanner.Err()
}

/*------------------------------------------------------------------
 *
 * Name:	renderPackets
 *
 * Purpose:	Modulate each packet, count times over, with gap of
 *		silence after each one.
 *
 *------------------------------------------------------------------*/

func renderPackets(ctx context.Context, out *Output, timing ToneTiming, packets []genPacket, count int, gap time.Duration) error {
	for range count {
		for _, p := range packets {
			var engine, err = NewTncEngine(p.station, out.Clock, out.DAC, WithToneTiming(timing))
			if err != nil {
				return err
			}

			var tx = NewTransmitter(engine, NullKey{})
			tx.Tail = 0

			if err := tx.Transmit(ctx, Packet{Kind: p.kind, Message: p.message, Dest: p.dest}); err != nil {
				return err
			}

			if err := out.Silence(gap); err != nil {
				return err
			}
		}
	}

	return out.Flush()
}

func GenPacketsMain() {
	var configFile = pflag.StringP("config", "c", "", "Configuration file for station and modem settings.")
	var outputFile = pflag.StringP("output-file", "o", "", "Send output to .wav file.")
	var device = pflag.StringP("device", "d", "", "Play through this sound card instead.  \"default\" for the default device.")
	var audioSampleRate = pflag.IntP("audio-sample-rate", "r", DEFAULT_SAMPLES_PER_SEC, "Audio sample rate.")
	var amplitude = pflag.IntP("amplitude", "a", 50, "Signal amplitude in range of 1 - 100%.")
	var markFrequency = pflag.IntP("mark", "m", 0, "Mark frequency.  Default is the tracker's timer setting.")
	var spaceFrequency = pflag.IntP("space", "s", 0, "Space frequency.")
	var bitrate = pflag.IntP("bitrate", "B", 0, "Bits / second for data.")
	var txdelay = pflag.IntP("txdelay", "t", 0, "Flags before each frame.  Default from config.")
	var packetCount = pflag.IntP("packet-count", "N", 1, "Generate specified number of copies of the frames.")
	var gap = pflag.DurationP("gap", "g", 500*time.Millisecond, "Silence after each frame.")
	var verbose = pflag.BoolP("verbose", "v", false, "Debug output including frame dumps.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Generate audio for tracker frames.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [file]\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "An optional file may be specified to provide messages other than\n")
		fmt.Fprintf(os.Stderr, "the built-in position, status and test frames.  The format should\n")
		fmt.Fprintf(os.Stderr, "correspond to the standard packet monitoring representation such as,\n\n")
		fmt.Fprintf(os.Stderr, "    AD7ZJ-11>APRS,WIDE2-2:>Testing\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Use - to read from stdin.\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
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

	if *txdelay > 0 {
		config.Station.TxDelay = *txdelay
	}

	var station, err = config.StationConfig()
	if err != nil {
		logger.Fatal("Station", "err", err)
	}

	var timing ToneTiming
	if *markFrequency != 0 || *spaceFrequency != 0 || *bitrate != 0 {
		config.Modem.MarkHz = valueOr(*markFrequency, 1200)
		config.Modem.SpaceHz = valueOr(*spaceFrequency, 2200)
		config.Modem.Baud = valueOr(*bitrate, 1200)
	}
	timing, err = config.ToneTiming()
	if err != nil {
		logger.Fatal("Modem", "err", err)
	}

	var packets []genPacket

	if len(pflag.Args()) > 0 {
		if len(pflag.Args()) > 1 {
			logger.Warn("File(s) beyond the first are ignored")
		}

		var arg = pflag.Args()[0]
		var input io.Reader = os.Stdin

		if arg != "-" {
			var f, openErr = os.Open(arg) //nolint:gosec // We expect to read from a user-supplied file from CLI
			if openErr != nil {
				logger.Fatal("Can't open input", "file", arg, "err", openErr)
			}
			defer f.Close()
			input = f
		}

		packets, err = readPackets(input, station)
		if err != nil {
			logger.Fatal("Reading frames", "err", err)
		}
	} else {
		logger.Info("Built in frames")
		packets = builtinPackets(station)
	}

	var out *Output
	switch {
	case *device != "":
		var sink, openErr = OpenPortAudio(*device, *audioSampleRate)
		if openErr != nil {
			logger.Fatal("Audio device", "err", openErr)
		}
		out = NewPCMOutput(sink, timing, *audioSampleRate, *amplitude)
	case *outputFile != "":
		var sink, openErr = CreateWAV(*outputFile, *audioSampleRate)
		if openErr != nil {
			logger.Fatal("Output file", "err", openErr)
		}
		out = NewPCMOutput(sink, timing, *audioSampleRate, *amplitude)
	default:
		fmt.Fprintf(os.Stderr, "ERROR: The -o output file or -d device option must be specified.\n")
		pflag.Usage()
		os.Exit(1)
	}

	var renderErr = renderPackets(context.Background(), out, timing, packets, *packetCount, *gap)
	var closeErr = out.Close()

	if renderErr != nil {
		logger.Fatal("Generating frames", "err", renderErr)
	}
	if closeErr != nil {
		logger.Fatal("Closing output", "err", closeErr)
	}
}

func valueOr(v int, def int) int {
	if v == 0 {
		return def
	}

	return v
}
