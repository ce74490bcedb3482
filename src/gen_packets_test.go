package picaprs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPflag(args []string) {
	os.Args = args
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
}

func TestBuiltinPackets(t *testing.T) {
	var packets = builtinPackets(DefaultStationConfig())
	require.Len(t, packets, 3)

	var dest, info = MicEEncode(&builtinFix)
	assert.Equal(t, dest, packets[0].dest)
	assert.Equal(t, info, packets[0].message)
	assert.Equal(t, ">ANSR 6561' 0.9dop 10trk www.ansr.org\r", packets[1].message)
	assert.Equal(t, CONSOLE_TEST_PACKET, packets[2].message)
}

func TestReadPackets(t *testing.T) {
	var input = strings.Join([]string{
		"# comment",
		"",
		"AD7ZJ-11>APRS,WIDE2-2:>Testing",
		"N0CALL>BEACON:hello",
	}, "\n")

	var packets, err = readPackets(strings.NewReader(input), DefaultStationConfig())
	require.NoError(t, err)
	require.Len(t, packets, 2)

	assert.Equal(t, ">Testing", packets[0].message)
	assert.Len(t, packets[0].station.Relays, 1)
	assert.Equal(t, "BEACON", packets[1].dest.String())
	assert.Empty(t, packets[1].station.Relays)
	assert.Equal(t, 53, packets[1].station.TxDelay)

	_, err = readPackets(strings.NewReader("garbage\n"), DefaultStationConfig())
	require.ErrorIs(t, err, ErrBadFrame)
}

func TestRenderPackets(t *testing.T) {
	var sink = &mockSink{}
	var timing = DefaultToneTiming()
	var out = NewPCMOutput(sink, timing, 8000, 50)

	var station = DefaultStationConfig()
	station.TxDelay = 10

	var packets = []genPacket{{station: station, dest: station.Dest, message: ">hi", kind: KIND_TEXT}}

	require.NoError(t, renderPackets(context.Background(), out, timing, packets, 2, 100*time.Millisecond))

	var frame, err = EncodeFrame(&station, ">hi", station.Dest)
	require.NoError(t, err)

	var bits = len(runEncoder(t, frame, station.TxDelay))
	var perPacket = float64(bits)/timing.BaudRate()*8000 + 800

	assert.InDelta(t, 2*perPacket, float64(len(sink.samples)), 20)
}

func TestGenPacketsMain(t *testing.T) {
	var dir = t.TempDir()
	var wav = filepath.Join(dir, "out.wav")
	var input = filepath.Join(dir, "frames.txt")

	require.NoError(t, os.WriteFile(input, []byte("AD7ZJ-11>APRS,WIDE2-2:>Testing\n"), 0600))

	setupPflag([]string{"gen_aprs", "-o", wav, "-r", "22050", "-t", "5", "-g", "0s", input})
	GenPacketsMain()

	var rate, samples, err = ReadWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, 22050, rate)
	assert.NotEmpty(t, samples)

	setupPflag([]string{"gen_aprs", "-o", wav, "-N", "2"})
	GenPacketsMain()

	var _, builtin, builtinErr = ReadWAV(wav)
	require.NoError(t, builtinErr)
	assert.Greater(t, len(builtin), len(samples))
}

func Test_valueOr(t *testing.T) {
	assert.Equal(t, 1200, valueOr(0, 1200))
	assert.Equal(t, 300, valueOr(300, 1200))
}
