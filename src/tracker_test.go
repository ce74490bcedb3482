package picaprs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrackerConfig(t *testing.T) Config {
	t.Helper()

	var dir = t.TempDir()

	var config = DefaultConfig()
	config.Output.Mode = OUTPUT_WAV
	config.Output.WAVFile = filepath.Join(dir, "tx.wav")
	config.Output.SampleRate = 8000
	config.PTT.Tail = 0
	config.GPS.Source = GPS_SOURCE_NONE
	config.Console.Wait = 10 * time.Millisecond
	config.TxLog.Dir = filepath.Join(dir, "txlog")
	config.TrackLog.Path = filepath.Join(dir, "track.db")

	return config
}

func TestOpenTracker(t *testing.T) {
	var config = testTrackerConfig(t)

	var tr, err = openTracker(config)
	require.NoError(t, err)

	assert.Nil(t, tr.mqtt)
	require.Len(t, tr.tx.Observers, 1)

	require.NoError(t, tr.tx.Transmit(context.Background(), Packet{Kind: KIND_TEST, Message: CONSOLE_TEST_PACKET, Dest: MustParseCallsign("APRS")}))
	require.NoError(t, tr.Close())

	var entries, readErr = os.ReadDir(config.TxLog.Dir)
	require.NoError(t, readErr)
	require.Len(t, entries, 1)

	var rows = readCSV(t, filepath.Join(config.TxLog.Dir, entries[0].Name()))
	require.Len(t, rows, 2)
	assert.Equal(t, "AD7ZJ-11", rows[1][3])

	var _, samples, wavErr = ReadWAV(config.Output.WAVFile)
	require.NoError(t, wavErr)
	assert.NotEmpty(t, samples)
}

func TestOpenTracker_MQTTDown(t *testing.T) {
	var config = testTrackerConfig(t)
	config.MQTT.Enabled = true
	config.MQTT.Broker = "tcp://127.0.0.1:1"

	var tr, err = openTracker(config)
	if err == nil {
		defer tr.Close()
	}

	require.NoError(t, err, "a missing broker is not fatal")
}

func TestOpenTracker_BadOutput(t *testing.T) {
	var config = testTrackerConfig(t)
	config.Output.WAVFile = filepath.Join(t.TempDir(), "missing", "tx.wav")

	var _, err = openTracker(config)
	require.Error(t, err)
}

func TestRunTracker_Beacons(t *testing.T) {
	var config = testTrackerConfig(t)

	var ctx, cancel = context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, runTracker(ctx, config, trackerOptions{}), context.DeadlineExceeded)
}

func TestRunTracker_BadCalibrateTone(t *testing.T) {
	var config = testTrackerConfig(t)

	require.ErrorIs(t, runTracker(context.Background(), config, trackerOptions{calibrate: "hum"}), ErrConfig)
}

func TestGenTone_WAV(t *testing.T) {
	var config = testTrackerConfig(t)
	config.Output.SampleRate = 44100

	require.NoError(t, genTone(config, ToneMark, 100*time.Millisecond))

	var rate, samples, err = ReadWAV(config.Output.WAVFile)
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)
	assert.InDelta(t, 4410, len(samples), 50)

	require.ErrorIs(t, genTone(config, ToneMark, 0), ErrConfig)
}
