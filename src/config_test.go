package picaprs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	var c = DefaultConfig()
	require.NoError(t, c.Validate())

	var sc, err = c.StationConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultStationConfig(), sc)

	timing, err := c.ToneTiming()
	require.NoError(t, err)
	assert.Equal(t, DefaultToneTiming(), timing)

	assert.Equal(t, DefaultMicEOptions(), c.MicEOptions())
}

func TestParseConfig(t *testing.T) {
	var c, err = ParseConfig([]byte(`
station:
  callsign: n0call-9
  path: [WIDE1-1, WIDE2-1]
  txdelay: 30
modem:
  timer_hz: 4000000
  mark_hz: 1200
  space_hz: 2200
  baud: 1200
output:
  mode: wav
  wav_file: out.wav
ptt:
  method: serial
  device: /dev/ttyUSB0
  line: DTR
  tail: 25ms
gps:
  source: gpsd
beacon:
  position_slots: [5, 35]
  symbol: "/>"
mqtt:
  enabled: true
  broker: tcp://localhost:1883
`))
	require.NoError(t, err)

	var sc, scErr = c.StationConfig()
	require.NoError(t, scErr)
	assert.Equal(t, "N0CALL-9", sc.Source().String())
	assert.Equal(t, "APRS", sc.Dest.String(), "default kept")
	assert.Len(t, sc.Relays, 2)
	assert.Equal(t, 30, sc.TxDelay)

	var timing, timingErr = c.ToneTiming()
	require.NoError(t, timingErr)
	assert.Equal(t, uint32(208), timing.MarkPeriod)
	assert.Equal(t, uint32(114), timing.SpacePeriod)
	assert.Equal(t, uint32(3333), timing.BaudTicks)

	assert.Equal(t, 25*time.Millisecond, c.PTT.Tail)
	assert.Equal(t, "DTR", c.PTT.Line)
	assert.Equal(t, 44100, c.Output.SampleRate, "default kept")
	assert.Equal(t, []int{5, 35}, c.Beacon.PositionSlots)
	assert.Equal(t, []int{15}, c.Beacon.StatusSlots)
	assert.Equal(t, MicEOptions{Symbol: '>', SymbolTable: '/'}, c.MicEOptions())
	assert.Equal(t, DEFAULT_GPSD_ADDR, c.GPS.GPSD)
	assert.Equal(t, DEFAULT_MQTT_TOPIC_PREFIX, c.MQTT.TopicPrefix)

	assert.Equal(t, []int{0, 30}, DEFAULT_POSITION_SLOTS, "defaults not overwritten")
}

func TestParseConfig_Invalid(t *testing.T) {
	var tests = []struct {
		name string
		yaml string
		want string
	}{
		{name: "yaml", yaml: "station: [", want: "configuration error"},
		{name: "callsign", yaml: "station: {callsign: TOOLONGCALL}", want: "station callsign"},
		{name: "txdelay", yaml: "station: {txdelay: 0}", want: "txdelay"},
		{name: "relays", yaml: "station: {path: [A, B, C]}", want: "too many relay"},
		{name: "timing", yaml: "modem: {baud_ticks: 10}", want: "shorter than one sample"},
		{name: "output", yaml: "output: {mode: tape}", want: "unknown output mode"},
		{name: "wav file", yaml: "output: {mode: wav}", want: "wav_file"},
		{name: "amplitude", yaml: "output: {amplitude: 0}", want: "amplitude"},
		{name: "gpio lines", yaml: "output: {mode: gpio, gpio_lines: [1, 2]}", want: "needs 4 lines"},
		{name: "ptt", yaml: "ptt: {method: vox}", want: "unknown PTT method"},
		{name: "gps", yaml: "gps: {source: glonass}", want: "unknown GPS source"},
		{name: "slots", yaml: "beacon: {status_slots: [60]}", want: "status slot 60"},
		{name: "symbol", yaml: "beacon: {symbol: O}", want: "symbol"},
		{name: "mqtt", yaml: "mqtt: {enabled: true}", want: "without a broker"},
		{name: "qos", yaml: "mqtt: {qos: 3}", want: "qos 3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var _, err = ParseConfig([]byte(tc.yaml))
			require.ErrorIs(t, err, ErrConfig)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestParseConfig_CollectsAllErrors(t *testing.T) {
	var _, err = ParseConfig([]byte("ptt: {method: vox}\ngps: {source: glonass}\n"))

	require.ErrorIs(t, err, ErrConfig)
	assert.ErrorContains(t, err, "PTT")
	assert.ErrorContains(t, err, "GPS")
}

func TestLoadConfig(t *testing.T) {
	var fname = filepath.Join(t.TempDir(), "picaprs.yaml")
	require.NoError(t, os.WriteFile(fname, []byte("station:\n  callsign: KK7ABC-1\n"), 0600))

	var c, err = LoadConfig(fname)
	require.NoError(t, err)
	assert.Equal(t, "KK7ABC-1", c.Station.Callsign)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewToneTiming(t *testing.T) {
	var timing, err = NewToneTiming(4_000_000, 1200, 2200, 1200)
	require.NoError(t, err)

	assert.InDelta(t, 1200, timing.Frequency(ToneMark), 10)
	assert.InDelta(t, 2200, timing.Frequency(ToneSpace), 20)
	assert.InDelta(t, 1200, timing.BaudRate(), 0.1)

	_, err = NewToneTiming(0, 1200, 2200, 1200)
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewToneTiming(10_000, 1200, 2200, 1200)
	require.ErrorIs(t, err, ErrConfig)
}

func TestDefaultToneTiming(t *testing.T) {
	var timing = DefaultToneTiming()

	assert.InDelta(t, 1207.7, timing.Frequency(ToneMark), 0.1)
	assert.InDelta(t, 2212.4, timing.Frequency(ToneSpace), 0.1)
	assert.Equal(t, "mark 1207.7 Hz, space 2212.4 Hz, 1200.1 baud", timing.String())
}

func TestParseTone(t *testing.T) {
	for _, s := range []string{"mark", "m", "1"} {
		var tone, err = ParseTone(s)
		require.NoError(t, err)
		assert.Equal(t, ToneMark, tone)
	}

	for _, s := range []string{"space", "s", "0"} {
		var tone, err = ParseTone(s)
		require.NoError(t, err)
		assert.Equal(t, ToneSpace, tone)
	}

	var _, err = ParseTone("hum")
	require.Error(t, err)
}
