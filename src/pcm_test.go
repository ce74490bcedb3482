package picaprs

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	samples []int16
	writes  int
	closed  bool
	err     error
}

func (s *mockSink) WriteSamples(samples []int16) error {
	s.writes++
	s.samples = append(s.samples, samples...)

	return s.err
}

func (s *mockSink) Close() error {
	s.closed = true
	return nil
}

func TestPCMRenderer_OneSamplePerWait(t *testing.T) {
	var sink = &mockSink{}
	var r = NewPCMRenderer(sink, 4_000_000, 8000, 100)
	r.SetPeriod(500)

	for _, level := range []uint8{15, 0, 7, 8} {
		require.NoError(t, r.Put(level))
		require.NoError(t, r.Wait())
	}

	assert.Empty(t, sink.samples, "buffered until flushed")
	require.NoError(t, r.Flush())

	assert.Equal(t, []int16{32767, -32767, -2184, 2184}, sink.samples)
}

func TestPCMRenderer_FractionCarried(t *testing.T) {
	var sink = &mockSink{}
	var r = NewPCMRenderer(sink, 4_000_000, 44100, 50)

	var timing = DefaultToneTiming()
	var ticks uint64

	for i := range 10000 {
		var period = timing.MarkPeriod
		if i%3 == 0 {
			period = timing.SpacePeriod
		}

		r.SetPeriod(period)
		require.NoError(t, r.Put(sineTable[i%SINE_TABLE_LEN]))
		require.NoError(t, r.Wait())

		ticks += uint64(period)
	}

	require.NoError(t, r.Close())
	assert.True(t, sink.closed)
	assert.Len(t, sink.samples, int(ticks*44100/4_000_000))

	for _, s := range sink.samples {
		assert.LessOrEqual(t, s, int16(32767/2))
		assert.GreaterOrEqual(t, s, int16(-32767/2))
	}
}

func TestPCMRenderer_Silence(t *testing.T) {
	var sink = &mockSink{}
	var r = NewPCMRenderer(sink, 4_000_000, 8000, 100)

	require.NoError(t, r.Silence(10*time.Millisecond))
	require.NoError(t, r.Flush())

	assert.Len(t, sink.samples, 80)
	assert.Equal(t, 8000, r.SampleRate())
}

func TestPCMRenderer_ChunkedWrites(t *testing.T) {
	var sink = &mockSink{}
	var r = NewPCMRenderer(sink, 4_000_000, 8000, 100)

	require.NoError(t, r.Silence(time.Second))
	assert.Equal(t, 8000/pcmChunk, sink.writes)

	require.NoError(t, r.Flush())
	assert.Len(t, sink.samples, 8000)
}

func TestPCMRenderer_SinkError(t *testing.T) {
	var sink = &mockSink{err: errors.New("underrun")}
	var r = NewPCMRenderer(sink, 4_000_000, 8000, 100)

	require.ErrorContains(t, r.Silence(time.Second), "underrun")
}

func TestPCMRenderer_ClampsLevel(t *testing.T) {
	var sink = &mockSink{}
	var r = NewPCMRenderer(sink, 4_000_000, 8000, 200)
	r.SetPeriod(500)

	require.NoError(t, r.Put(200))
	require.NoError(t, r.Wait())
	require.NoError(t, r.Flush())

	assert.Equal(t, []int16{32767}, sink.samples)
}

func TestWAV_RoundTrip(t *testing.T) {
	var fname = filepath.Join(t.TempDir(), "out.wav")

	var w, err = CreateWAV(fname, 22050)
	require.NoError(t, err)

	var samples = []int16{0, 1, -1, 32767, -32768, 1234}
	require.NoError(t, w.WriteSamples(samples[:3]))
	require.NoError(t, w.WriteSamples(samples[3:]))
	require.NoError(t, w.Close())

	var rate, got, readErr = ReadWAV(fname)
	require.NoError(t, readErr)
	assert.Equal(t, 22050, rate)
	assert.Equal(t, samples, got)
}

func TestReadWAV_NotWAV(t *testing.T) {
	var _, _, err = ReadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}

func TestOutput_WAV(t *testing.T) {
	var fname = filepath.Join(t.TempDir(), "out.wav")

	var out, err = OpenOutput(OutputConfig{Mode: OUTPUT_WAV, WAVFile: fname, SampleRate: 8000, Amplitude: 50}, DefaultToneTiming())
	require.NoError(t, err)

	require.NoError(t, out.Silence(100*time.Millisecond))
	require.NoError(t, out.Flush())
	require.NoError(t, out.Close())

	var _, got, readErr = ReadWAV(fname)
	require.NoError(t, readErr)
	assert.Len(t, got, 800)
}

func TestOpenOutput_Unknown(t *testing.T) {
	var _, err = OpenOutput(OutputConfig{Mode: "smoke"}, DefaultToneTiming())
	require.ErrorIs(t, err, ErrConfig)
}

func Test_flushClock(t *testing.T) {
	assert.NoError(t, flushClock(&mockClock{}))

	var sink = &mockSink{err: errors.New("gone")}
	var r = NewPCMRenderer(sink, 4_000_000, 8000, 100)
	require.NoError(t, r.Silence(time.Millisecond))

	require.ErrorContains(t, flushClock(r), "flushing audio")
}
