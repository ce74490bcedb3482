package picaprs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRadioKey struct {
	events []string
	onErr  error
	offErr error
}

func (k *mockRadioKey) KeyOn() error {
	k.events = append(k.events, "on")
	return k.onErr
}

func (k *mockRadioKey) KeyOff() error {
	k.events = append(k.events, "off")
	return k.offErr
}

func (k *mockRadioKey) Close() error {
	k.events = append(k.events, "close")
	return nil
}

type recordingObserver struct {
	records []TransmitRecord
}

func (o *recordingObserver) Transmitted(rec TransmitRecord) {
	o.records = append(o.records, rec)
}

func newTestTransmitter(t *testing.T) (*Transmitter, *mockRadioKey, *mockClock, *recordingObserver) {
	t.Helper()

	var e, clock, _ = newTestEngine(t)
	var key = &mockRadioKey{}
	var obs = &recordingObserver{}

	var tx = NewTransmitter(e, key)
	tx.Tail = 0
	tx.Metrics = NewMetrics()
	tx.Observe(obs)

	return tx, key, clock, obs
}

func TestTransmitter_Transmit(t *testing.T) {
	var tx, key, clock, obs = newTestTransmitter(t)

	var err = tx.Transmit(context.Background(), Packet{Kind: KIND_STATUS, Message: ">hello\r", Dest: MustParseCallsign("APRS")})
	require.NoError(t, err)

	assert.Equal(t, []string{"on", "off"}, key.events)
	assert.NotEmpty(t, clock.periods)

	require.Len(t, obs.records, 1)
	var rec = obs.records[0]
	require.NoError(t, rec.Err)
	assert.Equal(t, FrameLen(1, len(">hello\r")), rec.Bytes)
	assert.Equal(t, "AD7ZJ-11>APRS,WIDE2-2:>hello", rec.Monitor())
	assert.Equal(t, time.UTC, rec.Time.Location())

	assert.InDelta(t, 1, testutil.ToFloat64(tx.Metrics.packetsSent.WithLabelValues(KIND_STATUS)), 0)
}

func TestTransmitter_KeyOnFails(t *testing.T) {
	var tx, key, clock, obs = newTestTransmitter(t)
	key.onErr = errors.New("no line")

	var err = tx.Transmit(context.Background(), Packet{Kind: KIND_TEST, Message: ">x", Dest: MustParseCallsign("APRS")})
	require.ErrorContains(t, err, "PTT on")

	assert.Equal(t, []string{"on"}, key.events)
	assert.Empty(t, clock.periods)
	assert.Equal(t, StateIdle, tx.Engine.State())

	require.Len(t, obs.records, 1)
	assert.Error(t, obs.records[0].Err)

	// Nothing left armed.
	require.NoError(t, tx.Engine.PrepareFrame(">y", MustParseCallsign("APRS")))
}

func TestTransmitter_SendFailsStillUnkeys(t *testing.T) {
	var tx, key, clock, _ = newTestTransmitter(t)
	clock.failAt = 10

	var err = tx.Transmit(context.Background(), Packet{Kind: KIND_POSITION, Message: "`x", Dest: MustParseCallsign("S32U6T")})
	require.ErrorIs(t, err, ErrTimingViolation)

	assert.Equal(t, []string{"on", "off"}, key.events)
	assert.InDelta(t, 1, testutil.ToFloat64(tx.Metrics.failures.WithLabelValues("timing")), 0)
}

func TestTransmitter_KeyOffFails(t *testing.T) {
	var tx, key, _, _ = newTestTransmitter(t)
	key.offErr = errors.New("stuck")

	var err = tx.Transmit(context.Background(), Packet{Kind: KIND_TEST, Message: ">x", Dest: MustParseCallsign("APRS")})
	require.ErrorContains(t, err, "PTT off")
}

func TestTransmitter_TooLargeNeverKeys(t *testing.T) {
	var tx, key, _, obs = newTestTransmitter(t)

	var big = make([]byte, AX25_MAX_TX)
	for i := range big {
		big[i] = 'x'
	}

	var err = tx.Transmit(context.Background(), Packet{Kind: KIND_TEXT, Message: string(big), Dest: MustParseCallsign("APRS")})
	require.ErrorIs(t, err, ErrFrameTooLarge)

	assert.Empty(t, key.events)
	require.Len(t, obs.records, 1)
	assert.Zero(t, obs.records[0].Bytes)
	assert.InDelta(t, 1, testutil.ToFloat64(tx.Metrics.failures.WithLabelValues("too_large")), 0)
}

func TestTransmitter_Tail(t *testing.T) {
	var tx, _, _, _ = newTestTransmitter(t)
	tx.Tail = 20 * time.Millisecond

	var start = time.Now()
	require.NoError(t, tx.Transmit(context.Background(), Packet{Kind: KIND_TEST, Message: ">x", Dest: MustParseCallsign("APRS")}))
	assert.GreaterOrEqual(t, time.Since(start), tx.Tail)
}

func TestTransmitter_FlushesPCM(t *testing.T) {
	var sink = &mockSink{}
	var out = NewPCMOutput(sink, DefaultToneTiming(), 8000, 100)

	var e, err = NewTncEngine(DefaultStationConfig(), out.Clock, out.DAC)
	require.NoError(t, err)

	var tx = NewTransmitter(e, NullKey{})
	tx.Tail = 0

	require.NoError(t, tx.Transmit(context.Background(), Packet{Kind: KIND_TEST, Message: ">x", Dest: MustParseCallsign("APRS")}))
	assert.NotEmpty(t, sink.samples, "all audio handed to the sink before returning")
}

func TestTransmitter_CalibrateTone(t *testing.T) {
	var tx, key, clock, _ = newTestTransmitter(t)

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	clock.onWait = func(n int) {
		if n == 5 {
			cancel()
		}
	}

	require.NoError(t, tx.CalibrateTone(ctx, ToneSpace))
	assert.Equal(t, []string{"on", "off"}, key.events)
	assert.Len(t, clock.periods, 16)
}

func TestTransmitter_CalibrateToneWhileSending(t *testing.T) {
	var tx, key, clock, _ = newTestTransmitter(t)

	var calErr error
	var eventsDuring []string
	clock.onWait = func(n int) {
		if n == 100 {
			calErr = tx.CalibrateTone(context.Background(), ToneMark)
			eventsDuring = append([]string(nil), key.events...)
		}
	}

	require.NoError(t, tx.Transmit(context.Background(), Packet{Kind: KIND_TEST, Message: ">x", Dest: MustParseCallsign("APRS")}))

	require.ErrorIs(t, calErr, ErrBusy)
	assert.Equal(t, []string{"on"}, eventsDuring, "key held for the frame on the air")
	assert.Equal(t, []string{"on", "off"}, key.events)
}

func TestTransmitter_CalibrateToneWhileArmed(t *testing.T) {
	var tx, key, clock, _ = newTestTransmitter(t)

	require.NoError(t, tx.Engine.PrepareFrame(">armed", MustParseCallsign("APRS")))

	require.ErrorIs(t, tx.CalibrateTone(context.Background(), ToneSpace), ErrBusy)
	assert.Empty(t, key.events)
	assert.Empty(t, clock.periods)
	assert.Equal(t, StateSendingSync, tx.Engine.State())

	// The engine is usable again once the armed frame goes.
	require.NoError(t, tx.Engine.Abandon())

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	clock.onWait = func(n int) {
		if n == 1 {
			cancel()
		}
	}

	require.NoError(t, tx.CalibrateTone(ctx, ToneSpace))
	assert.Equal(t, []string{"on", "off"}, key.events)
}

func TestTransmitRecord_Monitor(t *testing.T) {
	var rec = TransmitRecord{
		Packet: Packet{Message: ">status\r\r", Dest: MustParseCallsign("APRS")},
		Source: Address{Call: MustParseCallsign("N0CALL"), SSID: 9},
	}

	assert.Equal(t, "N0CALL-9>APRS:>status", rec.Monitor())
}
