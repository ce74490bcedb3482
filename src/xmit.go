package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	Everything around one transmission: build the frame,
 *		key up, send, hold for the tail, unkey, and tell
 *		whoever is interested how it went.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Packet kinds, used as metric labels and in the logs.
const (
	KIND_POSITION = "position"
	KIND_STATUS   = "status"
	KIND_TEST     = "test"
	KIND_TEXT     = "text"
)

const DEFAULT_TX_TAIL = 10 * time.Millisecond

// Packet is one thing to put on the air.
type Packet struct {
	Kind    string
	Message string
	Dest    Callsign

	// Position is the fix a position report was made from, if any.
	Position *GPSData
}

// TransmitRecord describes a finished transmission attempt.
type TransmitRecord struct {
	Time   time.Time
	Packet Packet
	Source Address
	Path   []Address
	Bytes  int
	Err    error
}

// Monitor returns the record in SRC>DEST,PATH:info form.
func (r TransmitRecord) Monitor() string {
	var info = FrameInfo{
		Source: r.Source,
		Dest:   Address{Call: r.Packet.Dest},
		Path:   r.Path,
		Info:   trimCR(messageText(r.Packet.Message)),
	}

	return info.String()
}

func trimCR(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}

	return s
}

// TransmitObserver is told about every transmission attempt.
type TransmitObserver interface {
	Transmitted(rec TransmitRecord)
}

type Transmitter struct {
	Engine    *TncEngine
	Key       RadioKey
	Tail      time.Duration
	Metrics   *Metrics
	Observers []TransmitObserver

	logger *log.Logger
}

func NewTransmitter(engine *TncEngine, key RadioKey) *Transmitter {
	return &Transmitter{
		Engine: engine,
		Key:    key,
		Tail:   DEFAULT_TX_TAIL,
		logger: logger,
	}
}

// Observe adds o to the observers.
func (t *Transmitter) Observe(o TransmitObserver) {
	t.Observers = append(t.Observers, o)
}

/*------------------------------------------------------------------
 *
 * Name:	Transmit
 *
 * Purpose:	Send one packet.
 *
 * Description:	The frame is prepared before keying, so a busy or
 *		oversize rejection never keys the radio.  Once keyed,
 *		the radio is always unkeyed again, whatever happened.
 *
 *		There are no retries.  Beacons simply try again in
 *		their next slot.
 *
 *----------------------------------------------------------------*/

func (t *Transmitter) Transmit(ctx context.Context, pkt Packet) error {
	var cfg = t.Engine.Config()
	var rec = TransmitRecord{
		Time:   time.Now().UTC(),
		Packet: pkt,
		Source: cfg.Source(),
		Path:   cfg.Relays,
	}

	var err = t.transmit(ctx, &rec)
	rec.Err = err

	if err != nil {
		t.Metrics.TransmitFailed(err)
		t.logger.Warn("Transmit failed", "kind", pkt.Kind, "err", err)
	} else {
		t.Metrics.PacketSent(pkt.Kind, rec.Bytes)
		t.logger.Info("Sent", "kind", pkt.Kind, "packet", rec.Monitor())
	}

	for _, o := range t.Observers {
		o.Transmitted(rec)
	}

	return err
}

func (t *Transmitter) transmit(ctx context.Context, rec *TransmitRecord) error {
	if err := t.Engine.PrepareFrame(rec.Packet.Message, rec.Packet.Dest); err != nil {
		return err
	}

	rec.Bytes = len(t.Engine.Frame())

	if err := t.Key.KeyOn(); err != nil {
		t.Engine.Abandon() //nolint:errcheck // not sending, so not busy
		return fmt.Errorf("PTT on: %w", err)
	}

	var sendErr = errors.Join(t.Engine.Send(ctx), flushClock(t.Engine.clock))

	if sendErr == nil && t.Tail > 0 {
		sleepCtx(ctx, t.Tail)
	}

	var keyErr = t.Key.KeyOff()
	if keyErr != nil {
		keyErr = fmt.Errorf("PTT off: %w", keyErr)
	}

	return errors.Join(sendErr, keyErr)
}

// CalibrateTone keys up and holds tone until ctx is done.
// The engine is claimed first so a busy engine never touches the key.
func (t *Transmitter) CalibrateTone(ctx context.Context, tone Tone) error {
	if err := t.Engine.claimIdle(); err != nil {
		return err
	}
	defer t.Engine.release()

	if err := t.Key.KeyOn(); err != nil {
		return fmt.Errorf("PTT on: %w", err)
	}

	var calErr = errors.Join(t.Engine.calibrate(ctx, tone), flushClock(t.Engine.clock))

	var keyErr = t.Key.KeyOff()
	if keyErr != nil {
		keyErr = fmt.Errorf("PTT off: %w", keyErr)
	}

	return errors.Join(calErr, keyErr)
}

// sleepCtx sleeps for d or until ctx is done, whichever is first.
func sleepCtx(ctx context.Context, d time.Duration) {
	var timer = time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
