package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	The transmit engine.  Owns the frame buffer and
 *		turns a prepared frame into DAC samples.
 *
 * Description:	PrepareFrame fills the buffer and arms the encoder.
 *		Send then runs the frame out, sample by sample, and
 *		returns when the closing flags are done.
 *
 *		Only one frame is ever in flight.  Anything that
 *		arrives while a frame is armed, being sent, or while
 *		a calibration tone is running gets ErrBusy.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/doismellburning/picaprs/internal/syncutil"
)

type TncEngine struct {
	mu    syncutil.Mutex
	busy  bool         // Send or Calibrate is running.  Guarded by mu.
	state atomic.Int32 // TransmitState, readable without mu.

	config StationConfig
	timing ToneTiming
	clock  SampleClock
	dac    DAC

	buf    [AX25_MAX_TX]byte
	length int

	enc     hdlcEncoder
	wave    waveform
	elapsed uint32 // Timer ticks since the last bit decision.

	logger *log.Logger
}

type TncOption func(*TncEngine)

func WithToneTiming(t ToneTiming) TncOption {
	return func(e *TncEngine) {
		e.timing = t
	}
}

func WithLogger(l *log.Logger) TncOption {
	return func(e *TncEngine) {
		e.logger = l
	}
}

func NewTncEngine(cfg StationConfig, clock SampleClock, dac DAC, opts ...TncOption) (*TncEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var e = &TncEngine{
		config: cfg,
		timing: DefaultToneTiming(),
		clock:  clock,
		dac:    dac,
		logger: logger,
	}
	e.config.Relays = cfg.Path()

	for _, opt := range opts {
		opt(e)
	}

	if err := e.timing.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *TncEngine) State() TransmitState {
	return TransmitState(e.state.Load())
}

func (e *TncEngine) setState(s TransmitState) {
	e.state.Store(int32(s))
}

// Config returns a copy of the station configuration.
func (e *TncEngine) Config() StationConfig {
	var c = e.config
	c.Relays = append([]Address(nil), e.config.Relays...)

	return c
}

func (e *TncEngine) Timing() ToneTiming {
	return e.timing
}

// Frame returns a copy of the most recently prepared frame.
func (e *TncEngine) Frame() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]byte(nil), e.buf[:e.length]...)
}

/*------------------------------------------------------------------
 *
 * Name:	PrepareFrame
 *
 * Purpose:	Build a UI frame and arm the engine to send it.
 *
 * Inputs:	message	- Information field.  A CR is appended.
 *		dest	- Destination callsign, SSID 0.
 *
 * Errors:	ErrBusy		- Not Idle.  Nothing is changed.
 *		ErrFrameTooLarge - Nothing is changed.
 *
 *----------------------------------------------------------------*/

func (e *TncEngine) PrepareFrame(message string, dest Callsign) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy || e.State() != StateIdle {
		return fmt.Errorf("%w: engine is %s", ErrBusy, e.State())
	}

	e.setState(StatePreparing)

	var n, err = BuildFrame(&e.buf, &e.config, message, dest)
	if err != nil {
		e.setState(StateIdle)
		return err
	}

	e.length = n
	e.enc.arm(e.buf[:n], e.config.TxDelay)
	e.setState(StateSendingSync)

	if e.logger.GetLevel() <= log.DebugLevel {
		e.logger.Debug("Frame prepared", "bytes", n, "dest", dest.String())
		e.logger.Print("\n" + hexDump(e.buf[:n]))
	}

	return nil
}

// claim marks the engine busy if want(state) holds.
func (e *TncEngine) claim(want func(TransmitState) bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy {
		return false, fmt.Errorf("%w: engine is %s", ErrBusy, e.State())
	}

	if !want(e.State()) {
		return false, nil
	}

	e.busy = true

	return true, nil
}

func (e *TncEngine) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

func (e *TncEngine) startClock(period uint32) {
	if r, ok := e.clock.(clockResetter); ok {
		r.Reset()
	}

	e.clock.SetPeriod(period)
}

/*------------------------------------------------------------------
 *
 * Name:	Send
 *
 * Purpose:	Transmit the armed frame.  Blocks until it is done.
 *
 * Description:	Every iteration puts out one sine table entry and
 *		waits for the sample clock.  Whenever a bit time's
 *		worth of ticks has gone by, the encoder decides the
 *		next bit and the clock period is set for its tone.
 *
 *		The context is only looked at between bytes.
 *		Cancelling, a DAC error or a missed deadline all
 *		abandon the frame and leave the engine Idle.
 *
 * Returns:	nil when the closing flags have gone out, or when
 *		there was nothing armed.
 *
 *----------------------------------------------------------------*/

func (e *TncEngine) Send(ctx context.Context) error {
	var armed, err = e.claim(func(s TransmitState) bool { return s != StateIdle })
	if err != nil || !armed {
		return err
	}
	defer e.release()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var start = time.Now()
	var bits = 0

	// First bit decision on the first tick.
	e.elapsed = e.timing.BaudTicks
	e.startClock(e.timing.Period(e.enc.tone))

	for {
		if e.elapsed >= e.timing.BaudTicks {
			if e.enc.state == StateIdle {
				// Last bit has had its full time.
				break
			}

			e.elapsed -= e.timing.BaudTicks

			if e.enc.atByteBoundary() && ctx.Err() != nil {
				return e.abort(ctx.Err())
			}

			var tone = e.enc.bitTick()
			e.clock.SetPeriod(e.timing.Period(tone))
			e.setState(e.enc.state)
			bits++
		}

		if err := e.dac.Put(e.wave.next()); err != nil {
			return e.abort(err)
		}

		if err := e.clock.Wait(); err != nil {
			return e.abort(err)
		}

		e.elapsed += e.clock.Period()
	}

	e.logger.Debug("Frame sent", "bytes", e.length, "bits", bits, "elapsed", time.Since(start).Round(time.Millisecond))

	return nil
}

func (e *TncEngine) abort(cause error) error {
	var was = e.enc.state

	e.enc.reset()
	e.setState(StateIdle)

	e.logger.Warn("Transmission abandoned", "state", was, "err", cause)

	return fmt.Errorf("transmission abandoned in %s: %w", was, cause)
}

/*------------------------------------------------------------------
 *
 * Name:	Calibrate
 *
 * Purpose:	Send a steady mark or space tone until ctx is done,
 *		for setting deviation and checking tone frequency.
 *
 * Description:	Missed deadlines are counted rather than fatal;
 *		there is no frame to spoil.
 *
 *----------------------------------------------------------------*/

func (e *TncEngine) Calibrate(ctx context.Context, tone Tone) error {
	if err := e.claimIdle(); err != nil {
		return err
	}
	defer e.release()

	return e.calibrate(ctx, tone)
}

// claimIdle marks an Idle engine busy.  Armed or running is ErrBusy.
func (e *TncEngine) claimIdle() error {
	var ok, err = e.claim(func(s TransmitState) bool { return s == StateIdle })
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: engine is %s", ErrBusy, e.State())
	}

	return nil
}

// calibrate runs the tone on an engine already claimed.
func (e *TncEngine) calibrate(ctx context.Context, tone Tone) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.startClock(e.timing.Period(tone))

	e.logger.Info("Calibration tone on", "tone", tone, "hz", fmt.Sprintf("%.1f", e.timing.Frequency(tone)))

	var done = ctx.Done()
	var late = 0

	for {
		if e.wave.index == 0 {
			select {
			case <-done:
				e.logger.Info("Calibration tone off", "tone", tone, "late_samples", late)
				return nil
			default:
			}
		}

		if err := e.dac.Put(e.wave.next()); err != nil {
			return fmt.Errorf("calibration: %w", err)
		}

		if err := e.clock.Wait(); err != nil {
			if !errors.Is(err, ErrTimingViolation) {
				return fmt.Errorf("calibration: %w", err)
			}

			late++
		}
	}
}

// Abandon drops an armed frame that has not started sending.
// It is ErrBusy while Send or Calibrate is running.
func (e *TncEngine) Abandon() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy {
		return fmt.Errorf("%w: engine is %s", ErrBusy, e.State())
	}

	e.enc.reset()
	e.setState(StateIdle)

	return nil
}
