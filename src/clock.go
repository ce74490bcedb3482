package picaprs

import (
	"fmt"
	"time"
)

// SampleClock paces waveform output.
// The period register is in timer ticks and may be changed between waits.
type SampleClock interface {
	SetPeriod(ticks uint32)
	Period() uint32

	// Wait blocks until the current period has elapsed.
	Wait() error
}

// DAC receives one level, 0 to DAC_MAX_LEVEL, per sample clock tick.
type DAC interface {
	Put(level uint8) error
}

// Clocks that keep an absolute deadline implement this so a new
// transmission doesn't inherit the previous one's schedule.
type clockResetter interface {
	Reset()
}

/*------------------------------------------------------------------
 *
 * Name:	RealtimeClock
 *
 * Purpose:	Sample clock for driving a DAC directly from the host.
 *
 * Description:	Deadlines are kept in absolute timer ticks since the
 *		first Wait so rounding never accumulates.  Waiting is
 *		a spin on the monotonic clock; the caller is expected
 *		to be on a locked OS thread.
 *
 *		Arriving at Wait more than Slack after the deadline
 *		means the previous sample was held too long and the
 *		tone is already distorted.  That is reported as
 *		ErrTimingViolation and the schedule is dropped.
 *
 *----------------------------------------------------------------*/

type RealtimeClock struct {
	timerHz uint32
	period  uint32
	slack   time.Duration

	started bool
	base    time.Time
	ticks   uint64

	now func() time.Time
}

func NewRealtimeClock(timerHz uint32, slack time.Duration) *RealtimeClock {
	return &RealtimeClock{
		timerHz: timerHz,
		slack:   slack,
		now:     time.Now,
	}
}

func (c *RealtimeClock) SetPeriod(ticks uint32) {
	c.period = ticks
}

func (c *RealtimeClock) Period() uint32 {
	return c.period
}

// Reset forgets the schedule.  The next Wait starts a new one.
func (c *RealtimeClock) Reset() {
	c.started = false
	c.ticks = 0
}

// deadline splits whole seconds off first; ticks times 1e9 overflows after about
// 77 minutes at 4 MHz.
func (c *RealtimeClock) deadline() time.Time {
	var hz = uint64(c.timerHz)
	var whole = time.Duration(c.ticks/hz) * time.Second
	var frac = time.Duration(c.ticks % hz * uint64(time.Second) / hz)

	return c.base.Add(whole + frac)
}

func (c *RealtimeClock) Wait() error {
	var now = c.now()

	if !c.started {
		c.started = true
		c.base = now
		c.ticks = 0
	}

	var late = now.Sub(c.deadline())
	if late > c.slack {
		c.Reset()
		return fmt.Errorf("%w: %s late", ErrTimingViolation, late)
	}

	c.ticks += uint64(c.period)

	var deadline = c.deadline()
	for c.now().Before(deadline) { //nolint:revive // spin wait is the pacing mechanism
	}

	return nil
}
