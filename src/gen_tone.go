package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	Audio frequency shift keying waveform.
 *
 * Description:	A sine table is walked one entry per sample clock
 *		tick, unconditionally.  The tone is selected by the
 *		length of that tick: the mark period gives about
 *		1200 Hz and the space period about 2200 Hz.
 *
 *		The bit clock is derived from the same ticks.  Each
 *		tick adds its period to an accumulator and a bit
 *		decision is made whenever the accumulator reaches
 *		BaudTicks.  The accumulator is then reduced by
 *		BaudTicks, not cleared, so the bit rate stays exact
 *		even though neither tone period divides it.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
)

// Tone is the AFSK symbol currently on the air.
type Tone int

const (
	ToneSpace Tone = iota
	ToneMark
)

func (t Tone) String() string {
	if t == ToneMark {
		return "mark"
	}

	return "space"
}

// ParseTone accepts "mark"/"m"/"1" and "space"/"s"/"0".
func ParseTone(s string) (Tone, error) {
	switch s {
	case "mark", "m", "1":
		return ToneMark, nil
	case "space", "s", "0":
		return ToneSpace, nil
	}

	return ToneSpace, fmt.Errorf("unknown tone %q, expected mark or space", s)
}

const SINE_TABLE_LEN = 16

// One cycle of a sine for a 4 bit resistor DAC, mid scale 7.5.
var sineTable = [SINE_TABLE_LEN]uint8{
	7, 10, 13, 14, 15, 14, 13, 10,
	8, 5, 2, 1, 0, 1, 2, 5,
}

const DAC_MAX_LEVEL = 15

// waveform is the position in the sine table.
type waveform struct {
	index uint8
}

// next returns the level for this tick and advances.
func (w *waveform) next() uint8 {
	var level = sineTable[w.index]
	w.index = (w.index + 1) & (SINE_TABLE_LEN - 1)

	return level
}

// ToneTiming holds the sample clock register values.
// All periods are in ticks of a timer running at TimerHz.
type ToneTiming struct {
	TimerHz     uint32
	MarkPeriod  uint32
	SpacePeriod uint32
	BaudTicks   uint32
}

// DefaultToneTiming returns the values for a 32 MHz PIC18 with Timer2 at Fosc/4/2.
// They were trimmed on the bench, so mark is 1207.7 Hz rather than 1200.
func DefaultToneTiming() ToneTiming {
	return ToneTiming{
		TimerHz:     4_000_000,
		MarkPeriod:  207,
		SpacePeriod: 113,
		BaudTicks:   3333,
	}
}

// NewToneTiming derives register values for the given tones and bit rate.
func NewToneTiming(timerHz int, markHz int, spaceHz int, baud int) (ToneTiming, error) {
	if timerHz <= 0 || markHz <= 0 || spaceHz <= 0 || baud <= 0 {
		return ToneTiming{}, fmt.Errorf("%w: timer %d Hz, mark %d Hz, space %d Hz, baud %d must all be positive", ErrConfig, timerHz, markHz, spaceHz, baud)
	}

	var period = func(f int) uint32 {
		return uint32(math.Round(float64(timerHz) / float64(f*SINE_TABLE_LEN)))
	}

	var t = ToneTiming{
		TimerHz:     uint32(timerHz), //nolint:gosec // positive, checked above
		MarkPeriod:  period(markHz),
		SpacePeriod: period(spaceHz),
		BaudTicks:   uint32(math.Round(float64(timerHz) / float64(baud))),
	}

	return t, t.Validate()
}

func (t ToneTiming) Validate() error {
	if t.TimerHz == 0 {
		return fmt.Errorf("%w: timer frequency is zero", ErrConfig)
	}

	if t.MarkPeriod == 0 || t.SpacePeriod == 0 {
		return fmt.Errorf("%w: tone period is zero, timer too slow for the tones", ErrConfig)
	}

	if t.BaudTicks < t.MarkPeriod || t.BaudTicks < t.SpacePeriod {
		return fmt.Errorf("%w: bit time of %d ticks is shorter than one sample", ErrConfig, t.BaudTicks)
	}

	return nil
}

// Period is the sample clock period for tone.
func (t ToneTiming) Period(tone Tone) uint32 {
	if tone == ToneMark {
		return t.MarkPeriod
	}

	return t.SpacePeriod
}

// Frequency is the audio frequency produced for tone.
func (t ToneTiming) Frequency(tone Tone) float64 {
	return float64(t.TimerHz) / float64(t.Period(tone)*SINE_TABLE_LEN)
}

func (t ToneTiming) BaudRate() float64 {
	return float64(t.TimerHz) / float64(t.BaudTicks)
}

func (t ToneTiming) String() string {
	return fmt.Sprintf("mark %.1f Hz, space %.1f Hz, %.1f baud", t.Frequency(ToneMark), t.Frequency(ToneSpace), t.BaudRate())
}
