package picaprs

import (
	"time"
)

// AudioSink accepts mono signed 16 bit samples.
type AudioSink interface {
	WriteSamples(samples []int16) error
	Close() error
}

const pcmChunk = 1024

/*------------------------------------------------------------------
 *
 * Name:	PCMRenderer
 *
 * Purpose:	Turn the DAC staircase into PCM audio.
 *
 * Description:	Acts as both the SampleClock and the DAC for the
 *		transmit engine.  Each Wait converts the time the
 *		current level is held (period / TimerHz seconds)
 *		into output samples at the sink's sample rate.
 *		The fraction of a sample left over is carried to the
 *		next Wait.
 *
 *		There is no deadline here: the sink decides how fast
 *		samples are consumed.  A sound card paces the whole
 *		transmission through its blocking writes.
 *
 *----------------------------------------------------------------*/

type PCMRenderer struct {
	sink       AudioSink
	timerHz    uint64
	sampleRate uint64
	amplitude  int

	period uint32
	level  uint8
	acc    uint64 // In units of 1/timerHz of a sample.

	buf []int16
}

// NewPCMRenderer renders at sampleRate with peak amplitude given in percent of full scale.
func NewPCMRenderer(sink AudioSink, timerHz uint32, sampleRate int, amplitudePercent int) *PCMRenderer {
	amplitudePercent = max(0, min(100, amplitudePercent))

	return &PCMRenderer{
		sink:       sink,
		timerHz:    uint64(timerHz),
		sampleRate: uint64(max(sampleRate, 1)), //nolint:gosec // clamped positive
		amplitude:  32767 * amplitudePercent / 100,
		level:      (DAC_MAX_LEVEL + 1) / 2,
		buf:        make([]int16, 0, pcmChunk),
	}
}

func (r *PCMRenderer) SetPeriod(ticks uint32) {
	r.period = ticks
}

func (r *PCMRenderer) Period() uint32 {
	return r.period
}

func (r *PCMRenderer) Put(level uint8) error {
	r.level = min(level, DAC_MAX_LEVEL)
	return nil
}

func (r *PCMRenderer) sample(level uint8) int16 {
	return int16((2*int(level) - DAC_MAX_LEVEL) * r.amplitude / DAC_MAX_LEVEL) //nolint:gosec // |result| <= amplitude
}

func (r *PCMRenderer) Wait() error {
	r.acc += uint64(r.period) * r.sampleRate

	var s = r.sample(r.level)

	for r.acc >= r.timerHz {
		r.acc -= r.timerHz

		if err := r.emit(s); err != nil {
			return err
		}
	}

	return nil
}

func (r *PCMRenderer) emit(s int16) error {
	r.buf = append(r.buf, s)
	if len(r.buf) == cap(r.buf) {
		return r.Flush()
	}

	return nil
}

// Silence appends d of zero samples.
func (r *PCMRenderer) Silence(d time.Duration) error {
	var n = int(uint64(d) * r.sampleRate / uint64(time.Second)) //nolint:gosec // durations here are seconds, not centuries

	for range n {
		if err := r.emit(0); err != nil {
			return err
		}
	}

	return nil
}

// Flush hands any buffered samples to the sink.
func (r *PCMRenderer) Flush() error {
	if len(r.buf) == 0 {
		return nil
	}

	var err = r.sink.WriteSamples(r.buf)
	r.buf = r.buf[:0]

	return err
}

// Close flushes and closes the sink.
func (r *PCMRenderer) Close() error {
	var flushErr = r.Flush()
	var closeErr = r.sink.Close()

	if flushErr != nil {
		return flushErr
	}

	return closeErr
}

// SampleRate is the output rate in Hz.
func (r *PCMRenderer) SampleRate() int {
	return int(r.sampleRate) //nolint:gosec // set from an int
}
