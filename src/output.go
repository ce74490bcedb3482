package picaprs

import (
	"fmt"
	"time"
)

// Output is a matched SampleClock and DAC for the transmit engine.
type Output struct {
	Clock SampleClock
	DAC   DAC

	pcm   *PCMRenderer
	close func() error
}

/*------------------------------------------------------------------
 *
 * Name:	OpenOutput
 *
 * Purpose:	Set up where the waveform goes.
 *
 * Description:	audio	PCM to a sound card.
 *		wav	PCM to a file.
 *		gpio	Resistor DAC on GPIO lines, paced by the
 *			host clock against real-time deadlines.
 *
 *----------------------------------------------------------------*/

func OpenOutput(cfg OutputConfig, timing ToneTiming) (*Output, error) {
	switch cfg.Mode {
	case OUTPUT_AUDIO, "":
		var sink, err = OpenPortAudio(cfg.Device, cfg.SampleRate)
		if err != nil {
			return nil, err
		}

		return NewPCMOutput(sink, timing, cfg.SampleRate, cfg.Amplitude), nil

	case OUTPUT_WAV:
		var sink, err = CreateWAV(cfg.WAVFile, cfg.SampleRate)
		if err != nil {
			return nil, err
		}

		return NewPCMOutput(sink, timing, cfg.SampleRate, cfg.Amplitude), nil

	case OUTPUT_GPIO:
		var dac, err = OpenGPIODAC(cfg.GPIOChip, cfg.GPIOLines)
		if err != nil {
			return nil, err
		}

		return &Output{
			Clock: NewRealtimeClock(timing.TimerHz, cfg.Slack),
			DAC:   dac,
			close: dac.Close,
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown output mode %q", ErrConfig, cfg.Mode)
}

func NewPCMOutput(sink AudioSink, timing ToneTiming, sampleRate int, amplitude int) *Output {
	var r = NewPCMRenderer(sink, timing.TimerHz, sampleRate, amplitude)

	return &Output{
		Clock: r,
		DAC:   r,
		pcm:   r,
		close: r.Close,
	}
}

// Flush pushes buffered audio out.  No-op for GPIO.
func (o *Output) Flush() error {
	if o.pcm == nil {
		return nil
	}

	return o.pcm.Flush()
}

// Silence adds quiet time between packets.  No-op for GPIO.
func (o *Output) Silence(d time.Duration) error {
	if o.pcm == nil {
		return nil
	}

	return o.pcm.Silence(d)
}

func (o *Output) Close() error {
	if o.close == nil {
		return nil
	}

	return o.close()
}

// flusher is implemented by clocks that buffer output.
type flusher interface {
	Flush() error
}

func flushClock(clock SampleClock) error {
	var f, ok = clock.(flusher)
	if !ok {
		return nil
	}

	if err := f.Flush(); err != nil {
		return fmt.Errorf("flushing audio: %w", err)
	}

	return nil
}
