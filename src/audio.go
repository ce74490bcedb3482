package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	Sound card output through PortAudio.
 *
 * Description:	Blocking writes.  Samples are gathered into one
 *		buffer of framesPerBuffer and handed to the stream
 *		when it fills, so the sound card paces the caller.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

const paFramesPerBuffer = 512

type PortAudioSink struct {
	stream *portaudio.Stream
	buf    []int16
	n      int
}

// OpenPortAudio opens an output stream on the named device, or the
// default output device when name is "" or "default".
func OpenPortAudio(name string, sampleRate int) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	var s = &PortAudioSink{buf: make([]int16, paFramesPerBuffer)}

	var stream, err = openStream(name, sampleRate, s.buf)
	if err != nil {
		portaudio.Terminate() //nolint:errcheck
		return nil, err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate() //nolint:errcheck
		return nil, fmt.Errorf("starting audio stream: %w", err)
	}

	s.stream = stream

	return s, nil
}

func openStream(name string, sampleRate int, buf []int16) (*portaudio.Stream, error) {
	if name == "" || name == "default" {
		var stream, err = portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(buf), buf)
		if err != nil {
			return nil, fmt.Errorf("opening default audio output: %w", err)
		}

		return stream, nil
	}

	var dev, err = findOutputDevice(name)
	if err != nil {
		return nil, err
	}

	var p = portaudio.HighLatencyParameters(nil, dev)
	p.Output.Channels = 1
	p.SampleRate = float64(sampleRate)
	p.FramesPerBuffer = len(buf)

	stream, err := portaudio.OpenStream(p, buf)
	if err != nil {
		return nil, fmt.Errorf("opening audio output %q: %w", dev.Name, err)
	}

	return stream, nil
}

// findOutputDevice matches name against device names, exact match first, then substring.
func findOutputDevice(name string) (*portaudio.DeviceInfo, error) {
	var devices, err = portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing audio devices: %w", err)
	}

	var partial *portaudio.DeviceInfo

	for _, d := range devices {
		if d.MaxOutputChannels < 1 {
			continue
		}

		if d.Name == name {
			return d, nil
		}

		if partial == nil && strings.Contains(strings.ToLower(d.Name), strings.ToLower(name)) {
			partial = d
		}
	}

	if partial != nil {
		return partial, nil
	}

	return nil, fmt.Errorf("no audio output device matching %q", name)
}

// ListAudioDevices returns the names of devices that can play audio.
func ListAudioDevices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate() //nolint:errcheck

	var devices, err = portaudio.Devices()
	if err != nil {
		return nil, err
	}

	var names []string

	for _, d := range devices {
		if d.MaxOutputChannels > 0 {
			names = append(names, fmt.Sprintf("%s (%s, %.0f Hz)", d.Name, d.HostApi.Name, d.DefaultSampleRate))
		}
	}

	return names, nil
}

func (s *PortAudioSink) WriteSamples(samples []int16) error {
	for len(samples) > 0 {
		var k = copy(s.buf[s.n:], samples)
		s.n += k
		samples = samples[k:]

		if s.n == len(s.buf) {
			if err := s.stream.Write(); err != nil {
				return fmt.Errorf("audio write: %w", err)
			}

			s.n = 0
		}
	}

	return nil
}

// Close pads out the last buffer with silence, drains and shuts down PortAudio.
func (s *PortAudioSink) Close() error {
	var errs []error

	if s.n > 0 {
		clear(s.buf[s.n:])

		if err := s.stream.Write(); err != nil {
			errs = append(errs, err)
		}

		s.n = 0
	}

	errs = append(errs, s.stream.Stop(), s.stream.Close(), portaudio.Terminate())

	return errors.Join(errs...)
}
