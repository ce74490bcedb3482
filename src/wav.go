package picaprs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

type wavHeader struct { /* .WAV file header. */
	Riff            [4]byte /* "RIFF" */
	Filesize        int32   /* file length - 8 */
	Wave            [4]byte /* "WAVE" */
	Fmt             [4]byte /* "fmt " */
	Fmtsize         int32   /* 16. */
	Wformattag      int16   /* 1 for PCM. */
	Nchannels       int16   /* 1 for mono, 2 for stereo. */
	Nsamplespersec  int32   /* sampling freq, Hz. */
	Navgbytespersec int32   /* = nblockalign * nsamplespersec. */
	Nblockalign     int16   /* = wbitspersample / 8 * nchannels. */
	Wbitspersample  int16   /* 16 or 8. */
	Data            [4]byte /* "data" */
	Datasize        int32   /* number of bytes following. */
}

// WAVWriter writes mono 16 bit PCM to a .WAV file.
// The size fields are filled in by Close.
type WAVWriter struct {
	f         *os.File
	w         *bufio.Writer
	header    wavHeader
	byteCount int
}

func CreateWAV(fname string, sampleRate int) (*WAVWriter, error) {
	var f, err = os.Create(fname) //nolint:gosec // user supplied output file
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s for write: %w", fname, err)
	}

	var w = &WAVWriter{
		f: f,
		header: wavHeader{
			Riff:           [4]byte{'R', 'I', 'F', 'F'},
			Wave:           [4]byte{'W', 'A', 'V', 'E'},
			Fmt:            [4]byte{'f', 'm', 't', ' '},
			Fmtsize:        16,
			Wformattag:     1,
			Nchannels:      1,
			Nsamplespersec: int32(sampleRate), //nolint:gosec // audio rates fit
			Wbitspersample: 16,
			Data:           [4]byte{'d', 'a', 't', 'a'},
		},
	}
	w.header.Nblockalign = w.header.Wbitspersample / 8 * w.header.Nchannels
	w.header.Navgbytespersec = int32(w.header.Nblockalign) * w.header.Nsamplespersec

	if err := binary.Write(f, binary.LittleEndian, w.header); err != nil {
		f.Close()
		return nil, fmt.Errorf("couldn't write header to %s: %w", fname, err)
	}

	w.w = bufio.NewWriter(f)

	return w, nil
}

func (w *WAVWriter) WriteSamples(samples []int16) error {
	if err := binary.Write(w.w, binary.LittleEndian, samples); err != nil {
		return err
	}

	w.byteCount += 2 * len(samples)

	return nil
}

// Close goes back to the beginning of the file and fills in the sizes.
func (w *WAVWriter) Close() error {
	defer w.f.Close()

	if err := w.w.Flush(); err != nil {
		return err
	}

	w.header.Filesize = int32(w.byteCount + binary.Size(w.header) - 8) //nolint:gosec // WAV is 32 bit
	w.header.Datasize = int32(w.byteCount)                             //nolint:gosec // WAV is 32 bit

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("couldn't seek in audio file: %w", err)
	}

	if err := binary.Write(w.f, binary.LittleEndian, w.header); err != nil {
		return fmt.Errorf("couldn't write header to audio file: %w", err)
	}

	return nil
}

// ReadWAV returns the sample rate and samples of a file written by WAVWriter.
func ReadWAV(fname string) (int, []int16, error) {
	var f, err = os.Open(fname) //nolint:gosec // user supplied input file
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	var header wavHeader
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return 0, nil, fmt.Errorf("reading WAV header: %w", err)
	}

	if string(header.Riff[:]) != "RIFF" || string(header.Wave[:]) != "WAVE" || header.Wbitspersample != 16 || header.Nchannels != 1 {
		return 0, nil, fmt.Errorf("%s is not a mono 16 bit WAV file", fname)
	}

	var samples = make([]int16, header.Datasize/2)
	if err := binary.Read(f, binary.LittleEndian, samples); err != nil {
		return 0, nil, fmt.Errorf("reading WAV data: %w", err)
	}

	return int(header.Nsamplespersec), samples, nil
}
