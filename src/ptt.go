package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	Key the transmitter.
 *
 * Description:	Three ways to do it:
 *
 *		gpio	A GPIO line through the Linux character device.
 *		serial	RTS or DTR on a serial port, the classic
 *			transistor-on-a-DB9 interface.
 *		none	VOX, or a radio keyed some other way.  Only logs.
 *
 *		Any of them can be inverted for active low hardware.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// RadioKey turns the transmitter on and off around a send.
type RadioKey interface {
	KeyOn() error
	KeyOff() error
	Close() error
}

const (
	PTT_METHOD_NONE   = "none"
	PTT_METHOD_GPIO   = "gpio"
	PTT_METHOD_SERIAL = "serial"
)

// OpenRadioKey sets up the PTT method named in cfg.  The radio starts unkeyed.
func OpenRadioKey(cfg PTTConfig) (RadioKey, error) {
	switch strings.ToLower(cfg.Method) {
	case "", PTT_METHOD_NONE:
		return NullKey{logger: logger}, nil

	case PTT_METHOD_GPIO:
		var offset, err = strconv.Atoi(cfg.Line)
		if err != nil {
			return nil, fmt.Errorf("%w: GPIO PTT line %q is not a line number", ErrConfig, cfg.Line)
		}

		return OpenGPIOKey(cfg.Device, offset, cfg.Invert)

	case PTT_METHOD_SERIAL:
		return OpenSerialKey(cfg.Device, cfg.Line, cfg.Invert)
	}

	return nil, fmt.Errorf("%w: unknown PTT method %q", ErrConfig, cfg.Method)
}

// gpiodOutputLine is the part of *gpiocdev.Line that PTT needs.
type gpiodOutputLine interface {
	SetValue(value int) error
	Close() error
}

type GPIOKey struct {
	line   gpiodOutputLine
	invert bool
}

func OpenGPIOKey(chip string, offset int, invert bool) (*GPIOKey, error) {
	var k = &GPIOKey{invert: invert}

	var line, err = gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(k.level(false)),
		gpiocdev.WithConsumer("picaprs-ptt"))
	if err != nil {
		return nil, fmt.Errorf("requesting PTT line %d on %s: %w", offset, chip, err)
	}

	k.line = line

	return k, nil
}

func (k *GPIOKey) level(on bool) int {
	if on != k.invert {
		return 1
	}

	return 0
}

func (k *GPIOKey) KeyOn() error {
	return k.line.SetValue(k.level(true))
}

func (k *GPIOKey) KeyOff() error {
	return k.line.SetValue(k.level(false))
}

func (k *GPIOKey) Close() error {
	var err = k.KeyOff()
	var closeErr = k.line.Close()

	if err != nil {
		return err
	}

	return closeErr
}

// modemControl reads and writes the TIOCM_* bits of a tty.
type modemControl interface {
	Bits() (int, error)
	SetBits(bits int) error
	Close() error
}

type ttyModemControl struct {
	f *os.File
}

func (t ttyModemControl) Bits() (int, error) {
	return unix.IoctlGetInt(int(t.f.Fd()), unix.TIOCMGET) //nolint:gosec // fd fits in int
}

func (t ttyModemControl) SetBits(bits int) error {
	return unix.IoctlSetPointerInt(int(t.f.Fd()), unix.TIOCMSET, bits) //nolint:gosec // fd fits in int
}

func (t ttyModemControl) Close() error {
	return t.f.Close()
}

type SerialKey struct {
	modem  modemControl
	bit    int
	invert bool
}

// OpenSerialKey uses line "RTS" or "DTR" of the serial port device.
func OpenSerialKey(device string, line string, invert bool) (*SerialKey, error) {
	var bit int

	switch strings.ToUpper(line) {
	case "RTS", "":
		bit = unix.TIOCM_RTS
	case "DTR":
		bit = unix.TIOCM_DTR
	default:
		return nil, fmt.Errorf("%w: serial PTT line must be RTS or DTR, not %q", ErrConfig, line)
	}

	var f, err = os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("opening PTT serial port: %w", err)
	}

	var k = &SerialKey{modem: ttyModemControl{f: f}, bit: bit, invert: invert}

	if err := k.KeyOff(); err != nil {
		f.Close()
		return nil, fmt.Errorf("setting %s on %s: %w", strings.ToUpper(line), device, err)
	}

	return k, nil
}

func (k *SerialKey) set(on bool) error {
	var bits, err = k.modem.Bits()
	if err != nil {
		return err
	}

	if on != k.invert {
		bits |= k.bit
	} else {
		bits &^= k.bit
	}

	return k.modem.SetBits(bits)
}

func (k *SerialKey) KeyOn() error {
	return k.set(true)
}

func (k *SerialKey) KeyOff() error {
	return k.set(false)
}

func (k *SerialKey) Close() error {
	var err = k.KeyOff()
	var closeErr = k.modem.Close()

	if err != nil {
		return err
	}

	return closeErr
}

// NullKey is for VOX or external keying.
type NullKey struct {
	logger *log.Logger
}

func (k NullKey) KeyOn() error {
	if k.logger != nil {
		k.logger.Debug("PTT on")
	}

	return nil
}

func (k NullKey) KeyOff() error {
	if k.logger != nil {
		k.logger.Debug("PTT off")
	}

	return nil
}

func (k NullKey) Close() error {
	return nil
}
