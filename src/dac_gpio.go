package picaprs

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const DAC_BITS = 4

// gpiodOutputLines is the part of *gpiocdev.Lines the DAC uses.
type gpiodOutputLines interface {
	SetValues(values []int) error
	Close() error
}

// GPIODAC drives a resistor ladder DAC from GPIO lines, least significant bit first.
type GPIODAC struct {
	lines  gpiodOutputLines
	values [DAC_BITS]int
}

func OpenGPIODAC(chip string, offsets []int) (*GPIODAC, error) {
	if len(offsets) != DAC_BITS {
		return nil, fmt.Errorf("%w: DAC needs %d GPIO lines, got %d", ErrConfig, DAC_BITS, len(offsets))
	}

	var lines, err = gpiocdev.RequestLines(chip, offsets,
		gpiocdev.AsOutput(0, 0, 0, 0),
		gpiocdev.WithConsumer("picaprs-dac"))
	if err != nil {
		return nil, fmt.Errorf("requesting DAC lines %v on %s: %w", offsets, chip, err)
	}

	return &GPIODAC{lines: lines}, nil
}

func (d *GPIODAC) Put(level uint8) error {
	for i := range d.values {
		d.values[i] = int(level>>i) & 1
	}

	return d.lines.SetValues(d.values[:])
}

// Close leaves the ladder at zero and releases the lines.
func (d *GPIODAC) Close() error {
	var err = d.Put(0)
	var closeErr = d.lines.Close()

	if err != nil {
		return err
	}

	return closeErr
}
