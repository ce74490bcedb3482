package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:   	Engineering console for bench testing.
 *
 * Description:	Single key commands arrive on the console port:
 *
 *			h	help
 *			1	send a test packet
 *			2	calibrate the mark tone, until 'q'
 *			3	calibrate the space tone, until 'q'
 *
 *		Console mode is chosen at start up by pressing '`'
 *		within the first few seconds.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

const CONSOLE_FIFO_SIZE = 256

const CONSOLE_ENTER = '`'
const CONSOLE_STOP = 'q'

const CONSOLE_TEST_PACKET = "$GPGGA,155146,3000.5000,N,10000.0100,W,1,10,0.9,2000.0,M,,M,,*74"

const CONSOLE_HELP = "PICTrack Engineering Console\n" +
	"1: Send APRS packet\n" +
	"2: Calibrate the mark tone\n" +
	"3: Calibrate the space tone\n"

const CONSOLE_UNKNOWN = "Unknown command, press h for help\r\n"

// FIFO holds console input bytes until they are wanted.
// When it is full, new bytes are dropped.
type FIFO struct {
	ch chan byte
}

func NewFIFO(size int) *FIFO {
	return &FIFO{ch: make(chan byte, size)}
}

// Put adds b, reporting false if there was no room.
func (f *FIFO) Put(b byte) bool {
	select {
	case f.ch <- b:
		return true
	default:
		return false
	}
}

// Fill copies bytes from r until ctx is done or r fails.
// io.EOF is returned as nil.
func (f *FIFO) Fill(ctx context.Context, r io.Reader) error {
	var buf = make([]byte, 64)

	for ctx.Err() == nil {
		var n, err = r.Read(buf)
		for _, b := range buf[:n] {
			f.Put(b)
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}

	return ctx.Err()
}

// Get waits for the next byte.
func (f *FIFO) Get(ctx context.Context) (byte, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case b := <-f.ch:
		return b, nil
	}
}

// WaitForConsole watches for the console key for up to d.
// Anything else typed meanwhile is discarded.
func WaitForConsole(ctx context.Context, fifo *FIFO, d time.Duration) bool {
	var ctx2, cancel = context.WithTimeout(ctx, d)
	defer cancel()

	for {
		var b, err = fifo.Get(ctx2)
		if err != nil {
			return false
		}
		if b == CONSOLE_ENTER {
			return true
		}
	}
}

// ConsoleTransmitter is what the console drives.  *Transmitter is one.
type ConsoleTransmitter interface {
	Transmit(ctx context.Context, pkt Packet) error
	CalibrateTone(ctx context.Context, tone Tone) error
}

type Console struct {
	In  *FIFO
	Out io.Writer
	Tx  ConsoleTransmitter

	TestDest Callsign

	logger *log.Logger
}

func NewConsole(in *FIFO, out io.Writer, tx ConsoleTransmitter) *Console {
	return &Console{
		In:       in,
		Out:      out,
		Tx:       tx,
		TestDest: MustParseCallsign("APRS"),
		logger:   logger.With("src", "console"),
	}
}

// Run executes commands until ctx is done.
func (c *Console) Run(ctx context.Context) error {
	for {
		var b, err = c.In.Get(ctx)
		if err != nil {
			return err
		}

		c.Command(ctx, b)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        Command
 *
 * Purpose:     Carry out one console command.
 *
 * Inputs:	cmd	- The key pressed.  Line endings are ignored.
 *
 * Description:	Errors are reported on the console and in the log;
 *		the console keeps going.
 *
 *--------------------------------------------------------------------*/

func (c *Console) Command(ctx context.Context, cmd byte) {
	var err error

	switch cmd {
	case '\r', '\n':
		return
	case 'h':
		c.print(CONSOLE_HELP)
	case '1':
		err = c.Tx.Transmit(ctx, Packet{
			Kind:    KIND_TEST,
			Message: CONSOLE_TEST_PACKET,
			Dest:    c.TestDest,
		})
	case '2':
		err = c.calibrate(ctx, ToneMark)
	case '3':
		err = c.calibrate(ctx, ToneSpace)
	default:
		c.print(CONSOLE_UNKNOWN)
	}

	if err != nil {
		c.logger.Error("Console command failed", "cmd", string(cmd), "err", err)
		c.print(fmt.Sprintf("Error: %s\r\n", err))
	}
}

// calibrate holds tone until 'q' arrives on the console.
func (c *Console) calibrate(ctx context.Context, tone Tone) error {
	var calCtx, cancel = context.WithCancel(ctx)
	defer cancel()

	c.print(fmt.Sprintf("Calibrating %s tone, press q to stop\r\n", tone))

	go func() {
		for {
			var b, err = c.In.Get(calCtx)
			if err != nil {
				return
			}
			if b == CONSOLE_STOP {
				cancel()
				return
			}
		}
	}()

	return c.Tx.CalibrateTone(calCtx, tone)
}

func (c *Console) print(s string) {
	if _, err := io.WriteString(c.Out, s); err != nil {
		c.logger.Warn("Console write", "err", err)
	}
}
