package picaprs

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(input string) (*Console, *fakeSender, *bytes.Buffer) {
	var fifo = NewFIFO(CONSOLE_FIFO_SIZE)
	for i := range len(input) {
		fifo.Put(input[i])
	}

	var sender = &fakeSender{}
	var out = &bytes.Buffer{}

	return NewConsole(fifo, out, sender), sender, out
}

func TestFIFO(t *testing.T) {
	var f = NewFIFO(3)

	assert.True(t, f.Put('a'))
	assert.True(t, f.Put('b'))
	assert.True(t, f.Put('c'))
	assert.False(t, f.Put('d'), "full")

	var b, err = f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	_, _ = f.Get(context.Background())
	_, _ = f.Get(context.Background())

	_, err = f.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFIFO_Fill(t *testing.T) {
	var f = NewFIFO(CONSOLE_FIFO_SIZE)

	require.NoError(t, f.Fill(context.Background(), strings.NewReader("h1")))

	for _, want := range []byte("h1") {
		var b, err = f.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, b)
	}
}

func TestWaitForConsole(t *testing.T) {
	var f = NewFIFO(CONSOLE_FIFO_SIZE)
	for _, b := range []byte("xy`z") {
		f.Put(b)
	}

	assert.True(t, WaitForConsole(context.Background(), f, time.Second))

	var next, err = f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte('z'), next, "bytes after the console key are left alone")

	f.Put('x')
	assert.False(t, WaitForConsole(context.Background(), f, 10*time.Millisecond))
}

func TestConsole_Help(t *testing.T) {
	var c, sender, out = newTestConsole("")

	c.Command(context.Background(), 'h')

	assert.Equal(t, CONSOLE_HELP, out.String())
	assert.Empty(t, sender.packets)
}

func TestConsole_TestPacket(t *testing.T) {
	var c, sender, out = newTestConsole("")

	c.Command(context.Background(), '1')

	require.Len(t, sender.packets, 1)
	assert.Equal(t, KIND_TEST, sender.packets[0].Kind)
	assert.Equal(t, CONSOLE_TEST_PACKET, sender.packets[0].Message)
	assert.Equal(t, "APRS", sender.packets[0].Dest.String())
	assert.Empty(t, out.String())
}

func TestConsole_TestPacketFails(t *testing.T) {
	var c, sender, out = newTestConsole("")
	sender.err = ErrBusy

	c.Command(context.Background(), '1')

	assert.Equal(t, "Error: transmitter busy\r\n", out.String())
}

func TestConsole_Unknown(t *testing.T) {
	var c, _, out = newTestConsole("")

	c.Command(context.Background(), '\r')
	c.Command(context.Background(), '\n')
	assert.Empty(t, out.String())

	c.Command(context.Background(), 'z')
	assert.Equal(t, CONSOLE_UNKNOWN, out.String())
}

func TestConsole_Calibrate(t *testing.T) {
	var tests = []struct {
		cmd  byte
		tone Tone
	}{
		{cmd: '2', tone: ToneMark},
		{cmd: '3', tone: ToneSpace},
	}

	for _, tc := range tests {
		t.Run(tc.tone.String(), func(t *testing.T) {
			var c, _, out = newTestConsole("abq")

			var done = make(chan struct{})
			go func() {
				c.Command(context.Background(), tc.cmd)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				require.Fail(t, "calibration did not stop on q")
			}

			assert.Equal(t, "Calibrating "+tc.tone.String()+" tone, press q to stop\r\n", out.String())
		})
	}
}

func TestConsole_Run(t *testing.T) {
	var c, sender, out = newTestConsole("h\r\n1\r\n")

	var ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, c.Run(ctx), context.DeadlineExceeded)

	assert.Len(t, sender.packets, 1)
	assert.Equal(t, CONSOLE_HELP, out.String())
}
