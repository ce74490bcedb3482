package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	Bit level HDLC encoder for one AX.25 frame.
 *
 * Description:	One call of bitTick is one bit time on the air.
 *		It returns the tone to hold for that bit.
 *
 *		SendingSync		TxDelay flags, no stuffing.
 *		SendingData		The frame, FCS included, with a 0
 *					inserted after five 1s in a row.
 *		SendingClosingFlags	Two flags, no stuffing.
 *		Idle			Done.
 *
 *		Everything is NRZI: a 0 bit is a change of tone and
 *		a 1 bit keeps the previous tone.  Bits go out LSB first.
 *
 *		The encoder knows nothing about sample clocks, so it
 *		can be driven directly in tests.
 *
 *---------------------------------------------------------------*/

import "fmt"

// TransmitState is where the engine is in sending a frame.
type TransmitState int32

const (
	StateIdle TransmitState = iota
	StatePreparing
	StateSendingSync
	StateSendingData
	StateSendingClosingFlags
)

func (s TransmitState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePreparing:
		return "Preparing"
	case StateSendingSync:
		return "SendingSync"
	case StateSendingData:
		return "SendingData"
	case StateSendingClosingFlags:
		return "SendingClosingFlags"
	}

	return fmt.Sprintf("TransmitState(%d)", int32(s))
}

const (
	HDLC_FLAG          = 0x7E
	HDLC_CLOSING_FLAGS = 2

	// Five 1s in the stuff history.
	hdlcStuffRun = 0x1F
)

type hdlcEncoder struct {
	state TransmitState

	frame   []byte
	txDelay int

	shift    byte // Current byte, next bit in the LSB.
	bitCount int  // Bits of shift already sent.
	index    int  // Flags sent in sync/closing, byte index in data.
	stuff    byte // Last five data bits, newest in bit 0.
	tone     Tone
}

// arm readies the encoder for frame.  frame must stay untouched until Idle.
func (h *hdlcEncoder) arm(frame []byte, txDelay int) {
	h.frame = frame
	h.txDelay = txDelay
	h.shift = HDLC_FLAG
	h.bitCount = 0
	h.index = 0
	h.stuff = 0
	h.tone = ToneSpace
	h.state = StateSendingSync
}

// reset abandons whatever was in progress.
func (h *hdlcEncoder) reset() {
	h.state = StateIdle
	h.shift = 0
	h.bitCount = 0
	h.index = 0
	h.stuff = 0
}

// atByteBoundary reports whether no byte is partly sent and no stuffed bit is owed.
func (h *hdlcEncoder) atByteBoundary() bool {
	return h.bitCount == 0 && !(h.state == StateSendingData && h.stuff == hdlcStuffRun)
}

// bitTick does one bit time of work and returns the tone for it.
func (h *hdlcEncoder) bitTick() Tone {
	switch h.state {
	case StateSendingSync:
		h.syncBit()
	case StateSendingData:
		h.dataBit()
	case StateSendingClosingFlags:
		h.closingBit()
	case StateIdle, StatePreparing:
	}

	return h.tone
}

func (h *hdlcEncoder) sendBitNRZI(bit byte) {
	if bit == 0 {
		h.tone = 1 - h.tone
	}
}

// shiftOut sends the next bit of shift and reports whether that finished the byte.
func (h *hdlcEncoder) shiftOut() (byte, bool) {
	var bit = h.shift & 1

	h.sendBitNRZI(bit)

	h.bitCount++
	if h.bitCount == 8 {
		h.bitCount = 0
		return bit, true
	}

	h.shift >>= 1

	return bit, false
}

func (h *hdlcEncoder) syncBit() {
	var _, done = h.shiftOut()
	if !done {
		return
	}

	h.shift = HDLC_FLAG
	h.index++

	if h.index >= h.txDelay {
		if len(h.frame) == 0 {
			h.startClosing()
			return
		}

		h.index = 0
		h.shift = h.frame[0]
		h.stuff = 0
		h.state = StateSendingData
	}
}

func (h *hdlcEncoder) dataBit() {
	if h.stuff == hdlcStuffRun {
		h.sendBitNRZI(0)
		h.stuff = 0

		if h.index == len(h.frame) {
			h.startClosing()
		}

		return
	}

	var bit, done = h.shiftOut()

	h.stuff = ((h.stuff << 1) | bit) & hdlcStuffRun

	if !done {
		return
	}

	h.index++
	if h.index < len(h.frame) {
		h.shift = h.frame[h.index]
		return
	}

	// The frame may end on five 1s; the stuffed 0 still has to go out
	// ahead of the closing flag or the receiver sees an abort.
	if h.stuff != hdlcStuffRun {
		h.startClosing()
	}
}

func (h *hdlcEncoder) startClosing() {
	h.shift = HDLC_FLAG
	h.bitCount = 0
	h.index = 0
	h.state = StateSendingClosingFlags
}

func (h *hdlcEncoder) closingBit() {
	var _, done = h.shiftOut()
	if !done {
		return
	}

	h.shift = HDLC_FLAG
	h.index++

	if h.index == HDLC_CLOSING_FLAGS {
		h.reset()
	}
}
