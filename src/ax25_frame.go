package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	Assemble AX.25 UI frames for transmission.
 *
 * Description:	Layout of the frame, all multi-byte fields in
 *		transmit order:
 *
 *		  7	destination address
 *		  7	source address
 *		  0-14	up to two digipeater addresses
 *		  1	control	0x03	UI, no poll/final
 *		  1	PID	0xF0	no layer 3
 *		  n	information field
 *		  1	carriage return
 *		  2	FCS, low byte first
 *
 *		The HDLC flags and bit stuffing are added later by the
 *		bit level encoder.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strings"
)

const (
	AX25_MAX_TX = 128 // Transmit buffer capacity, FCS included.

	AX25_UI_FRAME   = 0x03
	AX25_PID_NO_L3  = 0xF0
	AX25_END_OF_MSG = 0x0D

	ax25BaseLen = 2*AX25_ADDR_LEN + 3 // dest + src + control + PID + CR
	ax25FCSLen  = 2
)

// FrameBodyLen is the number of octets covered by the FCS:
// 17 plus 7 per relay plus the message.
func FrameBodyLen(relays int, msgLen int) int {
	return ax25BaseLen + AX25_ADDR_LEN*relays + msgLen
}

// FrameLen is FrameBodyLen plus the two FCS octets, i.e. what goes out between the flags.
func FrameLen(relays int, msgLen int) int {
	return FrameBodyLen(relays, msgLen) + ax25FCSLen
}

// messageText returns the part of message before any NUL.
func messageText(message string) string {
	var text, _, _ = strings.Cut(message, "\x00")
	return text
}

/*------------------------------------------------------------------
 *
 * Name:	BuildFrame
 *
 * Purpose:	Put a complete UI frame into dst.
 *
 * Inputs:	cfg	- Source address, SSID and relay path.
 *		message	- Information field.  Anything after a NUL is ignored.
 *		dest	- Destination callsign.  SSID is always 0.
 *
 * Returns:	Number of octets in dst, including the FCS.
 *
 * Errors:	ErrFrameTooLarge if it would not fit.  Nothing in dst
 *		is touched in that case.
 *
 *----------------------------------------------------------------*/

func BuildFrame(dst *[AX25_MAX_TX]byte, cfg *StationConfig, message string, dest Callsign) (int, error) {
	var text = messageText(message)
	var path = cfg.Path()

	if len(path) > AX25_MAX_RELAYS {
		return 0, fmt.Errorf("%w: %d relays", ErrTooManyRelays, len(path))
	}

	var total = FrameLen(len(path), len(text))
	if total > len(dst) {
		return 0, fmt.Errorf("%w: %d octets, buffer holds %d", ErrFrameTooLarge, total, len(dst))
	}

	var n = 0

	Address{Call: dest}.put(dst[n:])
	n += AX25_ADDR_LEN

	cfg.Source().put(dst[n:])
	n += AX25_ADDR_LEN

	for _, r := range path {
		r.put(dst[n:])
		n += AX25_ADDR_LEN
	}

	// Last address octet gets the extension bit.
	dst[n-1] |= 0x01

	dst[n] = AX25_UI_FRAME
	dst[n+1] = AX25_PID_NO_L3
	n += 2

	n += copy(dst[n:], text)

	dst[n] = AX25_END_OF_MSG
	n++

	var fcs = FCSCalc(dst[:n])
	dst[n] = byte(fcs)
	dst[n+1] = byte(fcs >> 8)
	n += 2

	return n, nil
}

// EncodeFrame is BuildFrame into a freshly allocated slice.
func EncodeFrame(cfg *StationConfig, message string, dest Callsign) ([]byte, error) {
	var buf [AX25_MAX_TX]byte

	var n, err = BuildFrame(&buf, cfg, message, dest)
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), buf[:n]...), nil
}

// FrameInfo is a frame taken apart again, for display and tests.
type FrameInfo struct {
	Dest   Address
	Source Address
	Path   []Address
	Info   string // Information field without the trailing CR.
	FCSOK  bool
}

func (f FrameInfo) String() string {
	var sb strings.Builder

	sb.WriteString(f.Source.String())
	sb.WriteByte('>')
	sb.WriteString(f.Dest.String())

	for _, r := range f.Path {
		sb.WriteByte(',')
		sb.WriteString(r.String())
	}

	sb.WriteByte(':')
	sb.WriteString(f.Info)

	return sb.String()
}

func getAddress(src []byte) Address {
	var a Address
	for i := range AX25_CALLSIGN_LEN {
		a.Call[i] = src[i] >> 1
	}

	a.SSID = (src[AX25_CALLSIGN_LEN] >> 1) & 0x0F

	return a
}

// DecodeFrame splits a frame produced by BuildFrame back into its parts.
func DecodeFrame(frame []byte) (FrameInfo, error) {
	var f FrameInfo

	if len(frame) < ax25BaseLen+ax25FCSLen {
		return f, fmt.Errorf("%w: only %d octets", ErrBadFrame, len(frame))
	}

	var addrs []Address
	var n = 0

	for {
		if n+AX25_ADDR_LEN > len(frame)-ax25FCSLen {
			return f, fmt.Errorf("%w: address field not terminated", ErrBadFrame)
		}

		addrs = append(addrs, getAddress(frame[n:]))
		n += AX25_ADDR_LEN

		if frame[n-1]&0x01 != 0 {
			break
		}
	}

	if len(addrs) < 2 {
		return f, fmt.Errorf("%w: need destination and source", ErrBadFrame)
	}

	var body = frame[n : len(frame)-ax25FCSLen]
	if len(body) < 3 || body[0] != AX25_UI_FRAME || body[1] != AX25_PID_NO_L3 {
		return f, fmt.Errorf("%w: not a UI frame", ErrBadFrame)
	}

	f.Dest = addrs[0]
	f.Source = addrs[1]
	f.Path = addrs[2:]
	f.Info = strings.TrimSuffix(string(body[2:]), "\r")
	f.FCSOK = CheckFCS(frame)

	return f, nil
}

// ParseMonitorFormat reads the familiar "SRC-N>DEST,PATH,...:info" text form.
// The returned config carries base's TxDelay.
func ParseMonitorFormat(line string, base StationConfig) (StationConfig, Callsign, string, error) {
	var cfg = base

	var header, info, found = strings.Cut(line, ":")
	if !found {
		return cfg, Callsign{}, "", fmt.Errorf("%w: no ':' in %q", ErrBadFrame, line)
	}

	var src, rest, ok = strings.Cut(header, ">")
	if !ok {
		return cfg, Callsign{}, "", fmt.Errorf("%w: no '>' in %q", ErrBadFrame, line)
	}

	var source, err = ParseAddress(src)
	if err != nil {
		return cfg, Callsign{}, "", err
	}

	var fields = strings.Split(rest, ",")

	var dest, destErr = ParseAddress(fields[0])
	if destErr != nil {
		return cfg, Callsign{}, "", destErr
	}

	cfg.Call = source.Call
	cfg.SSID = source.SSID
	cfg.Relays = nil

	for _, p := range fields[1:] {
		var relay, relayErr = ParseAddress(strings.TrimSuffix(p, "*"))
		if relayErr != nil {
			return cfg, Callsign{}, "", relayErr
		}

		cfg.Relays = append(cfg.Relays, relay)
	}

	if len(cfg.Relays) > AX25_MAX_RELAYS {
		return cfg, Callsign{}, "", fmt.Errorf("%w: %d in %q", ErrTooManyRelays, len(cfg.Relays), line)
	}

	return cfg, dest.Call, info, nil
}
