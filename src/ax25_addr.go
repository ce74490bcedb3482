package picaprs

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	AX25_CALLSIGN_LEN = 6 // Characters in the callsign part of an address.
	AX25_ADDR_LEN     = 7 // Callsign plus SSID octet.
	AX25_MAX_RELAYS   = 2 // Digipeater hops this tracker will put in a path.
	AX25_MAX_SSID     = 15
)

// Callsign is a fixed width, space padded, upper case station identifier.
type Callsign [AX25_CALLSIGN_LEN]byte

// ParseCallsign upper cases s and pads it to six characters.
// Only letters, digits and spaces are allowed.
func ParseCallsign(s string) (Callsign, error) {
	var c Callsign

	var trimmed = strings.TrimRight(s, " ")
	if len(trimmed) > AX25_CALLSIGN_LEN {
		return c, fmt.Errorf("%w: %q is longer than %d characters", ErrBadCallsign, s, AX25_CALLSIGN_LEN)
	}

	for i := range c {
		c[i] = ' '
	}

	for i := range len(trimmed) {
		var ch = trimmed[i]

		switch {
		case ch >= 'a' && ch <= 'z':
			c[i] = ch - 'a' + 'A'
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == ' ':
			c[i] = ch
		default:
			return Callsign{}, fmt.Errorf("%w: %q contains %q", ErrBadCallsign, s, ch)
		}
	}

	return c, nil
}

// MustParseCallsign is ParseCallsign for compile time constants.
func MustParseCallsign(s string) Callsign {
	var c, err = ParseCallsign(s)
	if err != nil {
		panic(err)
	}

	return c
}

func (c Callsign) String() string {
	return strings.TrimRight(string(c[:]), " \x00")
}

// IsBlank reports whether the callsign is all spaces (or zero bytes).
func (c Callsign) IsBlank() bool {
	for _, ch := range c {
		if ch != ' ' && ch != 0 {
			return false
		}
	}

	return true
}

// Address is one entry of the AX.25 address field.
type Address struct {
	Call Callsign
	SSID uint8
}

// ParseAddress accepts "CALL" or "CALL-N".
func ParseAddress(s string) (Address, error) {
	var a Address

	var call, ssid, hasSSID = strings.Cut(strings.TrimSpace(s), "-")

	var c, err = ParseCallsign(call)
	if err != nil {
		return a, err
	}

	a.Call = c

	if hasSSID {
		var n, convErr = strconv.Atoi(ssid)
		if convErr != nil || n < 0 || n > AX25_MAX_SSID {
			return a, fmt.Errorf("%w: %q", ErrBadSSID, s)
		}

		a.SSID = uint8(n) //nolint:gosec // range checked above
	}

	return a, nil
}

func (a Address) String() string {
	if a.SSID == 0 {
		return a.Call.String()
	}

	return a.Call.String() + "-" + strconv.Itoa(int(a.SSID))
}

// put writes the seven octet AX.25 form of the address.
// Each character is shifted left one bit; the SSID octet is 0x60 | ssid<<1
// with the extension bit clear.
func (a Address) put(dst []byte) {
	for i, ch := range a.Call {
		dst[i] = ch << 1
	}

	dst[AX25_CALLSIGN_LEN] = 0x60 | (a.SSID&0x0F)<<1
}

// StationConfig is the identity and routing used for every frame.
type StationConfig struct {
	Call Callsign
	SSID uint8

	// Dest is the destination for status and test packets.
	// MIC-E position reports carry their own destination.
	Dest Callsign

	// Relays is the digipeater path, in transmit order.
	// Entries with a blank callsign are skipped.
	Relays []Address

	// TxDelay is the number of 0x7E flags sent ahead of the frame
	// while the transmitter settles.  53 is about 350 ms at 1200 baud.
	TxDelay int
}

// DefaultStationConfig returns the configuration the tracker shipped with.
func DefaultStationConfig() StationConfig {
	return StationConfig{
		Call:    MustParseCallsign("AD7ZJ"),
		SSID:    11,
		Dest:    MustParseCallsign("APRS"),
		Relays:  []Address{{Call: MustParseCallsign("WIDE2"), SSID: 2}},
		TxDelay: 53,
	}
}

// Source returns the station's own address.
func (c *StationConfig) Source() Address {
	return Address{Call: c.Call, SSID: c.SSID}
}

// Path returns the relays that will actually be transmitted.
func (c *StationConfig) Path() []Address {
	var path = make([]Address, 0, len(c.Relays))

	for _, r := range c.Relays {
		if !r.Call.IsBlank() {
			path = append(path, r)
		}
	}

	return path
}

func (c *StationConfig) Validate() error {
	if c.Call.IsBlank() {
		return fmt.Errorf("%w: station callsign is empty", ErrBadCallsign)
	}

	if c.SSID > AX25_MAX_SSID {
		return fmt.Errorf("%w: station SSID %d", ErrBadSSID, c.SSID)
	}

	var path = c.Path()
	if len(path) > AX25_MAX_RELAYS {
		return fmt.Errorf("%w: %d given, at most %d", ErrTooManyRelays, len(path), AX25_MAX_RELAYS)
	}

	for _, r := range path {
		if r.SSID > AX25_MAX_SSID {
			return fmt.Errorf("%w: relay %s SSID %d", ErrBadSSID, r.Call, r.SSID)
		}
	}

	if c.TxDelay < 1 {
		return fmt.Errorf("%w: got %d", ErrBadTxDelay, c.TxDelay)
	}

	return nil
}
