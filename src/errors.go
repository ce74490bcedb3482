package picaprs

import "errors"

// Transmit path.
var (
	// ErrBusy is returned when a frame is already armed or on the air.
	ErrBusy = errors.New("transmitter busy")

	// ErrFrameTooLarge is returned when addresses plus message would not fit the transmit buffer.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrTimingViolation is returned when the sample clock deadline was missed.
	// The frame on the air is malformed and has been abandoned.
	ErrTimingViolation = errors.New("sample clock deadline missed")
)

// Addressing and station configuration.
var (
	ErrBadCallsign   = errors.New("invalid callsign")
	ErrBadSSID       = errors.New("SSID out of range 0-15")
	ErrTooManyRelays = errors.New("too many relay addresses")
	ErrBadTxDelay    = errors.New("txdelay must be at least one flag")
	ErrBadFrame      = errors.New("malformed AX.25 frame")
)

// GPS.
var (
	ErrNMEAChecksum = errors.New("NMEA checksum mismatch")
	ErrNMEAFormat   = errors.New("malformed NMEA sentence")
)

// ErrConfig wraps everything LoadConfig rejects.
var ErrConfig = errors.New("configuration error")
