package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to serial port, for the GPS receiver and
 *		the engineering console.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/pkg/term"
)

const DEFAULT_GPS_BAUD = 4800

/*-------------------------------------------------------------------
 *
 * Name:	OpenSerialPort
 *
 * Purpose:	Open serial port in raw mode.
 *
 * Inputs:	devicename	- Usually like /dev/ttyS0 or /dev/ttyUSB0.
 *
 *		baud		- Speed.  1200, 4800, 9600 bps, etc.
 *				  If 0, leave it alone.
 *
 * Returns 	Handle for serial port.
 *
 *---------------------------------------------------------------*/

func OpenSerialPort(devicename string, baud int) (*term.Term, error) {
	var fd, err = term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", devicename, err)
	}

	switch baud {
	case 0: /* Leave it alone. */
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		err = fd.SetSpeed(baud)
	default:
		logger.Warn("Unsupported serial speed, using default", "speed", baud, "default", DEFAULT_GPS_BAUD)
		err = fd.SetSpeed(DEFAULT_GPS_BAUD)
	}

	if err != nil {
		fd.Close() //nolint:errcheck
		return nil, fmt.Errorf("set speed on %s: %w", devicename, err)
	}

	return fd, nil
}
