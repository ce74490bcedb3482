package picaprs

import "fmt"

const (
	DEFAULT_STATUS_PREFIX  = "ANSR"
	DEFAULT_STATUS_COMMENT = "www.ansr.org"
)

// StatusText builds the periodic status report:
//
//	>ANSR 1234' 0.9dop 10trk www.ansr.org\r
//
// Altitude is in feet, the DOP to one decimal and the satellite count
// is the number used in the fix.
func StatusText(gps *GPSData, prefix string, comment string) string {
	return fmt.Sprintf(">%s %d' %d.%01ddop %dtrk %s\r",
		prefix, gps.AltitudeFeet(), gps.DOP/10, gps.DOP%10, gps.TrackedSats, comment)
}
