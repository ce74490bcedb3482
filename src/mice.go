package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:   	Compressed MIC-E position report.
 *
 * Description:	MIC-E splits the position between the AX.25
 *		destination address and the information field.
 *
 *		Destination:	latitude digits, plus the N/S, E/W and
 *				longitude +100 flags, plus the message bits.
 *
 *		Information:	` lon-deg lon-min lon-hmin spd spd/crs crs
 *				symbol table altitude }
 *
 *		The message bits are always 110, "En Route".
 *
 *---------------------------------------------------------------*/

const MICE_FLAG_OFFSET = 'P' - '0'

// MicEOptions selects the APRS symbol.  The default is a balloon.
type MicEOptions struct {
	Symbol      byte
	SymbolTable byte
}

func DefaultMicEOptions() MicEOptions {
	return MicEOptions{Symbol: 'O', SymbolTable: '/'}
}

// MicEEncode encodes gps with the balloon symbol.
func MicEEncode(gps *GPSData) (Callsign, string) {
	return DefaultMicEOptions().Encode(gps)
}

func abs32(v int32) int64 {
	var n = int64(v)
	if n < 0 {
		return -n
	}
	return n
}

/*-------------------------------------------------------------------
 *
 * Name:        Encode
 *
 * Purpose:     Build the destination callsign and information field.
 *
 * Inputs:	gps	- Latitude and longitude in degrees * 10^7,
 *			  altitude in cm, speed in knots * 10,
 *			  heading in degrees * 100.
 *
 * Returns:	Destination callsign (6 characters, SSID 0) and the
 *		information field.
 *
 *--------------------------------------------------------------------*/

func (o MicEOptions) Encode(gps *GPSData) (Callsign, string) {
	var dest Callsign

	var lat = abs32(gps.Latitude)
	var lon = abs32(gps.Longitude)

	// Tens and ones of degrees.
	var deg = lat / 10000000
	dest[0] = byte('P' + deg/10)
	dest[1] = byte('P' + deg%10)

	// Units of 0.0001 minutes.
	var mins = 6 * (lat % 10000000)
	dest[2] = byte('0' + (mins/10000000)%10)
	dest[3] = byte('0' + (mins/1000000)%10)
	dest[4] = byte('0' + (mins/100000)%10)
	dest[5] = byte('0' + (mins/10000)%10)

	if gps.Latitude > 0 {
		dest[3] += MICE_FLAG_OFFSET
	}

	if gps.Longitude < 0 {
		dest[5] += MICE_FLAG_OFFSET
	}

	var info = make([]byte, 0, 13)
	info = append(info, '`')

	var londeg = lon / 10000000

	if londeg <= 9 || londeg >= 100 {
		dest[4] += MICE_FLAG_OFFSET
	}

	switch {
	case londeg <= 9:
		info = append(info, byte(londeg+118))
	case londeg <= 99:
		info = append(info, byte(londeg+28))
	case londeg <= 109:
		info = append(info, byte(londeg+8))
	default:
		info = append(info, byte(londeg-72))
	}

	var lonmin = (6 * (lon % 10000000)) / 1000000
	if lonmin <= 9 {
		info = append(info, byte(lonmin+88))
	} else {
		info = append(info, byte(lonmin+28))
	}

	var lonhmin = ((6 * (lon % 10000000)) / 10000) % 100
	info = append(info, byte(lonhmin+28))

	// Speed in knots, heading in degrees.
	var knots = int(gps.Speed / 10)
	var heading = int(gps.Heading)
	info = append(info,
		byte(28+knots/10),
		byte(28+(knots%10)*10+heading/10000),
		byte(28+(heading/100)%100))

	info = append(info, o.Symbol, o.SymbolTable)

	// Metres above a datum 10 km below sea level, base 91.
	var alt = int(gps.Altitude/100) + 10000
	if alt < 0 {
		alt = 0
	}
	info = append(info,
		byte(33+alt/8281),
		byte(33+(alt/91)%91),
		byte(33+alt%91),
		'}')

	return dest, string(info)
}
