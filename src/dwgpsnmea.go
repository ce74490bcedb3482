package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:   	Process NMEA sentences from a GPS receiver.
 *
 * Description:	Only two sentences matter to a tracker:
 *
 *			$xxRMC	time, validity, position, speed, course, date.
 *			$xxGGA	fix quality, satellites, HDOP, altitude.
 *
 *		Both update one accumulating record, so a position
 *		report built after the RMC still carries the altitude
 *		from the previous GGA.  Each one parsed counts as
 *		"data ready", typically twice a second.
 *
 *		Talker IDs GP (GPS) and GN (any combination) are
 *		accepted.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Maximum length of message from GPS receiver is 82 according to some people.
// Make buffer considerably larger to be safe.
const NMEA_MAX_LEN = 160

type NMEAParser struct {
	data  GPSData
	ready bool
}

func NewNMEAParser() *NMEAParser {
	return &NMEAParser{}
}

// Data returns the record accumulated so far.
func (p *NMEAParser) Data() GPSData {
	return p.data
}

// DataReady is a one-shot: true once after each RMC or GGA.
func (p *NMEAParser) DataReady() bool {
	if p.ready {
		p.ready = false
		return true
	}

	return false
}

/*-------------------------------------------------------------------
 *
 * Name:	removeChecksum
 *
 * Purpose:	Validate checksum and remove before further processing.
 *
 * Inputs:	sent	- Complete sentence starting with '$'.
 *
 * Returns:	Sentence without the "*hh" part.
 *		A sentence without any checksum is passed through.
 *
 *--------------------------------------------------------------------*/

func removeChecksum(sent string) (string, error) {
	var msg, checksumStr, found = strings.Cut(sent, "*")
	if !found {
		return sent, nil
	}

	var calculatedChecksum int64
	for i := 1; i < len(msg); i++ {
		calculatedChecksum ^= int64(msg[i])
	}

	var checksum, err = strconv.ParseInt(strings.TrimSpace(checksumStr), 16, 0)
	if err != nil {
		return "", fmt.Errorf("%w: bad checksum field %q", ErrNMEAChecksum, checksumStr)
	}

	if calculatedChecksum != checksum {
		return "", fmt.Errorf("%w: expected %02X but found %s", ErrNMEAChecksum, calculatedChecksum, checksumStr)
	}

	return msg, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        ParseSentence
 *
 * Purpose:    	Parse one sentence and fold it into the record.
 *
 * Returns:	true if it was an RMC or GGA that updated the record.
 *		Other sentence types are ignored without error.
 *
 *--------------------------------------------------------------------*/

func (p *NMEAParser) ParseSentence(sentence string) (bool, error) {
	if len(sentence) < 6 || sentence[0] != '$' {
		return false, fmt.Errorf("%w: not a sentence: %q", ErrNMEAFormat, sentence)
	}

	var msg, err = removeChecksum(sentence)
	if err != nil {
		return false, err
	}

	var fields = strings.Split(msg, ",")
	if len(fields[0]) != 6 {
		return false, nil
	}

	var talker, kind = fields[0][1:3], fields[0][3:]

	if talker != "GP" && talker != "GN" {
		return false, nil
	}

	switch kind {
	case "RMC":
		err = p.parseRMC(fields[1:])
	case "GGA":
		err = p.parseGGA(fields[1:])
	default:
		return false, nil
	}

	if err != nil {
		return false, err
	}

	p.ready = true

	return true, nil
}

// field returns fields[n], or "" if the sentence is short.
func field(fields []string, n int) string {
	if n < len(fields) {
		return fields[n]
	}

	return ""
}

// twoDigits parses s[i:i+2].
func twoDigits(s string, i int) (uint8, error) {
	if len(s) < i+2 {
		return 0, fmt.Errorf("%w: short field %q", ErrNMEAFormat, s)
	}

	var n, err = strconv.ParseUint(s[i:i+2], 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrNMEAFormat, s, err)
	}

	return uint8(n), nil
}

/*-------------------------------------------------------------------
 *
 * Name:        parseRMC
 *
 * Examples:	$GPRMC,001431.00,V,,,,,,,121015,,,N*7C
 *		$GPRMC,003413.710,A,4237.1240,N,07120.8333,W,5.07,291.42,160614,,,A*7F
 *
 * Description:	Status 'A' is a fix: 3D if we have seen a positive
 *		altitude, else 2D.  Anything else is no fix.
 *
 *--------------------------------------------------------------------*/

func (p *NMEAParser) parseRMC(fields []string) error {
	var d = p.data

	if ptime := field(fields, 0); ptime != "" {
		var h, err1 = twoDigits(ptime, 0)
		var m, err2 = twoDigits(ptime, 2)
		var s, err3 = twoDigits(ptime, 4)
		if err1 != nil || err2 != nil || err3 != nil {
			return fmt.Errorf("%w: bad time %q", ErrNMEAFormat, ptime)
		}
		d.Hours, d.Minutes, d.Seconds = h, m, s
	}

	var pstatus = field(fields, 1)
	if len(pstatus) != 1 {
		return fmt.Errorf("%w: no status in RMC", ErrNMEAFormat)
	}

	if pstatus == "A" {
		if d.Altitude > 0 {
			d.Fix = Fix3D
		} else {
			d.Fix = Fix2D
		}
	} else {
		d.Fix = FixNone
	}

	if plat := field(fields, 2); plat != "" {
		var lat, err = latitudeFromNMEA(plat, field(fields, 3))
		if err != nil {
			return err
		}
		d.Latitude = lat
	}

	if plon := field(fields, 4); plon != "" {
		var lon, err = longitudeFromNMEA(plon, field(fields, 5))
		if err != nil {
			return err
		}
		d.Longitude = lon
	}

	d.Speed = 0
	if pknots := field(fields, 6); pknots != "" {
		var knots, err = strconv.ParseFloat(pknots, 64)
		if err != nil {
			return fmt.Errorf("%w: bad speed %q", ErrNMEAFormat, pknots)
		}
		d.Speed = uint16(math.Round(knots * 10))
	}

	/* When stationary, this field might be empty. */
	d.Heading = 0
	if pcourse := field(fields, 7); pcourse != "" {
		var course, err = strconv.ParseFloat(pcourse, 64)
		if err != nil {
			return fmt.Errorf("%w: bad course %q", ErrNMEAFormat, pcourse)
		}
		d.Heading = uint16(math.Round(course * 100))
	}

	if pdate := field(fields, 8); pdate != "" {
		var day, err1 = twoDigits(pdate, 0)
		var month, err2 = twoDigits(pdate, 2)
		var year, err3 = twoDigits(pdate, 4)
		if err1 != nil || err2 != nil || err3 != nil {
			return fmt.Errorf("%w: bad date %q", ErrNMEAFormat, pdate)
		}
		d.Day, d.Month, d.Year = day, month, 2000+uint16(year)
	}

	p.data = d

	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        parseGGA
 *
 * Examples:	$GPGGA,001429.00,,,,,0,00,99.99,,,,,,*68
 *		$GPGGA,003518.710,4237.1250,N,07120.8327,W,1,03,5.9,33.5,M,-33.5,M,,0000*5B
 *
 * Description:	Position comes from RMC.  GGA contributes what RMC
 *		lacks: satellites, HDOP and altitude.
 *
 *--------------------------------------------------------------------*/

func (p *NMEAParser) parseGGA(fields []string) error {
	var d = p.data

	if pfix := field(fields, 5); pfix == "0" {
		d.Fix = FixNone
	}

	if psats := field(fields, 6); psats != "" {
		var n, err = strconv.ParseUint(psats, 10, 8)
		if err != nil {
			return fmt.Errorf("%w: bad satellite count %q", ErrNMEAFormat, psats)
		}
		d.TrackedSats = uint8(n)
	}

	if phdop := field(fields, 7); phdop != "" {
		var hdop, err = strconv.ParseFloat(phdop, 64)
		if err != nil {
			return fmt.Errorf("%w: bad HDOP %q", ErrNMEAFormat, phdop)
		}
		d.DOP = uint16(math.Round(hdop * 10))
	}

	if palt := field(fields, 8); palt != "" {
		var alt, err = strconv.ParseFloat(palt, 64)
		if err != nil {
			return fmt.Errorf("%w: bad altitude %q", ErrNMEAFormat, palt)
		}
		d.Altitude = int32(math.Round(alt * 100))
	}

	p.data = d

	return nil
}

// latitudeFromNMEA converts ddmm.mmmm and N/S to degrees * 10^7.
func latitudeFromNMEA(s string, hemi string) (int32, error) {
	return coordFromNMEA(s, 2, hemi, "S")
}

// longitudeFromNMEA converts dddmm.mmmm and E/W to degrees * 10^7.
func longitudeFromNMEA(s string, hemi string) (int32, error) {
	return coordFromNMEA(s, 3, hemi, "W")
}

func coordFromNMEA(s string, degDigits int, hemi string, negative string) (int32, error) {
	if len(s) <= degDigits {
		return 0, fmt.Errorf("%w: bad coordinate %q", ErrNMEAFormat, s)
	}

	var deg, err1 = strconv.ParseUint(s[:degDigits], 10, 16)
	var minutes, err2 = strconv.ParseFloat(s[degDigits:], 64)
	if err1 != nil || err2 != nil || minutes < 0 || minutes >= 60 {
		return 0, fmt.Errorf("%w: bad coordinate %q", ErrNMEAFormat, s)
	}

	var v = int32(math.Round(1e7*minutes/60.0)) + int32(deg)*10000000

	switch hemi {
	case negative:
		v = -v
	case "N", "S", "E", "W":
	default:
		return 0, fmt.Errorf("%w: bad hemisphere %q", ErrNMEAFormat, hemi)
	}

	return v, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        ReadNMEA
 *
 * Purpose:     Read sentences as they arrive and store each update.
 *
 * Inputs:	r	- Serial port or anything else producing NMEA.
 *		store	- Where complete records go.
 *
 * Returns:	The read error that ended the loop, or ctx.Err().
 *
 * Description:	'$' starts a sentence, CR or LF ends it.  Bytes
 *		outside a sentence are ignored, as are sentences
 *		longer than NMEA_MAX_LEN.
 *
 *		Cancellation is noticed between bytes; a reader that
 *		never returns must be closed by the caller.
 *
 *--------------------------------------------------------------------*/

func ReadNMEA(ctx context.Context, r io.Reader, store *GPSStore) error {
	var rd = bufio.NewReader(r)
	var parser = NewNMEAParser()
	var l = logger.With("src", "nmea")

	var msg []byte
	var inSentence bool

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var ch, err = rd.ReadByte()
		if err != nil {
			l.Error("Lost communication with GPS receiver", "err", err)
			return err
		}

		switch ch {
		case '$':
			msg = append(msg[:0], ch)
			inSentence = true
		case '\r', '\n':
			if inSentence {
				handleSentence(l, parser, string(msg), store)
			}
			inSentence = false
			msg = msg[:0]
		default:
			if !inSentence {
				continue
			}
			if len(msg) >= NMEA_MAX_LEN {
				l.Debug("Dropping over-long sentence")
				inSentence = false
				msg = msg[:0]
				continue
			}
			msg = append(msg, ch)
		}
	}
}

func handleSentence(l *log.Logger, parser *NMEAParser, sentence string, store *GPSStore) {
	l.Debug("NMEA", "sentence", sentence)

	var _, err = parser.ParseSentence(sentence)
	if err != nil {
		l.Warn("Bad sentence", "sentence", sentence, "err", err)
		return
	}

	if parser.DataReady() {
		store.Set(parser.Data())
	}
}
