package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:   	Latest location from the GPS receiver.
 *
 * Description:	The GPS readers (NMEA serial or gpsd) deposit the
 *		current fix here as it becomes available.  The beacon
 *		scheduler, metrics and logs read it back or subscribe
 *		to updates.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"time"

	"github.com/doismellburning/picaprs/internal/syncutil"
)

type FixType int

const (
	FixNone FixType = 0
	Fix2D   FixType = 2
	Fix3D   FixType = 3
)

func (f FixType) String() string {
	switch f {
	case Fix2D:
		return "2D"
	case Fix3D:
		return "3D"
	}

	return "none"
}

// GPSData is one fix, in the integer units the packet encoders use.
type GPSData struct {
	Hours, Minutes, Seconds uint8
	Month, Day              uint8
	Year                    uint16

	Latitude  int32 // degrees * 10^7, north positive
	Longitude int32 // degrees * 10^7, east positive
	Altitude  int32 // cm above mean sea level

	Speed   uint16 // knots * 10
	Heading uint16 // degrees * 100

	DOP         uint16 // HDOP * 10
	TrackedSats uint8
	VisibleSats uint8

	Fix            FixType
	TimeToFirstFix uint16 // seconds
}

func (g *GPSData) HasFix() bool {
	return g.Fix != FixNone
}

func (g *GPSData) LatDegrees() float64 {
	return float64(g.Latitude) / 1e7
}

func (g *GPSData) LonDegrees() float64 {
	return float64(g.Longitude) / 1e7
}

// AltitudeFeet truncates toward zero.
func (g *GPSData) AltitudeFeet() int32 {
	return int32(float64(g.Altitude) / 30.48)
}

// Time is the UTC time of the fix.  Zero if no date has been seen.
func (g *GPSData) Time() time.Time {
	if g.Year == 0 {
		return time.Time{}
	}

	return time.Date(int(g.Year), time.Month(g.Month), int(g.Day),
		int(g.Hours), int(g.Minutes), int(g.Seconds), 0, time.UTC)
}

func (g *GPSData) String() string {
	return fmt.Sprintf("%02d:%02d:%02d fix=%s lat=%.6f lon=%.6f alt=%.1fm spd=%.1fkt trk=%.2f dop=%d.%d sats=%d/%d",
		g.Hours, g.Minutes, g.Seconds, g.Fix,
		g.LatDegrees(), g.LonDegrees(), float64(g.Altitude)/100,
		float64(g.Speed)/10, float64(g.Heading)/100,
		g.DOP/10, g.DOP%10, g.TrackedSats, g.VisibleSats)
}

/*-------------------------------------------------------------------
 *
 * Name:        GPSStore
 *
 * Purpose:    	Hold the most recent fix.
 *
 * Description:	A critical region avoids inconsistency between fields.
 *		Subscribers get a copy of every update on a buffered
 *		channel.  A slow subscriber misses updates rather than
 *		holding up the reader.
 *
 *--------------------------------------------------------------------*/

type GPSStore struct {
	mu      syncutil.Mutex
	data    GPSData
	seen    bool
	started time.Time
	subs    []chan GPSData

	now func() time.Time
}

func NewGPSStore() *GPSStore {
	return &GPSStore{
		started: time.Now(),
		now:     time.Now,
	}
}

// Set replaces the current fix and notifies subscribers.
// TimeToFirstFix is stamped on the first fix and carried after that.
func (s *GPSStore) Set(d GPSData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.HasFix() && !s.seen {
		var ttff = s.now().Sub(s.started) / time.Second
		if ttff < 1 {
			ttff = 1
		}
		if ttff > 0xffff {
			ttff = 0xffff
		}
		d.TimeToFirstFix = uint16(ttff)
		s.seen = true

		logger.Info("First GPS fix", "fix", d.Fix, "ttff", ttff)
	} else {
		d.TimeToFirstFix = s.data.TimeToFirstFix
	}

	if d.Fix != s.data.Fix {
		logger.Info("GPS fix changed", "from", s.data.Fix, "to", d.Fix)
	}

	s.data = d

	for _, ch := range s.subs {
		select {
		case ch <- d:
		default:
		}
	}
}

// Get returns a copy of the current fix.
func (s *GPSStore) Get() GPSData {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.data
}

// Updates returns a channel that receives every subsequent fix.
func (s *GPSStore) Updates() <-chan GPSData {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ch = make(chan GPSData, 4)
	s.subs = append(s.subs, ch)

	return ch
}
