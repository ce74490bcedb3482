package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:   	Get location from gpsd instead of a serial port.
 *
 * Description:	TPV reports carry the position, SKY reports the
 *		satellites and DOP.  Each TPV completes a record.
 *
 *		gpsd sometimes goes quiet without closing the
 *		connection, so the watch is restarted after a
 *		period of silence.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stratoberry/go-gpsd"

	"github.com/doismellburning/picaprs/internal/syncutil"
)

const DEFAULT_GPSD_ADDR = "localhost:2947"

const KNOTS_PER_MPS = 1.943844

type gpsdSession interface {
	AddFilter(class string, f gpsd.Filter)
	Watch() chan bool
}

type GPSDSource struct {
	Addr    string
	Store   *GPSStore
	Silence time.Duration
	Retry   time.Duration

	mu   syncutil.Mutex
	data GPSData

	dial   func(addr string) (gpsdSession, error)
	logger *log.Logger
}

func NewGPSDSource(addr string, store *GPSStore) *GPSDSource {
	if addr == "" {
		addr = DEFAULT_GPSD_ADDR
	}

	return &GPSDSource{
		Addr:    addr,
		Store:   store,
		Silence: time.Minute,
		Retry:   10 * time.Second,
		dial: func(addr string) (gpsdSession, error) {
			return gpsd.Dial(addr)
		},
		logger: logger.With("src", "gpsd"),
	}
}

// Run watches gpsd until ctx is done, reconnecting as needed.
func (g *GPSDSource) Run(ctx context.Context) error {
	for {
		g.monitor(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.Retry):
		}
	}
}

func (g *GPSDSource) monitor(ctx context.Context) {
	var watchdog = make(chan struct{}, 1)
	var kick = func() {
		select {
		case watchdog <- struct{}{}:
		default:
		}
	}

	g.logger.Debug("Dialing", "addr", g.Addr)

	var session, err = g.dial(g.Addr)
	if err != nil {
		g.logger.Error("Dial gpsd", "addr", g.Addr, "err", err)
		return
	}

	session.AddFilter("TPV", func(r interface{}) {
		kick()
		if tpv, ok := r.(*gpsd.TPVReport); ok {
			g.Store.Set(g.applyTPV(tpv))
		}
	})
	session.AddFilter("SKY", func(r interface{}) {
		kick()
		if sky, ok := r.(*gpsd.SKYReport); ok {
			g.applySKY(sky)
		}
	})

	var done = session.Watch()
	var silence = time.NewTimer(g.Silence)
	defer silence.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			g.logger.Warn("gpsd watch stopped; restarting")
			return
		case <-silence.C:
			g.logger.Warn("gpsd has gone quiet; restarting", "silence", g.Silence)
			return
		case <-watchdog:
			silence.Reset(g.Silence)
		}
	}
}

func (g *GPSDSource) applyTPV(tpv *gpsd.TPVReport) GPSData {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.data = tpvToGPSData(g.data, tpv)

	return g.data
}

func (g *GPSDSource) applySKY(sky *gpsd.SKYReport) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.data = skyToGPSData(g.data, sky)
}

func tpvToGPSData(d GPSData, tpv *gpsd.TPVReport) GPSData {
	switch tpv.Mode {
	case gpsd.Mode3D:
		d.Fix = Fix3D
	case gpsd.Mode2D:
		d.Fix = Fix2D
	default:
		d.Fix = FixNone
		return d
	}

	if !tpv.Time.IsZero() {
		var t = tpv.Time.UTC()
		d.Hours, d.Minutes, d.Seconds = uint8(t.Hour()), uint8(t.Minute()), uint8(t.Second())
		d.Day, d.Month, d.Year = uint8(t.Day()), uint8(t.Month()), uint16(t.Year())
	}

	d.Latitude = int32(math.Round(tpv.Lat * 1e7))
	d.Longitude = int32(math.Round(tpv.Lon * 1e7))

	if d.Fix == Fix3D {
		d.Altitude = int32(math.Round(tpv.Alt * 100))
	}

	d.Speed = uint16(math.Round(math.Max(tpv.Speed, 0) * KNOTS_PER_MPS * 10))
	d.Heading = uint16(math.Round(math.Mod(math.Max(tpv.Track, 0), 360) * 100))

	return d
}

func skyToGPSData(d GPSData, sky *gpsd.SKYReport) GPSData {
	var used uint8
	for _, s := range sky.Satellites {
		if s.Used {
			used++
		}
	}

	d.TrackedSats = used
	d.VisibleSats = uint8(min(len(sky.Satellites), math.MaxUint8))
	d.DOP = uint16(math.Round(math.Max(sky.Hdop, 0) * 10))

	return d
}
