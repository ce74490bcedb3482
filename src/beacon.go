package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:   	Transmit position and status on a fixed schedule.
 *
 * Description:	Every GPS update is checked against the slots.
 *		By default a MIC-E position goes out at seconds 0
 *		and 30 of each minute and a status report at 15.
 *
 *		Nothing is sent without a fix.
 *
 *		RMC and GGA both mark new data within the same
 *		second, so each slot is sent at most once per minute.
 *
 *		A failed transmission is logged and forgotten.  The
 *		next slot will try again.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"slices"

	"github.com/charmbracelet/log"
)

// Sender puts one packet on the air.
type Sender interface {
	Transmit(ctx context.Context, pkt Packet) error
}

// TrackRecorder keeps the fixes that position beacons were made from.
type TrackRecorder interface {
	Record(gps *GPSData) error
}

var DEFAULT_POSITION_SLOTS = []int{0, 30}
var DEFAULT_STATUS_SLOTS = []int{15}

type minuteStamp struct {
	year               uint16
	month, day, hour   uint8
	minute, slotSecond uint8
}

type BeaconScheduler struct {
	Sender        Sender
	StatusDest    Callsign
	PositionSlots []int
	StatusSlots   []int
	StatusPrefix  string
	StatusComment string
	MicE          MicEOptions

	Track   TrackRecorder // optional
	Metrics *Metrics      // optional

	sent   map[minuteStamp]struct{}
	logger *log.Logger
}

func NewBeaconScheduler(sender Sender, statusDest Callsign) *BeaconScheduler {
	return &BeaconScheduler{
		Sender:        sender,
		StatusDest:    statusDest,
		PositionSlots: DEFAULT_POSITION_SLOTS,
		StatusSlots:   DEFAULT_STATUS_SLOTS,
		StatusPrefix:  DEFAULT_STATUS_PREFIX,
		StatusComment: DEFAULT_STATUS_COMMENT,
		MicE:          DefaultMicEOptions(),
		sent:          make(map[minuteStamp]struct{}),
		logger:        logger.With("src", "beacon"),
	}
}

// Run handles updates until ctx is done or the channel is closed.
func (b *BeaconScheduler) Run(ctx context.Context, updates <-chan GPSData) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case gps, ok := <-updates:
			if !ok {
				return nil
			}
			b.Handle(ctx, gps)
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        Handle
 *
 * Purpose:     Act on one GPS update.
 *
 * Returns:	Number of packets attempted.
 *
 *--------------------------------------------------------------------*/

func (b *BeaconScheduler) Handle(ctx context.Context, gps GPSData) int {
	b.Metrics.GPSUpdate(&gps)

	if !gps.HasFix() {
		return 0
	}

	var attempted = 0
	var sec = int(gps.Seconds)

	if slices.Contains(b.PositionSlots, sec) && b.claimSlot(&gps) {
		b.sendPosition(ctx, &gps)
		attempted++
	}

	if slices.Contains(b.StatusSlots, sec) && b.claimSlot(&gps) {
		b.sendStatus(ctx, &gps)
		attempted++
	}

	return attempted
}

// claimSlot reports whether this second of this minute is still unsent,
// and marks it sent.  A second listed as both position and status slot
// gets only the position report.
func (b *BeaconScheduler) claimSlot(gps *GPSData) bool {
	var key = minuteStamp{
		year:       gps.Year,
		month:      gps.Month,
		day:        gps.Day,
		hour:       gps.Hours,
		minute:     gps.Minutes,
		slotSecond: gps.Seconds,
	}

	if _, done := b.sent[key]; done {
		return false
	}

	// Only the current minute matters.
	for k := range b.sent {
		if k.minute != key.minute || k.hour != key.hour || k.day != key.day {
			delete(b.sent, k)
		}
	}

	b.sent[key] = struct{}{}

	return true
}

func (b *BeaconScheduler) sendPosition(ctx context.Context, gps *GPSData) {
	var dest, info = b.MicE.Encode(gps)

	b.logger.Debug("Position", "lat", gps.LatDegrees(), "lon", gps.LonDegrees())

	var err = b.Sender.Transmit(ctx, Packet{
		Kind:     KIND_POSITION,
		Message:  info,
		Dest:     dest,
		Position: gps,
	})
	if err != nil {
		b.logger.Warn("Position beacon dropped", "err", err)
	}

	if b.Track != nil {
		if err := b.Track.Record(gps); err != nil {
			b.logger.Warn("Track log", "err", err)
		}
	}
}

func (b *BeaconScheduler) sendStatus(ctx context.Context, gps *GPSData) {
	var err = b.Sender.Transmit(ctx, Packet{
		Kind:     KIND_STATUS,
		Message:  StatusText(gps, b.StatusPrefix, b.StatusComment),
		Dest:     b.StatusDest,
		Position: gps,
	})
	if err != nil {
		b.logger.Warn("Status beacon dropped", "err", err)
	}
}
