package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	Keep the flight track in a SQLite database.
 *
 * Description:	One row per position beacon, so the track can be
 *		recovered from the payload after landing even if
 *		nothing was heard on the ground.
 *
 *------------------------------------------------------------------*/

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// TrackPoint is one logged fix.
type TrackPoint struct {
	ID        uint      `gorm:"primarykey"`
	FixTime   time.Time `gorm:"index"`
	Latitude  int32     // degrees * 10^7
	Longitude int32     // degrees * 10^7
	Altitude  int32     // cm
	Speed     uint16    // knots * 10
	Heading   uint16    // degrees * 100
	DOP       uint16
	Sats      uint8
	Fix       int
	CreatedAt time.Time
}

func (TrackPoint) TableName() string {
	return "track_points"
}

func (p TrackPoint) GPSData() GPSData {
	var t = p.FixTime.UTC()

	return GPSData{
		Hours:       uint8(t.Hour()),
		Minutes:     uint8(t.Minute()),
		Seconds:     uint8(t.Second()),
		Day:         uint8(t.Day()),
		Month:       uint8(t.Month()),
		Year:        uint16(t.Year()),
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Altitude:    p.Altitude,
		Speed:       p.Speed,
		Heading:     p.Heading,
		DOP:         p.DOP,
		TrackedSats: p.Sats,
		Fix:         FixType(p.Fix),
	}
}

type TrackLog struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenTrackLog opens (or creates) the database at path.
func OpenTrackLog(path string) (*TrackLog, error) {
	var dialector = sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}

	var db, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open track log %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := configureSQLite(sqlDB); err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, err
	}

	if err := db.AutoMigrate(&TrackPoint{}); err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, fmt.Errorf("migrate track log: %w", err)
	}

	logger.Info("Track log ready", "path", path)

	return &TrackLog{db: db, now: time.Now}, nil
}

func configureSQLite(sqlDB *sql.DB) error {
	var pragmas = []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return nil
}

// Record stores gps.  A fix without a date is stamped with the system clock.
func (t *TrackLog) Record(gps *GPSData) error {
	var when = gps.Time()
	if when.IsZero() {
		when = t.now().UTC()
	}

	var p = TrackPoint{
		FixTime:   when,
		Latitude:  gps.Latitude,
		Longitude: gps.Longitude,
		Altitude:  gps.Altitude,
		Speed:     gps.Speed,
		Heading:   gps.Heading,
		DOP:       gps.DOP,
		Sats:      gps.TrackedSats,
		Fix:       int(gps.Fix),
	}

	return t.db.Create(&p).Error
}

// Recent returns up to n points, newest first.
func (t *TrackLog) Recent(n int) ([]TrackPoint, error) {
	var points []TrackPoint

	var err = t.db.Order("fix_time DESC, id DESC").Limit(n).Find(&points).Error

	return points, err
}

func (t *TrackLog) Close() error {
	var sqlDB, err = t.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
