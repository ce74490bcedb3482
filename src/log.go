package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	Save transmitted packets to a log file.
 *
 * Description: Write separated properties into CSV format for easy
 *		reading and later processing.
 *
 *		The file name comes from a strftime pattern, UTC, in
 *		the log directory.  With the default "%Y-%m-%d.log" a
 *		new file is started every day.  A pattern without any
 *		conversions gives a single file.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lestrrat-go/strftime"

	"github.com/doismellburning/picaprs/internal/syncutil"
)

const DEFAULT_TXLOG_PATTERN = "%Y-%m-%d.log"

var txlogHeader = []string{"utime", "isotime", "kind", "source", "destination", "path", "info", "bytes", "outcome"}

type TxLog struct {
	dir     string
	pattern *strftime.Strftime

	mu        syncutil.Mutex
	fp        *os.File
	w         *csv.Writer
	openFname string
}

/*------------------------------------------------------------------
 *
 * Function:	OpenTxLog
 *
 * Inputs:	dir		- Log directory.  Created if missing;
 *				  the parent must exist.
 *
 *		pattern		- strftime pattern for the file name.
 *
 * Description:	Nothing is opened until the first transmission.
 *
 *------------------------------------------------------------------*/

func OpenTxLog(dir string, pattern string) (*TxLog, error) {
	if pattern == "" {
		pattern = DEFAULT_TXLOG_PATTERN
	}

	var p, err = strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: log file pattern %q: %w", ErrConfig, pattern, err)
	}

	var stat, statErr = os.Stat(dir)
	switch {
	case statErr == nil && !stat.IsDir():
		return nil, fmt.Errorf("%w: log location %q is not a directory", ErrConfig, dir)
	case statErr != nil:
		// We don't create multiple levels like "mkdir -p"
		if err := os.Mkdir(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		logger.Info("Created log directory", "dir", dir)
	}

	return &TxLog{dir: dir, pattern: p}, nil
}

// Transmitted appends one row.  Failures are logged, not returned.
func (l *TxLog) Transmitted(rec TransmitRecord) {
	if err := l.Write(rec); err != nil {
		logger.Error("Transmit log", "err", err)
	}
}

func (l *TxLog) Write(rec TransmitRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var now = rec.Time.UTC()
	var fname = l.pattern.FormatString(now)

	// Close current file if name has changed
	if l.fp != nil && fname != l.openFname {
		l.closeLocked() //nolint:errcheck
	}

	if l.fp == nil {
		if err := l.openLocked(fname); err != nil {
			return err
		}
	}

	var path = make([]string, 0, len(rec.Path))
	for _, r := range rec.Path {
		if !r.Call.IsBlank() {
			path = append(path, r.String())
		}
	}

	var outcome = "ok"
	if rec.Err != nil {
		outcome = rec.Err.Error()
	}

	l.w.Write([]string{ //nolint:errcheck // checked by Flush/Error below
		strconv.FormatInt(now.Unix(), 10),
		now.Format("2006-01-02T15:04:05Z"),
		rec.Packet.Kind,
		rec.Source.String(),
		rec.Packet.Dest.String(),
		strings.Join(path, ","),
		trimCR(messageText(rec.Packet.Message)),
		strconv.Itoa(rec.Bytes),
		outcome,
	})
	l.w.Flush()

	return l.w.Error()
}

func (l *TxLog) openLocked(fname string) error {
	var fullPath = filepath.Join(l.dir, fname)

	// A header goes in only if this will be the first line.
	var _, statErr = os.Stat(fullPath)
	var alreadyThere = statErr == nil

	logger.Info("Opening log file", "file", fullPath)

	var f, err = os.OpenFile(fullPath, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	l.fp = f
	l.w = csv.NewWriter(f)
	l.openFname = fname

	if !alreadyThere {
		l.w.Write(txlogHeader) //nolint:errcheck
	}

	return nil
}

func (l *TxLog) closeLocked() error {
	if l.fp == nil {
		return nil
	}

	l.w.Flush()
	var err = l.fp.Close()

	l.fp = nil
	l.w = nil
	l.openFname = ""

	return err
}

func (l *TxLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.closeLocked()
}
