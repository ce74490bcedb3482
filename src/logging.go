package picaprs

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

var logger = NewLogger(os.Stderr, log.InfoLevel)

// NewLogger returns the logger style used by all picaprs tools.
func NewLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "picaprs",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

// SetLogger replaces the package default logger.
func SetLogger(l *log.Logger) {
	logger = l
}

// Logger returns the package default logger.
func Logger() *log.Logger {
	return logger
}
