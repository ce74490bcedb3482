//go:build deadlock

// Package syncutil provides the mutex types used by the transmit engine.
// This file is compiled when building with -tags=deadlock.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

func init() {
	// A whole frame at 1200 baud with a long TXDELAY fits comfortably
	// inside this; anything longer is a stuck engine.
	deadlock.Opts.DeadlockTimeout = 10 * time.Second
}

// Mutex wraps deadlock.Mutex for deadlock detection.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex wraps deadlock.RWMutex for deadlock detection.
type RWMutex struct {
	deadlock.RWMutex
}
