// Package readiness waits for a materialized directory to become visible
// before an external tool is pointed at it.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrNotReady is returned when no matching file appeared before the timeout
var ErrNotReady = errors.New("directory not ready")

// Defaults used when a Gate field is zero
const (
	DefaultTimeout  = 30 * time.Second
	DefaultInterval = 500 * time.Millisecond
)

// Gate polls a directory for a file with a given extension
type Gate struct {
	// Timeout bounds the total wait. Zero means a single check.
	Timeout time.Duration
	// Interval is the minimum spacing between two checks.
	Interval time.Duration

	check func(dir, ext string) (bool, error)
	now   func() time.Time
}

// New returns a gate with the given bounds
func New(timeout, interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout < 0 {
		timeout = 0
	}
	return &Gate{Timeout: timeout, Interval: interval}
}

// Wait blocks until a regular file ending in ext exists directly under dir,
// the timeout elapses (ErrNotReady) or ctx is done.
func (g *Gate) Wait(ctx context.Context, dir, ext string) error {
	check := g.check
	if check == nil {
		check = HasFileWithExt
	}
	now := g.now
	if now == nil {
		now = time.Now
	}
	interval := g.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := now()
	for {
		found, err := check(dir, ext)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", dir, err)
		}
		if found {
			return nil
		}

		elapsed := now().Sub(start)
		if elapsed >= g.Timeout {
			return fmt.Errorf("no *%s file in %s after %s: %w", ext, dir, g.Timeout, ErrNotReady)
		}

		wait := interval
		if remaining := g.Timeout - elapsed; remaining < wait {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// HasFileWithExt reports whether dir directly contains a regular file whose
// name ends in ext. A missing directory is not an error.
func HasFileWithExt(dir, ext string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ext) {
			return true, nil
		}
	}
	return false, nil
}
