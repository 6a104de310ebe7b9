package scraper

import (
	"context"
	"time"
)

// pauseFunc abstracts cooperative sleeping so tests can observe waits
// without real delays.
type pauseFunc func(ctx context.Context, delay time.Duration)

// sleepWithContext blocks for delay or until the context finishes.
func sleepWithContext(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
