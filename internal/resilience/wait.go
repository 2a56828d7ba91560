package resilience

import (
	"context"
	"time"
)

// Wait sleeps for d or until ctx is done, whichever comes first. It returns
// ctx.Err() when interrupted. Non-positive durations return immediately.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitFunc matches Wait. Components take one so tests can skip real sleeps.
type WaitFunc func(ctx context.Context, d time.Duration) error
