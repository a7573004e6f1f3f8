package settle

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Poll when ready never reports true in time.
var ErrTimeout = errors.New("settle: timed out")

// Poll calls ready immediately and then every interval until it returns true,
// timeout elapses, or ctx ends.
func Poll(ctx context.Context, interval, timeout time.Duration, ready func() bool) error {
	if ready() {
		return nil
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			if ready() {
				return nil
			}
		case <-deadline.C:
			if ready() {
				return nil
			}
			return ErrTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
