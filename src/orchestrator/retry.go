package orchestrator

import (
	"context"
	"time"

	"github.com/canonical/rocks-toolbox/src/clock"
)

// backoff bounds a retry loop.
type backoff struct {
	attempts int
	delay    time.Duration
	factor   float64
}

// retry calls fn until it succeeds, returns an error retryable rejects, or
// the attempts run out. The delay grows by factor after every failed attempt.
func retry(ctx context.Context, clk clock.Clock, b backoff, retryable func(error) bool, fn func() error) error {
	delay := b.delay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !retryable(err) || attempt >= b.attempts {
			return err
		}
		if err := clock.Sleep(ctx, clk, delay); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * b.factor)
	}
}
