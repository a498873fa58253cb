// Package clock abstracts time for the polling and retry loops so tests can
// run them without waiting.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock provides the current time and timed waits.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives after duration d elapses.
	After(d time.Duration) <-chan time.Time
}

// Sleep waits for d on c, returning early with the context's error if ctx is
// cancelled first.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Fake returns a FakeClock starting at initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. Every wait advances the clock
// by its duration and fires immediately, so a loop that sleeps runs to
// completion without blocking while still observing the passage of time.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waits   []time.Duration
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After advances the clock by d and returns a channel that has already fired.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d > 0 {
		c.current = c.current.Add(d)
	}
	c.waits = append(c.waits, d)

	ch := make(chan time.Time, 1)
	ch <- c.current
	return ch
}

// Advance moves the clock forward without recording a wait.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Waits returns every duration waited on, in order.
func (c *FakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}
