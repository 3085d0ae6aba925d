// Package clock abstracts the time operations the console schedules on, so
// refresh timers and timestamps can be driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package the console depends on.
type Clock interface {
	Now() time.Time
	// After behaves like time.After. Non-positive durations fire immediately.
	After(d time.Duration) <-chan time.Time
	// NewTicker behaves like time.NewTicker and panics when d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C. C has capacity 1; late consumers miss ticks
// rather than queueing them.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns the ticker off. C is not closed.
func (t *Ticker) Stop() {
	if t != nil && t.stop != nil {
		t.stop()
	}
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stop: ticker.Stop}
}
