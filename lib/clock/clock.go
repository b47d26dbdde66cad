// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source injected into anything that waits:
// Real() in production, Fake() in tests. Code that would otherwise
// call time.Now, time.After, or time.NewTicker takes a Clock instead,
// so tests control when timers fire.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After mirrors time.After: the returned channel receives once d
	// has elapsed. A non-positive d delivers immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker mirrors time.NewTicker, delivering on C every d.
	// Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C until stopped. C is buffered
// with capacity 1 like time.Ticker's, so a slow consumer loses ticks
// instead of backing the clock up.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop ends the tick stream. It does not close C.
func (t *Ticker) Stop() { t.stopFunc() }
