// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock pinned to initial. Time moves only through
// Advance; timers and tickers registered against the clock fire when
// an Advance carries the clock past their deadline.
//
// Safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.registered = sync.NewCond(&c.mu)
	return c
}

// FakeClock is the deterministic Clock used in tests.
type FakeClock struct {
	mu         sync.Mutex
	now        time.Time
	pending    []*pendingTimer
	registered *sync.Cond
}

// pendingTimer is one scheduled After channel or ticker.
type pendingTimer struct {
	deadline time.Time
	ch       chan time.Time

	// every is the ticker period; zero for one-shot After waiters.
	every time.Duration

	// stopped marks a ticker whose Stop ran. It no longer fires and
	// is dropped at the next Advance.
	stopped bool
}

// Now returns the pinned time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that fires once the clock advances d past
// the current pinned time. A non-positive d fires immediately and
// registers nothing.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.add(&pendingTimer{deadline: c.now.Add(d), ch: ch})
	return ch
}

// NewTicker returns a Ticker firing every d of advanced time. Panics
// if d <= 0.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &pendingTimer{
		deadline: c.now.Add(d),
		ch:       make(chan time.Time, 1),
		every:    d,
	}
	c.add(timer)

	return &Ticker{
		C: timer.ch,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			timer.stopped = true
		},
	}
}

// add registers a timer and wakes WaitForTimers. Caller holds c.mu.
func (c *FakeClock) add(timer *pendingTimer) {
	c.pending = append(c.pending, timer)
	c.registered.Broadcast()
}

// Advance moves the clock forward by d, firing every timer and ticker
// whose deadline the move crosses, in deadline order. Sends never
// block: a tick nobody has drained yet is dropped, like time.Ticker.
// A ticker crossed several periods in one Advance fires once per
// period, subject to the same drop rule.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	// Rescheduled tickers may come due again within target, so keep
	// collecting until nothing fires.
	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool {
			return due[i].deadline.Before(due[j].deadline)
		})
		for _, timer := range due {
			select {
			case timer.ch <- target:
			default:
			}
		}
	}
}

// takeDue removes every live timer due at or before target from the
// pending list, reschedules tickers one period out, and returns what
// should fire. Stopped tickers are discarded here.
func (c *FakeClock) takeDue(target time.Time) []*pendingTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []*pendingTimer
	kept := c.pending[:0]
	for _, timer := range c.pending {
		switch {
		case timer.stopped:
		case !timer.deadline.After(target):
			due = append(due, timer)
		default:
			kept = append(kept, timer)
		}
	}
	for _, timer := range due {
		if timer.every > 0 {
			timer.deadline = timer.deadline.Add(timer.every)
			kept = append(kept, timer)
		}
	}
	c.pending = kept
	return due
}

// WaitForTimers blocks until at least n timers or tickers sit
// registered and unfired. Tests use it to order "the goroutine under
// test reached its select" before an Advance, without sleeping.
//
//	go func() { <-fakeClock.After(5 * time.Second) }()
//	fakeClock.WaitForTimers(1)
//	fakeClock.Advance(5 * time.Second)
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.liveLocked() < n {
		c.registered.Wait()
	}
}

// PendingCount reports the number of live (unstopped) pending timers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked()
}

func (c *FakeClock) liveLocked() int {
	live := 0
	for _, timer := range c.pending {
		if !timer.stopped {
			live++
		}
	}
	return live
}
