// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"fmt"
	"sync"

	"github.com/waybus/waybus/lib/compositor"
)

// Queue is the unbounded FIFO hand-off between the connector's
// blocking read goroutine and the broadcast loop. Push never blocks:
// the compositor read loop must keep draining regardless of how slow
// any subscriber is.
//
// The notify channel (capacity 1) signals the broadcast goroutine when
// new events are available. Repeated pushes coalesce into a single
// wakeup; the consumer drains the whole queue on each one.
//
// Safe for concurrent use by multiple goroutines.
type Queue struct {
	mu       sync.Mutex
	events   []compositor.Event
	enqueued uint64
	notify   chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Push appends an event to the queue and wakes the broadcast loop.
// Events must carry a non-empty kind; the translator filters misses
// before they reach the queue, so an empty kind here is a programming
// error surfaced to the caller.
func (q *Queue) Push(event compositor.Event) error {
	if event.Kind == "" {
		return fmt.Errorf("queue: refusing event with empty kind")
	}

	q.mu.Lock()
	q.events = append(q.events, event)
	q.enqueued++
	q.mu.Unlock()

	// Non-blocking signal to the broadcast loop.
	select {
	case q.notify <- struct{}{}:
	default:
	}

	return nil
}

// Pop removes and returns the oldest event. The second result is
// false when the queue is empty.
func (q *Queue) Pop() (compositor.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return compositor.Event{}, false
	}
	event := q.events[0]
	q.events[0] = compositor.Event{} // release payload for GC
	q.events = q.events[1:]
	return event, true
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// EnqueuedTotal returns the number of events pushed since creation.
func (q *Queue) EnqueuedTotal() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueued
}

// Notify returns the wakeup channel: at most one pending signal no
// matter how many pushes precede the next drain. The broadcast
// goroutine selects on it alongside its context.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}
