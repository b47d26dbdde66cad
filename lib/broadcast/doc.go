// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package broadcast delivers canonical compositor events to every
// connected subscriber.
//
// The package has two halves. Queue is the unbounded FIFO hand-off
// between the connector's blocking read goroutine and the broadcast
// loop: pushes never block, so a slow subscriber can never stall the
// compositor read. Server owns the well-known Unix sockets, the live
// subscriber set, and the single drain loop that serializes each event
// once and writes the identical bytes to every subscriber.
//
// Data flow:
//
//	connector → Queue.Push → notify → drain → serialize once → N subscriber sockets
//
// Subscribers send nothing on this channel. Each accepted connection
// gets a watch goroutine whose only job is to detect peer disconnection
// and deregister; a failed write deregisters the same way. One failing
// subscriber never delays or aborts delivery to the others, and a
// subscriber that connects between two events receives only the later
// one (no replay).
package broadcast
