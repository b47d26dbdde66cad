// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package connector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/waybus/waybus/lib/broadcast"
	"github.com/waybus/waybus/lib/clock"
	"github.com/waybus/waybus/lib/compositor"
)

// State describes the connector's view of the compositor link.
type State int32

const (
	// StateDisconnected: no connection and no attempt in progress
	// (startup, or waiting out the backoff after a failed attempt).
	StateDisconnected State = iota
	// StateConnecting: a dial and watch handshake is in progress.
	StateConnecting
	// StateConnected: a live connection exists and the read loop is
	// draining events.
	StateConnected
	// StateDegraded: an established connection failed mid-read;
	// waiting the short retry delay before reconnecting.
	StateDegraded
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

// Default reconnect timing. A failed connection attempt waits out the
// full backoff window before the next try; a read failure on an
// established connection retries after the shorter delay. Both are
// overridable via configuration.
const (
	DefaultReconnectBackoff = 10 * time.Second
	DefaultReadRetryDelay   = 1 * time.Second
)

// Dialer opens a compositor connection: socket dial plus the
// subscription handshake. Called once per connection attempt.
type Dialer func() (compositor.Conn, error)

// Connector owns the single connection to the compositor. Its Run
// goroutine is the only one that dials, reads, and tears down; other
// goroutines interact with it through ForceReconnect and the state
// accessors.
type Connector struct {
	// ReconnectBackoff is the wait after a failed connection attempt.
	// Set before Run; defaults to DefaultReconnectBackoff.
	ReconnectBackoff time.Duration

	// ReadRetryDelay is the wait after a read failure on a live
	// connection. Set before Run; defaults to DefaultReadRetryDelay.
	ReadRetryDelay time.Duration

	dial   Dialer
	queue  *broadcast.Queue
	clk    clock.Clock
	logger *slog.Logger

	state   atomic.Int32
	backend atomic.Int32
	dropped atomic.Uint64

	// force carries at most one pending reconnect request; rapid
	// ForceReconnect calls coalesce.
	force chan struct{}

	mu       sync.Mutex
	conn     compositor.Conn
	stopping bool
}

// New creates a connector that dials with dial and pushes translated
// events onto queue.
func New(dial Dialer, queue *broadcast.Queue, clk clock.Clock, logger *slog.Logger) *Connector {
	return &Connector{
		ReconnectBackoff: DefaultReconnectBackoff,
		ReadRetryDelay:   DefaultReadRetryDelay,
		dial:             dial,
		queue:            queue,
		clk:              clk,
		logger:           logger,
		force:            make(chan struct{}, 1),
	}
}

// Run connects to the compositor and drains its event stream until
// the context is cancelled, reconnecting as needed. Blocks for the
// connector's lifetime; run it on its own goroutine.
func (c *Connector) Run(ctx context.Context) error {
	// Closing the live handle is the only way to unblock a pending
	// read, so shutdown closes whatever connection is current.
	go func() {
		<-ctx.Done()
		c.closeForShutdown()
	}()

	for {
		if ctx.Err() != nil {
			c.state.Store(int32(StateDisconnected))
			return nil
		}

		c.state.Store(int32(StateConnecting))
		conn, err := c.dial()
		if err != nil {
			c.state.Store(int32(StateDisconnected))
			c.logger.Warn("compositor connection failed",
				"error", err,
				"backoff", c.ReconnectBackoff,
			)
			if !c.sleep(ctx, c.ReconnectBackoff) {
				c.state.Store(int32(StateDisconnected))
				return nil
			}
			continue
		}

		if !c.adopt(conn) {
			c.state.Store(int32(StateDisconnected))
			return nil
		}
		c.backend.Store(int32(conn.Backend()))
		c.state.Store(int32(StateConnected))
		c.logger.Info("compositor connected", "backend", conn.Backend().String())

		forced := c.readLoop(ctx, conn)
		c.release()

		if ctx.Err() != nil {
			c.state.Store(int32(StateDisconnected))
			return nil
		}
		if forced {
			continue
		}

		c.state.Store(int32(StateDegraded))
		if !c.sleep(ctx, c.ReadRetryDelay) {
			c.state.Store(int32(StateDisconnected))
			return nil
		}
	}
}

// readLoop drains one connection until it fails. Returns true when
// the failure was a forced reconnect, meaning the caller should skip
// the retry delay and reconnect immediately.
func (c *Connector) readLoop(ctx context.Context, conn compositor.Conn) bool {
	backend := conn.Backend()
	for {
		raw, err := conn.ReadEvent()
		if err != nil {
			conn.Close()

			// ForceReconnect signals before closing the handle, so a
			// pending signal here means this failure was requested.
			select {
			case <-c.force:
				c.logger.Info("reconnect forced", "backend", backend.String())
				return true
			default:
			}

			if ctx.Err() == nil {
				c.logger.Warn("compositor read failed",
					"backend", backend.String(),
					"error", err,
					"retry", c.ReadRetryDelay,
				)
			}
			return false
		}

		event, ok := compositor.Translate(backend, raw)
		if !ok {
			c.dropped.Add(1)
			continue
		}
		if err := c.queue.Push(event); err != nil {
			c.logger.Error("event enqueue failed", "kind", event.Kind, "error", err)
		}
	}
}

// sleep waits for the given duration, a forced reconnect, or
// shutdown. Returns false only when the context was cancelled.
func (c *Connector) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.force:
		c.logger.Info("reconnect forced, skipping wait")
		return true
	case <-c.clk.After(d):
		return true
	}
}

// ForceReconnect requests an immediate reconnect: any backoff or
// retry delay in progress is skipped, and a live connection is closed
// to unblock its pending read. Safe to call from any goroutine; rapid
// calls coalesce into one reconnect.
func (c *Connector) ForceReconnect() {
	// Signal first: the read loop distinguishes a forced close from a
	// genuine failure by finding this signal pending.
	select {
	case c.force <- struct{}{}:
	default:
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// adopt records conn as the live connection. Returns false when
// shutdown already started, in which case conn is closed and the
// caller must exit.
func (c *Connector) adopt(conn compositor.Conn) bool {
	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		conn.Close()
		return false
	}
	c.conn = conn
	c.mu.Unlock()
	return true
}

// release clears the live connection after its read loop exits.
func (c *Connector) release() {
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
}

// closeForShutdown marks the connector stopping and closes the live
// connection, if any. A connection adopted concurrently is closed by
// adopt instead.
func (c *Connector) closeForShutdown() {
	c.mu.Lock()
	c.stopping = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// State returns the current connection state.
func (c *Connector) State() State {
	return State(c.state.Load())
}

// Backend returns the backend of the current connection, or the last
// connected backend after a disconnect. BackendUnknown before the
// first successful connection.
func (c *Connector) Backend() compositor.Backend {
	return compositor.Backend(c.backend.Load())
}

// DroppedTotal returns the number of raw messages discarded because
// no translation rule matched.
func (c *Connector) DroppedTotal() uint64 {
	return c.dropped.Load()
}
