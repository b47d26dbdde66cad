// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/waybus/waybus/lib/compositor"
	"github.com/waybus/waybus/lib/netutil"
)

// Server accepts subscriber connections on one or more unix sockets
// and fans queued events out to all of them. Subscribers are sinks:
// anything they write is discarded, and a failed write removes them.
//
// Delivery starts from the moment a subscriber connects. There is no
// replay of earlier events and no per-subscriber buffering; a
// subscriber that cannot keep up slows only its own socket writes.
type Server struct {
	paths  []string
	queue  *Queue
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[uint64]net.Conn
	nextID      uint64

	listeners         []net.Listener
	activeConnections sync.WaitGroup
	deliveredTotal    atomic.Uint64
}

// NewServer creates a broadcast server that will listen on every path
// in paths. Sockets are not bound until Run is called.
func NewServer(paths []string, queue *Queue, logger *slog.Logger) *Server {
	return &Server{
		paths:       paths,
		queue:       queue,
		logger:      logger,
		subscribers: make(map[uint64]net.Conn),
	}
}

// Run binds all configured sockets, then serves subscribers until the
// context is cancelled. Binding is all-or-nothing: if any socket path
// cannot be bound, already-bound listeners are closed and the error is
// returned so the caller can treat it as fatal.
func (s *Server) Run(ctx context.Context) error {
	if len(s.paths) == 0 {
		return fmt.Errorf("broadcast: no socket paths configured")
	}

	for _, path := range s.paths {
		listener, err := s.bind(path)
		if err != nil {
			for _, bound := range s.listeners {
				bound.Close()
			}
			s.listeners = nil
			return err
		}
		s.listeners = append(s.listeners, listener)
		s.logger.Info("broadcast socket listening", "path", path)
	}

	// Close every listener when the context is cancelled so the
	// accept loops unblock.
	go func() {
		<-ctx.Done()
		for _, listener := range s.listeners {
			listener.Close()
		}
	}()

	var acceptLoops sync.WaitGroup
	for _, listener := range s.listeners {
		acceptLoops.Add(1)
		go func(listener net.Listener) {
			defer acceptLoops.Done()
			s.acceptLoop(ctx, listener)
		}(listener)
	}

	s.broadcastLoop(ctx)

	acceptLoops.Wait()
	s.closeAllSubscribers()
	s.activeConnections.Wait()

	for _, path := range s.paths {
		os.Remove(path)
	}
	return nil
}

// bind creates a unix listener at path, removing a stale socket file
// from a previous run if one is present.
func (s *Server) bind(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	return listener, nil
}

// acceptLoop accepts subscribers on one listener until it is closed.
func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		id := s.register(conn)
		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.watchSubscriber(id, conn)
		}()
	}
}

// register adds a subscriber and returns its id.
func (s *Server) register(conn net.Conn) uint64 {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = conn
	count := len(s.subscribers)
	s.mu.Unlock()

	s.logger.Info("subscriber connected", "id", id, "subscribers", count)
	return id
}

// remove drops a subscriber and closes its connection. Safe to call
// more than once for the same id; only the first call closes.
func (s *Server) remove(id uint64, reason string) {
	s.mu.Lock()
	conn, ok := s.subscribers[id]
	if ok {
		delete(s.subscribers, id)
	}
	count := len(s.subscribers)
	s.mu.Unlock()

	if !ok {
		return
	}
	conn.Close()
	s.logger.Info("subscriber removed",
		"id", id, "reason", reason, "subscribers", count)
}

// watchSubscriber blocks reading from a subscriber connection until it
// errors. Subscribers have nothing meaningful to say on this socket;
// the read exists to detect disconnects promptly instead of waiting
// for the next broadcast write to fail.
func (s *Server) watchSubscriber(id uint64, conn net.Conn) {
	buf := make([]byte, 512)
	for {
		if _, err := conn.Read(buf); err != nil {
			s.remove(id, "disconnected")
			return
		}
	}
}

// broadcastLoop waits for queue signals and drains the queue into the
// subscriber set until the context is cancelled.
func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.queue.Notify():
			s.drainQueue()
		}
	}
}

// drainQueue pops every queued event, serializes each exactly once,
// and writes the line to all current subscribers.
func (s *Server) drainQueue() {
	for {
		event, ok := s.queue.Pop()
		if !ok {
			return
		}

		line, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("event serialization failed",
				"kind", event.Kind, "error", err)
			continue
		}
		line = append(line, '\n')

		s.fanOut(line)
		s.deliveredTotal.Add(1)
	}
}

// fanOut writes one serialized event line to every subscriber,
// removing any whose write fails. A broken subscriber never affects
// delivery to the others.
func (s *Server) fanOut(line []byte) {
	s.mu.Lock()
	targets := make(map[uint64]net.Conn, len(s.subscribers))
	for id, conn := range s.subscribers {
		targets[id] = conn
	}
	s.mu.Unlock()

	for id, conn := range targets {
		if _, err := conn.Write(line); err != nil {
			if netutil.IsExpectedCloseError(err) {
				s.logger.Debug("subscriber write failed",
					"id", id, "error", err)
			} else {
				s.logger.Warn("subscriber write failed",
					"id", id, "error", err)
			}
			s.remove(id, "write failed")
		}
	}
}

// Publish enqueues an event as if it had arrived from the compositor.
// The command channel uses this to inject synthetic events.
func (s *Server) Publish(event compositor.Event) error {
	return s.queue.Push(event)
}

// SubscriberCount returns the number of connected subscribers.
func (s *Server) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// DeliveredTotal returns the number of events fanned out since start.
func (s *Server) DeliveredTotal() uint64 {
	return s.deliveredTotal.Load()
}

// closeAllSubscribers closes every subscriber connection so their
// watch goroutines unblock during shutdown.
func (s *Server) closeAllSubscribers() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.subscribers))
	for _, conn := range s.subscribers {
		conns = append(conns, conn)
	}
	s.subscribers = make(map[uint64]net.Conn)
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
