// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrUnreachable indicates the compositor socket could not be
	// opened or the event subscription handshake failed.
	ErrUnreachable = errors.New("compositor unreachable")

	// ErrUnknownBackend indicates the socket path matches no known
	// compositor.
	ErrUnknownBackend = errors.New("unknown compositor backend")
)

// Conn is one live connection to a compositor's IPC socket, already
// subscribed to the event stream.
type Conn interface {
	// Backend reports the protocol this connection speaks.
	Backend() Backend

	// ReadEvent blocks until the compositor delivers the next raw
	// event. Replies to requests issued on the same connection are
	// consumed internally and never surface here.
	ReadEvent() (RawEvent, error)

	// Close closes the underlying socket. Safe to call from another
	// goroutine while ReadEvent is blocked; the pending read then
	// fails immediately. This is the only way to interrupt a read.
	Close() error
}

// Dial connects to the compositor socket at path, performs the
// backend's event subscription handshake, and returns the live
// connection. The backend is derived from the socket path.
func Dial(path string) (Conn, error) {
	backend := DetectBackend(path)
	if backend == BackendUnknown {
		return nil, fmt.Errorf("%w: socket path %q names neither wayfire nor sway", ErrUnknownBackend, path)
	}
	socket, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnreachable, path, err)
	}
	switch backend {
	case BackendWayfire:
		return newWayfireConn(socket)
	default:
		return newSwayConn(socket)
	}
}
