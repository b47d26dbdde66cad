// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides small networking helpers shared by the
// broker's socket servers.
package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, broken pipe, or connection
// reset. These errors occur during normal teardown when a subscriber
// disconnects and the server's in-flight read or write fails as a
// result, or when a listener is closed to unblock its accept loop.
//
// A peer that vanishes without a clean shutdown produces ECONNRESET
// and EPIPE instead of EOF on the surviving side. All four are
// expected and should not be logged as errors.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
