// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"errors"
	"os"
	"strings"
)

// Backend identifies which compositor protocol a connection speaks.
// It is derived once per connection from the peer socket path and
// never changes for that connection's lifetime.
type Backend int

const (
	BackendUnknown Backend = iota
	BackendWayfire
	BackendSway
)

// String returns the lowercase backend name.
func (b Backend) String() string {
	switch b {
	case BackendWayfire:
		return "wayfire"
	case BackendSway:
		return "sway"
	default:
		return "unknown"
	}
}

// DetectBackend derives a backend from a compositor socket path by
// substring match. Wayfire sockets are named like
// "wayfire-wayland-1.socket"; sway sockets like
// "sway-ipc.1000.2215.sock".
func DetectBackend(socketPath string) Backend {
	path := strings.ToLower(socketPath)
	switch {
	case strings.Contains(path, "wayfire"):
		return BackendWayfire
	case strings.Contains(path, "sway"):
		return BackendSway
	default:
		return BackendUnknown
	}
}

// DiscoverSocket returns the compositor socket path advertised by the
// environment: $WAYFIRE_SOCKET first, then $SWAYSOCK.
func DiscoverSocket() (string, error) {
	if path := os.Getenv("WAYFIRE_SOCKET"); path != "" {
		return path, nil
	}
	if path := os.Getenv("SWAYSOCK"); path != "" {
		return path, nil
	}
	return "", errors.New("no compositor socket: neither WAYFIRE_SOCKET nor SWAYSOCK is set")
}
