// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package compositor speaks the native IPC protocols of the supported
// Wayland compositors and normalizes their event vocabularies into the
// broker's canonical schema.
//
// The package is organized around the upstream data flow:
//
//   - backend.go: backend identity (wayfire or sway) derived from the
//     socket path, and socket discovery from the environment
//   - conn.go: the Conn interface (subscribe handshake + blocking
//     event reads) and Dial
//   - wayfire.go: wayfire's length-prefixed JSON framing
//   - sway.go: the i3 IPC framing sway inherits
//   - event.go: RawEvent, the canonical Event, and its wire encoding
//   - translate.go: the pure translation function mapping raw backend
//     events to canonical events
//
// Translation is selected by backend identity, never by sniffing the
// message shape, so rules from different compositors cannot mix within
// one connection's lifetime.
package compositor
