// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package command implements the broker's control channel: a
// request/response protocol over a dedicated Unix socket, separate
// from the one-way broadcast sockets.
//
// The wire format is one JSON line per message. A request names a
// command and carries a positional args array:
//
//	{"command": "get_status_data", "args": []}
//
// Every request gets exactly one response line:
//
//	{"status": "ok", "command": "get_status_data", "data": {...}}
//	{"status": "error", "command": "x", "message": "Unknown command: x"}
//
// Connections are persistent; a client may issue many commands over
// one connection and responses arrive in request order.
package command
