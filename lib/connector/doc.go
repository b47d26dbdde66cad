// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package connector maintains the single authoritative connection to
// the compositor event socket.
//
// One Run goroutine owns the connection end to end: dialing, the
// subscription handshake, the blocking read loop, and teardown. Other
// goroutines influence it only through ForceReconnect or context
// cancellation; both work by closing the handle, which unblocks the
// pending read (the native protocols have no mid-read cancellation).
//
// Failure handling is two-tiered: a failed connection attempt waits
// out a fixed backoff window before retrying, while a read failure on
// an established connection retries after a much shorter delay. A
// forced reconnect skips whichever wait is in progress.
package connector
