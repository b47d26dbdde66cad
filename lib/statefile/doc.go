// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package statefile provides atomic runtime state file operations for
// the broker. The broker periodically records its pid, compositor
// connection state, and delivery counters; external monitors read the
// file instead of opening a command connection.
//
// The intended workflow:
//
//  1. On startup: call [GuardStartup]. A fresh state file naming a
//     pid that is still alive means another broker owns the runtime
//     directory, and startup aborts rather than stealing its sockets.
//     A stale file or a dead pid is removed and startup proceeds.
//  2. While running: call [Write] on every state interval with an
//     updated [State].
//  3. Monitors: call [Read], or [Check] to also reject stale files.
//  4. On clean shutdown: call [Clear].
//
// The state file is written atomically (write to temporary file,
// fsync, rename) so readers never see a partial or corrupt state.
package statefile
