// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package configwatch reacts to compositor configuration file changes.
//
// The broker forces a compositor reconnect whenever the watched file
// is modified, so that a reloaded compositor (whose event subscription
// died with the old process state) is re-subscribed promptly instead
// of waiting for the read loop to notice on its own.
//
// The watcher is an availability aid, not a correctness requirement:
// if the path cannot be watched, the broker logs a warning and runs
// without it, relying on read-failure detection alone.
package configwatch
