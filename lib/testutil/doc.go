// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil carries the helpers the waybus test suites share.
//
// [SocketDir] hands a test a short /tmp directory for Unix sockets.
// sun_path in sockaddr_un tops out at 108 bytes, and a deeply nested
// TMPDIR pushes t.TempDir() past that, so socket files get their own
// shallow home instead. Removal is registered on the test.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap channel
// operations in a bounded select, keeping time.After plumbing out of
// individual tests.
//
// [UniqueID] yields "prefix-N" strings from a process-wide counter,
// for tests that want distinguishable socket names or payloads
// without reaching for time.Now().
//
// Helpers fail the test through t.Fatalf instead of returning errors;
// broken setup is never worth continuing from.
//
// This package has no waybus-internal dependencies.
package testutil
