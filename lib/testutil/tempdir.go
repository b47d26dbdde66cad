// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// SocketDir returns a fresh short-named directory under /tmp for a
// test's Unix sockets, removed again when the test finishes.
//
// t.TempDir() would be the obvious choice, but a nested TMPDIR can
// push socket paths past the 108-byte sun_path limit, and bind fails
// with an unhelpful EINVAL when that happens.
func SocketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "waybus-test-*")
	if err != nil {
		t.Fatalf("creating socket dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}
