// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var idCounter atomic.Uint64

// UniqueID returns "prefix-N" with N drawn from a process-wide
// counter, so two calls never collide. Reach for this rather than
// time.Now() when a test needs payload markers or socket names it
// can tell apart in assertions.
//
//	marker := testutil.UniqueID("payload")  // "payload-1", "payload-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}
