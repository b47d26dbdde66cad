// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// RequireReceive reads one value from ch, failing the test when none
// arrives within timeout. The timeout select lives here so individual
// tests stay free of time.After plumbing.
//
//	event := testutil.RequireReceive(t, events, 5*time.Second, "waiting for event")
func RequireReceive[T any](t *testing.T, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without a value: %s", message(msgAndArgs))
		}
		return value
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, message(msgAndArgs))
	}
	panic("unreachable")
}

// RequireSend sends value on ch, failing the test when no receiver
// takes it within timeout.
func RequireSend[T any](t *testing.T, ch chan<- T, value T, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case ch <- value:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, message(msgAndArgs))
	}
}

// RequireClosed waits for ch to close (or yield a value), failing the
// test when neither happens within timeout. For readiness channels
// that signal by closing.
func RequireClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v waiting for channel close: %s", timeout, message(msgAndArgs))
	}
}

// message renders the trailing msgAndArgs of a Require helper: a lone
// string is used as-is, a string plus arguments goes through Sprintf.
func message(msgAndArgs []any) string {
	switch {
	case len(msgAndArgs) == 0:
		return "(no message)"
	case len(msgAndArgs) == 1:
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", msgAndArgs[0])
	default:
		if format, ok := msgAndArgs[0].(string); ok {
			return fmt.Sprintf(format, msgAndArgs[1:]...)
		}
		return fmt.Sprintf("%v", msgAndArgs)
	}
}
