// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time behind an injectable interface.
//
// Code that waits on timers takes a Clock instead of calling time.Now,
// time.After, or time.NewTicker itself: Real() delegates to package
// time, while Fake() holds time still until a test calls Advance. That
// substitution is what lets the connector's reconnect backoff and the
// broker's periodic state writes run under test without wall-clock
// sleeps.
//
// # Wiring Pattern
//
// Structs that use time carry a Clock field:
//
//	type Connector struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	c := connector.New(..., clock.Real())
//
// In tests:
//
//	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c := connector.New(..., clk)
//	// ... start goroutines ...
//	clk.WaitForTimers(1)          // wait for the backoff timer to register
//	clk.Advance(10 * time.Second) // fire it deterministically
//
// # FakeClock Synchronization
//
// Each After or NewTicker call on a FakeClock registers a pending
// timer, and WaitForTimers blocks until a given number have
// registered. Calling it before Advance closes the race between a
// goroutine arming its timer and the test firing it, which is the
// race time.Sleep-based tests paper over.
package clock
