// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// The daemon is full of timers that are miserable to test against real
// time: guard debounce after a display switch, the per-connection
// liveness probe ticker, the hook timeout ceiling, and the no-device
// shutdown watchdog. Every component that schedules time takes a Clock
// and is handed Real() in production and Fake() in tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	a := arbiter.New(arbiter.Options{Clock: c, ...})
//	// ...
//	c.WaitForTimers(1)          // guard timer armed
//	c.Advance(800 * time.Millisecond) // guard expires, re-render fires
package clock
