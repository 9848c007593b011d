// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at initial. Time moves only when
// Advance is called; every timer, ticker, and sleep registered against
// the clock fires deterministically in deadline order.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a deterministic Clock for tests.
//
// AfterFunc callbacks run synchronously inside Advance, without the
// clock lock held, so a callback may schedule or stop other timers.
// Calling Advance or Sleep from inside a callback deadlocks.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
	changed *sync.Cond
}

type fakeTimer struct {
	when     time.Time
	period   time.Duration  // non-zero for tickers
	callback func()         // AfterFunc timers
	ch       chan time.Time // After, Sleep, and Ticker timers
	stopped  bool
	fired    bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a one-shot waiter. Non-positive d delivers
// immediately without registering.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.add(&fakeTimer{when: c.now.Add(d), ch: ch})
	return ch
}

// AfterFunc registers f to run when the clock passes d from now. With
// d <= 0 the callback runs synchronously before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()
	if d <= 0 {
		c.mu.Unlock()
		f()
		return &Timer{stop: func() bool { return false }}
	}
	t := &fakeTimer{when: c.now.Add(d), callback: f}
	c.add(t)
	c.mu.Unlock()

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		active := !t.stopped && !t.fired
		t.stopped = true
		return active
	}}
}

// NewTicker registers a periodic waiter.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	t := &fakeTimer{when: c.now.Add(d), period: d, ch: ch}
	c.add(t)

	return &Ticker{C: ch, stop: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		t.stopped = true
	}}
}

// Sleep blocks until the clock is advanced past d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// Advance moves the clock forward by d, firing every due timer in
// deadline order. Ticker deliveries that find a full channel are
// dropped, matching time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		next := c.earliest(target)
		if next == nil {
			break
		}
		if next.when.After(c.now) {
			c.now = next.when
		}
		var fire func()
		if next.period > 0 {
			next.when = next.when.Add(next.period)
			ch, when := next.ch, c.now
			fire = func() {
				select {
				case ch <- when:
				default:
				}
			}
		} else {
			next.fired = true
			if next.callback != nil {
				fire = next.callback
			} else {
				ch, when := next.ch, c.now
				fire = func() { ch <- when }
			}
		}
		c.mu.Unlock()
		fire()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// WaitForTimers blocks until at least n timers are registered and
// live. Use it to let a goroutine reach its After/NewTicker call
// before advancing the clock.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.liveLocked() < n {
		c.changed.Wait()
	}
}

// add registers a timer. Caller holds mu.
func (c *FakeClock) add(t *fakeTimer) {
	c.pending = append(c.pending, t)
	c.changed.Broadcast()
}

// earliest returns the live timer with the earliest deadline at or
// before target, compacting dead entries as a side effect. Caller
// holds mu.
func (c *FakeClock) earliest(target time.Time) *fakeTimer {
	live := c.pending[:0]
	var best *fakeTimer
	for _, t := range c.pending {
		if t.stopped || t.fired {
			continue
		}
		live = append(live, t)
		if t.when.After(target) {
			continue
		}
		if best == nil || t.when.Before(best.when) {
			best = t
		}
	}
	c.pending = live
	return best
}

// liveLocked counts registered timers that have not fired or been
// stopped. Caller holds mu.
func (c *FakeClock) liveLocked() int {
	n := 0
	for _, t := range c.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
