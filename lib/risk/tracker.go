// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package risk

import "sync"

// Tracker assigns each agent PID a stable palette index in first-seen
// order, so the same instance always gets the same body color for the
// daemon's lifetime. Safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	pids []int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Index returns the palette index for pid, registering it on first
// sight.
func (t *Tracker) Index(pid int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, seen := range t.pids {
		if seen == pid {
			return i
		}
	}
	t.pids = append(t.pids, pid)
	return len(t.pids) - 1
}
