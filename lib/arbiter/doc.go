// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// Package arbiter decides what the panel shows. All display items,
// whatever their kind, live in one queue; the visible item is always
// the argmax of (priority, timestamp), so a newer equal-priority
// request preempts and a resolved one backfills to the next best.
// Key presses route to a per-kind controller, and a short guard window
// after every display switch swallows presses aimed at the previous
// screen.
package arbiter
