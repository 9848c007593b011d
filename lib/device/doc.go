// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// Package device is the panel facade: a small Device interface the
// daemon renders to, a hidraw implementation for Mini-class Stream
// Deck hardware with hotplug polling, and an in-memory Fake for
// tests. Image pushes are best-effort; a missing panel is a state the
// daemon observes, never an error it handles inline.
package device
