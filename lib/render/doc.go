// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// Package render turns arbitration items into per-key panel images.
// A view struct per item kind composes onto a virtual canvas spanning
// the whole key grid, which is then sliced into native-format tiles.
// Layout helpers place choice and wizard control buttons; Hash digests
// a finished frame so identical re-renders can skip the hardware push.
package render
