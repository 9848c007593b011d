// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package device

import "time"

// Status reports whether a panel is currently attached and usable.
type Status string

const (
	StatusReady    Status = "ready"
	StatusNoDevice Status = "no_device"
)

// Grid describes the key matrix of an attached panel.
type Grid struct {
	Rows int
	Cols int
}

// Keys returns the total key count.
func (g Grid) Keys() int { return g.Rows * g.Cols }

// ImageEncoding names the on-wire image format a panel expects.
type ImageEncoding string

const (
	EncodingBMP  ImageEncoding = "bmp"
	EncodingJPEG ImageEncoding = "jpeg"
)

// PixelFormat describes the per-key image a panel expects. Some
// hardware revisions want the image mirrored or rotated before
// encoding.
type PixelFormat struct {
	Width    int
	Height   int
	FlipX    bool
	FlipY    bool
	Rotate90 bool
	Encoding ImageEncoding
}

// KeyHandler is invoked from the device read loop for every key
// transition. pressed is true on press, false on release.
type KeyHandler func(key int, pressed bool)

// Device is the panel facade the daemon talks to. Implementations own
// hotplug detection; callers only consume Status, the key handler, and
// the image writes. All methods are safe for concurrent use.
//
// SetKeyImages and ClearKeys are best-effort: when no panel is
// attached they return nil and do nothing, so display pushes never
// fail the arbitration path.
type Device interface {
	// Status reports whether a panel is attached right now.
	Status() Status

	// Grid returns the key matrix, and false when no panel is
	// attached.
	Grid() (Grid, bool)

	// Pixels returns the per-key image format, and false when no
	// panel is attached.
	Pixels() (PixelFormat, bool)

	// SetKeyImages writes native-format images to the given keys.
	SetKeyImages(images map[int][]byte) error

	// ClearKeys blanks every key.
	ClearKeys() error

	// SetKeyHandler registers the key press callback. Must be called
	// before the device starts delivering events.
	SetKeyHandler(handler KeyHandler)

	// AbsentFor reports how long no panel has been attached, zero
	// when one is attached. Drives the no-device shutdown watchdog.
	AbsentFor() time.Duration

	// Close stops polling and releases the panel, restoring its idle
	// screen.
	Close() error
}
