// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"sync"
	"time"
)

// Fake is an in-memory Device for tests. It records every image push
// on a buffered channel so tests can assert on what would have reached
// the hardware, and lets tests inject key presses.
type Fake struct {
	mu      sync.Mutex
	status  Status
	grid    Grid
	pixels  PixelFormat
	handler KeyHandler
	absent  time.Duration

	// Pushes receives a copy of every SetKeyImages call.
	Pushes chan map[int][]byte
	// Clears receives a token for every ClearKeys call.
	Clears chan struct{}
}

// NewFake returns a ready fake with a 3x2 grid of 80x80 BMP keys.
func NewFake() *Fake {
	return &Fake{
		status: StatusReady,
		grid:   Grid{Rows: 2, Cols: 3},
		pixels: PixelFormat{Width: 80, Height: 80, FlipY: true, Rotate90: true, Encoding: EncodingBMP},
		Pushes: make(chan map[int][]byte, 64),
		Clears: make(chan struct{}, 64),
	}
}

func (f *Fake) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Fake) Grid() (Grid, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grid, f.status == StatusReady
}

func (f *Fake) Pixels() (PixelFormat, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pixels, f.status == StatusReady
}

func (f *Fake) SetKeyImages(images map[int][]byte) error {
	f.mu.Lock()
	attached := f.status == StatusReady
	f.mu.Unlock()
	if !attached {
		return nil
	}
	copied := make(map[int][]byte, len(images))
	for key, img := range images {
		copied[key] = append([]byte(nil), img...)
	}
	f.Pushes <- copied
	return nil
}

func (f *Fake) ClearKeys() error {
	f.mu.Lock()
	attached := f.status == StatusReady
	f.mu.Unlock()
	if !attached {
		return nil
	}
	f.Clears <- struct{}{}
	return nil
}

func (f *Fake) SetKeyHandler(handler KeyHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *Fake) AbsentFor() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusReady {
		return 0
	}
	return f.absent
}

func (f *Fake) Close() error { return nil }

// Press delivers a press-then-release pair for key, as real hardware
// does.
func (f *Fake) Press(key int) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(key, true)
		handler(key, false)
	}
}

// Detach simulates unplugging the panel and backdates the absence by
// elapsed, for watchdog tests.
func (f *Fake) Detach(elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = StatusNoDevice
	f.absent = elapsed
}

// Attach simulates plugging the panel back in.
func (f *Fake) Attach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = StatusReady
	f.absent = 0
}
