// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deckhand-io/deckhand/lib/testutil"
)

func TestEncodeNativeSizeMismatch(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	_, err := EncodeNative(img, PixelFormat{Width: 80, Height: 80, Encoding: EncodingBMP})
	if err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestEncodeNativeBMPHeader(t *testing.T) {
	format := PixelFormat{Width: 80, Height: 80, FlipY: true, Rotate90: true, Encoding: EncodingBMP}
	data, err := BlankKey(format)
	if err != nil {
		t.Fatalf("BlankKey: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("BM")) {
		t.Errorf("BMP output does not start with BM magic: % x", data[:4])
	}
}

func TestOrientRotatesAndFlips(t *testing.T) {
	// A 2x3 image with a single red pixel at (0,0).
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	red := color.RGBA{R: 255, A: 255}
	img.Set(0, 0, red)

	out := orient(img, PixelFormat{Width: 2, Height: 3, Rotate90: true}).(*image.RGBA)
	if got := out.Bounds(); got.Dx() != 3 || got.Dy() != 2 {
		t.Fatalf("rotated bounds = %v, want 3x2", got)
	}
	// CCW quarter turn maps source (0,0) to (0, w-1) = (0, 1).
	if out.RGBAAt(0, 1) != red {
		t.Errorf("rotated pixel not where expected")
	}

	out = orient(img, PixelFormat{Width: 2, Height: 3, FlipY: true}).(*image.RGBA)
	if out.RGBAAt(0, 2) != red {
		t.Errorf("flipped pixel not where expected")
	}
}

func TestFakePushAndPress(t *testing.T) {
	fake := NewFake()

	type event struct {
		key     int
		pressed bool
	}
	events := make(chan event, 2)
	fake.SetKeyHandler(func(key int, pressed bool) {
		events <- event{key, pressed}
	})

	if err := fake.SetKeyImages(map[int][]byte{3: {0xAA}}); err != nil {
		t.Fatalf("SetKeyImages: %v", err)
	}
	push := testutil.RequireReceive(t, fake.Pushes, time.Second, "image push")
	if !bytes.Equal(push[3], []byte{0xAA}) {
		t.Errorf("pushed image = % x", push[3])
	}

	fake.Press(5)
	first := testutil.RequireReceive(t, events, time.Second, "press event")
	if first.key != 5 || !first.pressed {
		t.Errorf("first event = %+v, want key 5 pressed", first)
	}
	second := testutil.RequireReceive(t, events, time.Second, "release event")
	if second.pressed {
		t.Error("second event should be a release")
	}
}

func TestFakeDetachSuppressesPushes(t *testing.T) {
	fake := NewFake()
	fake.Detach(0)

	if err := fake.SetKeyImages(map[int][]byte{0: {1}}); err != nil {
		t.Fatalf("SetKeyImages while detached: %v", err)
	}
	testutil.RequireNoReceive(t, fake.Pushes, 50*time.Millisecond, "no push while detached")

	if _, ok := fake.Grid(); ok {
		t.Error("Grid should report not attached")
	}
	if got := fake.Status(); got != StatusNoDevice {
		t.Errorf("status = %s", got)
	}
}

func TestFakeAbsentFor(t *testing.T) {
	fake := NewFake()
	if got := fake.AbsentFor(); got != 0 {
		t.Errorf("attached AbsentFor = %v, want 0", got)
	}
	fake.Detach(3 * time.Minute)
	if got := fake.AbsentFor(); got != 3*time.Minute {
		t.Errorf("detached AbsentFor = %v, want 3m", got)
	}
	fake.Attach()
	if got := fake.AbsentFor(); got != 0 {
		t.Errorf("reattached AbsentFor = %v, want 0", got)
	}
}

func TestReadHIDProductParsesUevent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uevent")
	content := "DRIVER=hid-generic\nHID_ID=0003:00000FD9:00000063\nHID_NAME=Elgato Stream Deck Mini\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	product, ok := readHIDProduct(path)
	if !ok || product != 0x0063 {
		t.Errorf("readHIDProduct = (%04x, %v), want (0063, true)", product, ok)
	}

	if err := os.WriteFile(path, []byte("HID_ID=0003:0000046D:0000C077\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := readHIDProduct(path); ok {
		t.Error("non-Elgato vendor should not match")
	}
}
