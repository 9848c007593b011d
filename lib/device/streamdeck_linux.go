// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/deckhand-io/deckhand/lib/clock"
)

const elgatoVendorID = 0x0FD9

// model describes a supported panel revision.
type model struct {
	name   string
	grid   Grid
	pixels PixelFormat
	// imageReportLength is the total hidraw output report size for
	// image transfer, header included.
	imageReportLength int
}

// Supported Mini-class panels by USB product ID. All use the 1024-byte
// paged BMP image protocol.
var models = map[uint16]model{
	0x0063: {
		name:              "Stream Deck Mini",
		grid:              Grid{Rows: 2, Cols: 3},
		pixels:            PixelFormat{Width: 80, Height: 80, FlipY: true, Rotate90: true, Encoding: EncodingBMP},
		imageReportLength: 1024,
	},
	0x0090: {
		name:              "Stream Deck Mini MK.2",
		grid:              Grid{Rows: 2, Cols: 3},
		pixels:            PixelFormat{Width: 80, Height: 80, FlipY: true, Rotate90: true, Encoding: EncodingBMP},
		imageReportLength: 1024,
	},
	// Mini Discord Edition: same protocol, unlisted in most drivers.
	0x00B3: {
		name:              "Stream Deck Mini Discord Edition",
		grid:              Grid{Rows: 2, Cols: 3},
		pixels:            PixelFormat{Width: 80, Height: 80, FlipY: true, Rotate90: true, Encoding: EncodingBMP},
		imageReportLength: 1024,
	},
}

// StreamDeck drives a Mini-class panel over Linux hidraw, with
// periodic hotplug polling. It satisfies Device.
type StreamDeck struct {
	log   *slog.Logger
	clk   clock.Clock
	close chan struct{}

	mu          sync.Mutex
	fd          int
	model       model
	handler     KeyHandler
	keyState    []bool
	absentSince time.Time
	closed      bool
}

// DefaultPollInterval is how often the hotplug loop re-scans for a
// panel while none is attached.
const DefaultPollInterval = 2 * time.Second

// OpenStreamDeck starts the hotplug loop and returns the facade
// immediately; the first attach happens asynchronously if no panel is
// present yet.
func OpenStreamDeck(log *slog.Logger, clk clock.Clock, pollInterval time.Duration) *StreamDeck {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	d := &StreamDeck{
		log:         log,
		clk:         clk,
		close:       make(chan struct{}),
		fd:          -1,
		absentSince: clk.Now(),
	}
	go d.pollLoop(pollInterval)
	return d
}

func (d *StreamDeck) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd >= 0 {
		return StatusReady
	}
	return StatusNoDevice
}

func (d *StreamDeck) Grid() (Grid, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return Grid{}, false
	}
	return d.model.grid, true
}

func (d *StreamDeck) Pixels() (PixelFormat, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return PixelFormat{}, false
	}
	return d.model.pixels, true
}

func (d *StreamDeck) SetKeyHandler(handler KeyHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

func (d *StreamDeck) AbsentFor() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd >= 0 {
		return 0
	}
	return d.clk.Now().Sub(d.absentSince)
}

// SetKeyImages writes native-format images. A HID write failure
// detaches the panel so the poll loop can reopen it; the error is
// logged, not returned, matching the best-effort display contract.
func (d *StreamDeck) SetKeyImages(images map[int][]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	for key, img := range images {
		if err := d.writeKeyImageLocked(key, img); err != nil {
			d.log.Info("HID write failed, detaching panel", "error", err)
			d.detachLocked()
			return nil
		}
	}
	return nil
}

func (d *StreamDeck) ClearKeys() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clearKeysLocked()
}

func (d *StreamDeck) clearKeysLocked() error {
	if d.fd < 0 {
		return nil
	}
	blank, err := BlankKey(d.model.pixels)
	if err != nil {
		return err
	}
	for key := 0; key < d.model.grid.Keys(); key++ {
		if err := d.writeKeyImageLocked(key, blank); err != nil {
			d.log.Info("HID write failed during clear, detaching panel", "error", err)
			d.detachLocked()
			return nil
		}
	}
	return nil
}

// Close stops polling and releases the panel. A closed panel resets to
// its idle logo.
func (d *StreamDeck) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.close)
	d.detachLocked()
	d.mu.Unlock()
	return nil
}

func (d *StreamDeck) pollLoop(interval time.Duration) {
	ticker := d.clk.NewTicker(interval)
	defer ticker.Stop()
	d.tryOpen()
	for {
		select {
		case <-d.close:
			return
		case <-ticker.C:
			if d.Status() == StatusNoDevice {
				d.tryOpen()
			}
		}
	}
}

// tryOpen scans sysfs for a supported panel and opens the first match.
func (d *StreamDeck) tryOpen() {
	entries, err := filepath.Glob("/sys/class/hidraw/hidraw*")
	if err != nil {
		return
	}
	for _, sysPath := range entries {
		productID, ok := readHIDProduct(filepath.Join(sysPath, "device/uevent"))
		if !ok {
			continue
		}
		m, ok := models[productID]
		if !ok {
			continue
		}
		devPath := filepath.Join("/dev", filepath.Base(sysPath))
		fd, err := unix.Open(devPath, unix.O_RDWR, 0)
		if err != nil {
			d.log.Debug("opening hidraw node failed", "path", devPath, "error", err)
			continue
		}

		d.mu.Lock()
		if d.fd >= 0 || d.closed {
			d.mu.Unlock()
			unix.Close(fd)
			return
		}
		d.fd = fd
		d.model = m
		d.keyState = make([]bool, m.grid.Keys())
		if err := d.setBrightnessLocked(50); err != nil {
			d.log.Debug("setting brightness failed", "error", err)
		}
		if err := d.clearKeysLocked(); err != nil || d.fd < 0 {
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()

		go d.readLoop(fd, m)
		d.log.Info("panel opened", "model", m.name, "path", devPath)
		return
	}
}

// readHIDProduct parses a hidraw uevent file and returns the USB
// product ID when the vendor is Elgato.
func readHIDProduct(ueventPath string) (uint16, bool) {
	file, err := os.Open(ueventPath)
	if err != nil {
		return 0, false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "HID_ID=") {
			continue
		}
		// HID_ID=0003:00000FD9:00000063 (bus:vendor:product)
		parts := strings.Split(strings.TrimPrefix(line, "HID_ID="), ":")
		if len(parts) != 3 {
			return 0, false
		}
		vendor, err := strconv.ParseUint(parts[1], 16, 32)
		if err != nil || vendor != elgatoVendorID {
			return 0, false
		}
		product, err := strconv.ParseUint(parts[2], 16, 32)
		if err != nil {
			return 0, false
		}
		return uint16(product), true
	}
	return 0, false
}

// readLoop delivers key transitions until the panel disappears. Runs
// on its own goroutine per attach; exits when the read fails, which is
// how unplugging surfaces on hidraw.
func (d *StreamDeck) readLoop(fd int, m model) {
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(fd, buf)
		if err != nil || n == 0 {
			d.mu.Lock()
			if d.fd == fd {
				d.log.Info("panel disconnected")
				d.detachLocked()
			}
			d.mu.Unlock()
			return
		}
		// Input report: report ID then one state byte per key.
		if buf[0] != 0x01 || n < 1+m.grid.Keys() {
			continue
		}
		d.dispatchKeys(fd, buf[1:1+m.grid.Keys()])
	}
}

func (d *StreamDeck) dispatchKeys(fd int, states []byte) {
	d.mu.Lock()
	if d.fd != fd {
		d.mu.Unlock()
		return
	}
	handler := d.handler
	var transitions []int
	var pressed []bool
	for key, state := range states {
		now := state != 0
		if now != d.keyState[key] {
			d.keyState[key] = now
			transitions = append(transitions, key)
			pressed = append(pressed, now)
		}
	}
	d.mu.Unlock()

	if handler == nil {
		return
	}
	for i, key := range transitions {
		handler(key, pressed[i])
	}
}

// writeKeyImageLocked sends one key image as a sequence of fixed-size
// paged output reports. Caller holds d.mu.
func (d *StreamDeck) writeKeyImageLocked(key int, img []byte) error {
	if key < 0 || key >= d.model.grid.Keys() {
		return fmt.Errorf("key %d out of range", key)
	}
	const headerLength = 16
	payloadLength := d.model.imageReportLength - headerLength

	report := make([]byte, d.model.imageReportLength)
	for page := 0; len(img) > 0 || page == 0; page++ {
		chunk := img
		if len(chunk) > payloadLength {
			chunk = chunk[:payloadLength]
		}
		img = img[len(chunk):]

		for i := range report {
			report[i] = 0
		}
		report[0] = 0x02
		report[1] = 0x01
		report[2] = byte(page)
		if len(img) == 0 {
			report[4] = 0x01 // last page
		}
		report[5] = byte(key + 1)
		copy(report[headerLength:], chunk)

		if _, err := unix.Write(d.fd, report); err != nil {
			return fmt.Errorf("writing image page %d for key %d: %w", page, key, err)
		}
	}
	return nil
}

// setBrightnessLocked sends the brightness feature report. Caller
// holds d.mu.
func (d *StreamDeck) setBrightnessLocked(percent int) error {
	report := make([]byte, 17)
	report[0] = 0x05
	report[1] = 0x55
	report[2] = 0xAA
	report[3] = 0xD1
	report[4] = 0x01
	report[5] = byte(percent)
	return hidSetFeature(d.fd, report)
}

// detachLocked closes the hidraw node and starts the absence clock.
// Caller holds d.mu.
func (d *StreamDeck) detachLocked() {
	if d.fd >= 0 {
		unix.Close(d.fd)
		d.fd = -1
	}
	d.absentSince = d.clk.Now()
}

// hidSetFeature issues HIDIOCSFEATURE for the given report. The ioctl
// request number encodes the buffer length, so it is computed here
// rather than taken from a constant.
func hidSetFeature(fd int, data []byte) error {
	const iocReadWrite = 3
	request := (uintptr(iocReadWrite) << 30) |
		(uintptr(len(data)) << 16) |
		(uintptr('H') << 8) |
		0x06
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), request, uintptr(unsafe.Pointer(&data[0])))
	if errno != 0 {
		return fmt.Errorf("HIDIOCSFEATURE: %w", errno)
	}
	return nil
}
