// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/charmbracelet/x/ansi"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/deckhand-io/deckhand/lib/device"
)

// Text metrics of the bundled bitmap face.
const (
	cellWidth  = 7
	cellHeight = 13
	fontAscent = 11
)

// headerHeight is the colored strip carrying the tool name or page
// header. labelHeight is the button strip at the bottom of choice,
// option and control keys, matching the touch target the hardware
// bezel suggests.
const (
	headerHeight = cellHeight + 1
	labelHeight  = 20
)

// Neutral strip colors for controls that are not risk-graded.
const (
	controlBG = "#303030"
	cancelBG  = "#404000"
	submitBG  = "#005000"
	selectBG  = "#0050D0"
)

// canvas is the virtual gap-free surface spanning all keys. Views draw
// on it as one image; images() slices it back into per-key tiles.
type canvas struct {
	img        *image.RGBA
	keyW, keyH int
	cols, rows int
	dim        bool
}

func newCanvas(grid device.Grid, format device.PixelFormat, background string, dim bool) *canvas {
	c := &canvas{
		keyW: format.Width,
		keyH: format.Height,
		cols: grid.Cols,
		rows: grid.Rows,
		dim:  dim,
	}
	c.img = image.NewRGBA(image.Rect(0, 0, grid.Cols*format.Width, grid.Rows*format.Height))
	c.fill(c.img.Bounds(), background)
	return c
}

func (c *canvas) width() int  { return c.cols * c.keyW }
func (c *canvas) height() int { return c.rows * c.keyH }

// keyRect returns the canvas rectangle covered by a key.
func (c *canvas) keyRect(key int) image.Rectangle {
	col := key % c.cols
	row := key / c.cols
	return image.Rect(col*c.keyW, row*c.keyH, (col+1)*c.keyW, (row+1)*c.keyH)
}

func (c *canvas) fill(r image.Rectangle, hex string) {
	draw.Draw(c.img, r, image.NewUniform(c.color(hex)), image.Point{}, draw.Src)
}

// text draws s with its top edge at y.
func (c *canvas) text(x, y int, s, hex string) {
	drawer := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(c.color(hex)),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y+fontAscent),
	}
	drawer.DrawString(s)
}

// textCentered draws s centered on (cx, cy).
func (c *canvas) textCentered(cx, cy int, s, hex string) {
	width := font.MeasureString(basicfont.Face7x13, s).Ceil()
	c.text(cx-width/2, cy-cellHeight/2, s, hex)
}

// strip draws a label strip at the bottom of a key.
func (c *canvas) strip(key int, label, bg, fg string) {
	r := c.keyRect(key)
	stripRect := image.Rect(r.Min.X, r.Max.Y-labelHeight, r.Max.X, r.Max.Y)
	c.fill(stripRect, bg)
	maxCells := c.keyW / cellWidth
	label = ansi.Truncate(label, maxCells, "…")
	c.textCentered((r.Min.X+r.Max.X)/2, r.Max.Y-labelHeight/2, label, fg)
}

// header draws the colored header strip across the full canvas width.
func (c *canvas) header(text, bg, fg string) {
	c.fill(image.Rect(0, 0, c.width(), headerHeight), bg)
	maxCells := c.width()/cellWidth - 1
	c.text(cellWidth/2, 0, ansi.Truncate(text, maxCells, "…"), fg)
}

// body wraps text into the area between headerHeight and maxY. The
// last visible line gains an ellipsis when more content follows.
func (c *canvas) body(text, fg string, maxY int) {
	lines := wrapCells(text, c.width()/cellWidth)
	y := headerHeight
	for i, line := range lines {
		if y+cellHeight > maxY {
			break
		}
		if y+2*cellHeight > maxY && i < len(lines)-1 {
			line += "…"
		}
		c.text(0, y, line, fg)
		y += cellHeight
	}
}

// images slices the canvas into per-key native payloads.
func (c *canvas) images(format device.PixelFormat) (map[int][]byte, error) {
	out := make(map[int][]byte, c.cols*c.rows)
	for key := 0; key < c.cols*c.rows; key++ {
		tile := c.img.SubImage(c.keyRect(key))
		data, err := device.EncodeNative(normalize(tile), format)
		if err != nil {
			return nil, err
		}
		out[key] = data
	}
	return out, nil
}

// normalize rebases a subimage at the origin so EncodeNative sees the
// expected bounds.
func normalize(img image.Image) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

// color parses a hex or named color, applying the guard dim when the
// canvas is dimmed.
func (c *canvas) color(s string) color.RGBA {
	col := parseColor(s)
	if c.dim {
		col.R = col.R / 3
		col.G = col.G / 3
		col.B = col.B / 3
	}
	return col
}

var namedColors = map[string]color.RGBA{
	"black": {0, 0, 0, 255},
	"white": {255, 255, 255, 255},
	"gray":  {128, 128, 128, 255},
	"grey":  {128, 128, 128, 255},
	"red":   {200, 0, 0, 255},
	"green": {0, 160, 0, 255},
	"blue":  {0, 80, 220, 255},
}

func parseColor(s string) color.RGBA {
	if col, ok := namedColors[s]; ok {
		return col
	}
	parsed, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{A: 255}
	}
	r, g, b := parsed.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// wrapCells hard-wraps text to the given cell width, preserving
// explicit newlines. Wrapping is per rune so a long path or command
// with no spaces still flows across keys.
func wrapCells(text string, cells int) []string {
	if cells <= 0 {
		return nil
	}
	var lines []string
	for _, paragraph := range splitLines(text) {
		if paragraph == "" {
			lines = append(lines, "")
			continue
		}
		current := ""
		width := 0
		for _, r := range paragraph {
			rw := ansi.StringWidth(string(r))
			if width+rw > cells && current != "" {
				lines = append(lines, current)
				current = ""
				width = 0
			}
			current += string(r)
			width += rw
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

func splitLines(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '\n' {
			out = append(out, text[start:i])
			start = i + 1
		}
	}
	return append(out, text[start:])
}

// Images renders the permission screen.
func (v PermissionView) Images(grid device.Grid, format device.PixelFormat) (map[int][]byte, error) {
	c := newCanvas(grid, format, v.Colors.Background, v.Dimmed)
	c.header(v.ToolName, v.Colors.HeaderBG, v.Colors.HeaderFG)

	_, choiceKeys := Layout(len(v.Choices), grid.Cols, grid.Rows)

	// Body text stops above the choice strips.
	choiceRow := choiceKeys[0] / grid.Cols
	maxY := choiceRow*c.keyH + c.keyH - labelHeight
	c.body(v.Content, v.Colors.BodyFG, maxY)

	for i, key := range choiceKeys {
		if i >= len(v.Choices) {
			break
		}
		bg, fg := choiceAppearance(v.Choices[i], v.AlwaysActive)
		c.strip(key, v.Choices[i].Label, bg, fg)
	}
	if v.OpenKey >= 0 && !contains(choiceKeys, v.OpenKey) {
		c.strip(v.OpenKey, openButtonLabel, controlBG, "#FFFFFF")
	}
	return c.images(format)
}

// Images renders one wizard page.
func (v AskView) Images(grid device.Grid, format device.PixelFormat) (map[int][]byte, error) {
	c := newCanvas(grid, format, v.Colors.Background, v.Dimmed)
	optionKeys, cancelKey, submitKey := AskLayout(grid.Cols, grid.Rows)

	if v.ConfirmPage {
		c.header(v.Header, v.Colors.HeaderBG, v.Colors.HeaderFG)
		c.body("Submit your answers?", v.Colors.BodyFG, c.keyH-labelHeight)
	} else {
		c.header(v.Header, v.Colors.HeaderBG, v.Colors.HeaderFG)
		c.body(v.Question, v.Colors.BodyFG, c.keyH-labelHeight)
		for i, key := range optionKeys {
			if i >= len(v.Options) {
				break
			}
			option := v.Options[i]
			bg := controlBG
			if v.Selected[option.Label] {
				bg = selectBG
			}
			c.strip(key, option.Label, bg, "#FFFFFF")
			if option.Description != "" {
				r := c.keyRect(key)
				maxCells := c.keyW / cellWidth
				desc := ansi.Truncate(option.Description, maxCells, "…")
				c.text(r.Min.X, r.Max.Y-labelHeight-cellHeight, desc, v.Colors.BodyFG)
			}
		}
	}

	c.strip(cancelKey, v.CancelLabel, cancelBG, "#FFFFFF")
	c.strip(submitKey, v.SubmitLabel, submitBG, "#FFFFFF")
	return c.images(format)
}

// Images renders the fallback screen.
func (v FallbackView) Images(grid device.Grid, format device.PixelFormat) (map[int][]byte, error) {
	c := newCanvas(grid, format, v.Colors.Background, v.Dimmed)
	c.header(v.ToolName, v.Colors.HeaderBG, v.Colors.HeaderFG)
	c.body("Answer in the terminal.\nAny key dismisses.", v.Colors.BodyFG, c.height())
	if v.OpenKey >= 0 {
		c.strip(v.OpenKey, openButtonLabel, controlBG, "#FFFFFF")
	}
	return c.images(format)
}

// Images renders a notification.
func (v NotificationView) Images(grid device.Grid, format device.PixelFormat) (map[int][]byte, error) {
	c := newCanvas(grid, format, v.Colors.Background, v.Dimmed)
	title := v.Title
	if title == "" {
		title = "Notice"
	}
	c.header(title, v.Colors.HeaderBG, v.Colors.HeaderFG)
	c.body(v.Message, v.Colors.BodyFG, c.height())
	if v.OpenKey >= 0 {
		c.strip(v.OpenKey, openButtonLabel, controlBG, "#FFFFFF")
	}
	return c.images(format)
}

func contains(keys []int, key int) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
