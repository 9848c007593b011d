// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/bmp"
)

// EncodeNative converts a rendered key image into the byte payload the
// panel expects: the orientation transform first, then the encoding.
// The input must already match the format's Width and Height.
func EncodeNative(img image.Image, format PixelFormat) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() != format.Width || bounds.Dy() != format.Height {
		return nil, fmt.Errorf("key image is %dx%d, panel wants %dx%d",
			bounds.Dx(), bounds.Dy(), format.Width, format.Height)
	}

	oriented := orient(img, format)

	var buf bytes.Buffer
	switch format.Encoding {
	case EncodingBMP:
		if err := bmp.Encode(&buf, oriented); err != nil {
			return nil, fmt.Errorf("encoding BMP key image: %w", err)
		}
	case EncodingJPEG:
		if err := jpeg.Encode(&buf, oriented, &jpeg.Options{Quality: 95}); err != nil {
			return nil, fmt.Errorf("encoding JPEG key image: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown key image encoding %q", format.Encoding)
	}
	return buf.Bytes(), nil
}

// BlankKey returns a native-format all-black key image.
func BlankKey(format PixelFormat) ([]byte, error) {
	return EncodeNative(image.NewRGBA(image.Rect(0, 0, format.Width, format.Height)), format)
}

func orient(img image.Image, format PixelFormat) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if format.Rotate90 {
		out = image.NewRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x, y
			if format.FlipX {
				sx = w - 1 - x
			}
			if format.FlipY {
				sy = h - 1 - y
			}
			if format.Rotate90 {
				// Counter-clockwise quarter turn.
				out.Set(y, w-1-x, img.At(bounds.Min.X+sx, bounds.Min.Y+sy))
			} else {
				out.Set(x, y, img.At(bounds.Min.X+sx, bounds.Min.Y+sy))
			}
		}
	}
	return out
}
