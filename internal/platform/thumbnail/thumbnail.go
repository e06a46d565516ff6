// Package thumbnail generates preview images for component A's content
// store: downscale to fit within 320x320 preserving aspect, re-encode as
// 85%-quality JPEG. Grounded on the teacher's avatar image pipeline
// (internal/services/avatar.go), which decodes uploaded bytes and resizes
// with golang.org/x/image/draw before re-encoding.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	MaxEdge     = 320
	JPEGQuality = 85
)

// Generate downscales raw image bytes to fit within MaxEdge x MaxEdge,
// preserving aspect ratio, and re-encodes as JPEGQuality-quality JPEG.
// Callers treat failure as non-fatal per spec.md 4.A: the thumbnail is
// simply omitted and the original media remains.
func Generate(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("thumbnail: decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("thumbnail: image has zero dimension")
	}

	dstW, dstH := FitWithin(w, h, MaxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("thumbnail: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// FitWithin scales (w,h) down to fit within a max×max box, preserving
// aspect ratio. Images already smaller than the box are left unscaled.
func FitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	ratio := float64(w) / float64(h)
	if w >= h {
		nw := max
		nh := int(float64(max) / ratio)
		if nh < 1 {
			nh = 1
		}
		return nw, nh
	}
	nh := max
	nw := int(float64(max) * ratio)
	if nw < 1 {
		nw = 1
	}
	return nw, nh
}
