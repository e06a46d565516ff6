package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/pierdell/mediaforge-backend/internal/geometry"
)

// Box is one bounding-box annotation to draw: an {x,y,w,h} in pixel
// coordinates of the source image (geometry.BBox's convention) plus the
// label text shown above it.
type Box struct {
	geometry.BBox
	Label string
}

var overlayFont *truetype.Font

func init() {
	f, err := truetype.Parse(goregular.TTF)
	if err == nil {
		overlayFont = f
	}
}

// RenderAnnotationOverlay draws boxes onto a copy of raw (decoded, then
// re-encoded as JPEG), used by the annotation review surface (spec.md
// §6 dataset item preview) to let a reviewer see labels without a
// client-side canvas. Grounded on the original services/export.py
// preview renderer, reimplemented with fogleman/gg's immediate-mode
// canvas instead of a raster library, since gg's API maps directly onto
// "stroke a rect, draw a label" with no intermediate draw-list.
func RenderAnnotationOverlay(raw []byte, boxes []Box) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("overlay: decode image: %w", err)
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	dc := gg.NewContext(w, h)
	dc.DrawImage(src, 0, 0)

	if overlayFont != nil {
		face := truetype.NewFace(overlayFont, &truetype.Options{Size: 14})
		dc.SetFontFace(face)
	}

	for _, b := range boxes {
		dc.SetRGB(1, 0.2, 0.2)
		dc.SetLineWidth(2)
		dc.DrawRectangle(b.X, b.Y, b.W, b.H)
		dc.Stroke()

		if b.Label != "" && overlayFont != nil {
			dc.SetRGB(1, 1, 1)
			dc.DrawStringAnchored(b.Label, b.X+2, b.Y+14, 0, 0)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("overlay: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
