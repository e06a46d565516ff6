package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pierdell/mediaforge-backend/internal/geometry"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFitWithinPreservesAspect(t *testing.T) {
	w, h := FitWithin(1600, 800, 320)
	require.Equal(t, 320, w)
	require.Equal(t, 160, h)

	w, h = FitWithin(200, 100, 320)
	require.Equal(t, 200, w)
	require.Equal(t, 100, h)
}

func TestGenerateDownscalesLargeImage(t *testing.T) {
	raw := encodeTestPNG(t, 1024, 512)
	out, err := Generate(raw)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	b := decoded.Bounds()
	require.Equal(t, 320, b.Dx())
	require.Equal(t, 160, b.Dy())
}

func TestGenerateRejectsGarbageInput(t *testing.T) {
	_, err := Generate([]byte("not an image"))
	require.Error(t, err)
}

func TestRenderAnnotationOverlayKeepsDimensions(t *testing.T) {
	raw := encodeTestPNG(t, 200, 100)
	out, err := RenderAnnotationOverlay(raw, []Box{
		{BBox: geometry.BBox{X: 10, Y: 10, W: 50, H: 30}, Label: "person"},
	})
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 200, decoded.Bounds().Dx())
	require.Equal(t, 100, decoded.Bounds().Dy())
}

func TestRenderAnnotationOverlayRejectsGarbage(t *testing.T) {
	_, err := RenderAnnotationOverlay([]byte("nope"), nil)
	require.Error(t, err)
}
