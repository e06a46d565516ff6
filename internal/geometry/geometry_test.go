package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIoU_Disjoint(t *testing.T) {
	a := BBox{X: 0, Y: 0, W: 50, H: 50}
	b := BBox{X: 100, Y: 100, W: 50, H: 50}
	require.Equal(t, 0.0, IoU(a, b))
}

func TestIoU_Self(t *testing.T) {
	a := BBox{X: 10, Y: 20, W: 30, H: 40}
	require.InDelta(t, 1.0, IoU(a, a), 1e-9)
}

func TestIoU_Symmetry(t *testing.T) {
	a := BBox{X: 0, Y: 0, W: 100, H: 100}
	b := BBox{X: 50, Y: 50, W: 100, H: 100}
	require.InDelta(t, IoU(a, b), IoU(b, a), 1e-9)
}

func TestIoU_PartialOverlap(t *testing.T) {
	a := BBox{X: 0, Y: 0, W: 100, H: 100}
	b := BBox{X: 50, Y: 50, W: 100, H: 100}
	// intersection: 50x50 = 2500; union = 10000+10000-2500 = 17500
	require.InDelta(t, 2500.0/17500.0, IoU(a, b), 1e-9)
}

func TestHorizontalFlip_BBox(t *testing.T) {
	f := HorizontalFlip{}
	b := BBox{X: 10, Y: 20, W: 30, H: 40}
	flipped := f.ApplyBBox(b, 200, 100)
	require.Equal(t, BBox{X: 160, Y: 20, W: 30, H: 40}, flipped)
}

func TestScale_Composability(t *testing.T) {
	b := BBox{X: 10, Y: 10, W: 10, H: 10}
	scaled := Scale{Factor: 2}.ApplyBBox(b, 100, 100)
	scaled = HorizontalFlip{}.ApplyBBox(scaled, 100, 100)
	require.Equal(t, BBox{X: 60, Y: 20, W: 20, H: 20}, scaled)
}
