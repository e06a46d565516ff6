// Package geometry decodes and transforms the polymorphic shapes an
// Annotation's Geometry JSON column can carry (spec.md §9 "Cyclic and
// polymorphic geometry"). Every consumer — exporters, augmenters, the
// quality kernel — switches on domain.AnnotationType rather than walking
// a type hierarchy; this package is the one place that switch lives for
// transform logic, grounded on the original services/augmentation.py.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
)

// BBox is the {x,y,w,h} shape carried by AnnotationBBox.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Point2D is a single {x,y} coordinate, used standalone by AnnotationPoint
// and as the element type of AnnotationPolygon/AnnotationPolyline.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is the {points:[[x,y],...]} shape carried by AnnotationPolygon
// and AnnotationPolyline.
type Polygon struct {
	Points [][2]float64 `json:"points"`
}

// Mask is the {rle,size:[h,w]} shape carried by AnnotationMask.
type Mask struct {
	RLE  []int `json:"rle"`
	Size [2]int `json:"size"`
}

// TemporalSegment is the {start_sec,end_sec} shape carried by
// AnnotationTemporalSegment.
type TemporalSegment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// Caption is the {text} shape carried by AnnotationCaption/Transcription.
type Caption struct {
	Text string `json:"text"`
}

// DecodeBBox unmarshals an Annotation's raw geometry JSON as a BBox.
func DecodeBBox(raw []byte) (BBox, error) {
	var b BBox
	if err := json.Unmarshal(raw, &b); err != nil {
		return BBox{}, fmt.Errorf("geometry: decode bbox: %w", err)
	}
	return b, nil
}

// DecodePolygon unmarshals an Annotation's raw geometry JSON as a Polygon.
func DecodePolygon(raw []byte) (Polygon, error) {
	var p Polygon
	if err := json.Unmarshal(raw, &p); err != nil {
		return Polygon{}, fmt.Errorf("geometry: decode polygon: %w", err)
	}
	return p, nil
}

// DecodePoint unmarshals an Annotation's raw geometry JSON as a Point2D.
func DecodePoint(raw []byte) (Point2D, error) {
	var p Point2D
	if err := json.Unmarshal(raw, &p); err != nil {
		return Point2D{}, fmt.Errorf("geometry: decode point: %w", err)
	}
	return p, nil
}

// IoU computes intersection-over-union for two axis-aligned boxes.
// bbox_iou(b1,b2) = inter / (area1 + area2 - inter). Pairs with zero
// union return 0; exact overlap returns 1.0; disjoint returns 0.0
// (spec.md §8 "IoU numerical contract").
func IoU(a, b BBox) float64 {
	left := math.Max(a.X, b.X)
	top := math.Max(a.Y, b.Y)
	right := math.Min(a.X+a.W, b.X+b.W)
	bottom := math.Min(a.Y+a.H, b.Y+b.H)

	interW := math.Max(0, right-left)
	interH := math.Max(0, bottom-top)
	inter := interW * interH

	union := a.W*a.H + b.W*b.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Transform is an augmentation applied to annotation geometry so
// augmented items remain correctly annotated (spec.md §4.H). Each
// transform operates on bbox, point, and polygon geometries; rotate is
// recorded but not applied to geometry (out of scope per spec.md §4.H).
type Transform interface {
	Name() string
	ApplyBBox(b BBox, width, height float64) BBox
	ApplyPoint(p Point2D, width, height float64) Point2D
	ApplyPolygon(p Polygon, width, height float64) Polygon
}

// HorizontalFlip mirrors geometry across the vertical midline of the
// (width, height) frame.
type HorizontalFlip struct{}

func (HorizontalFlip) Name() string { return "horizontal_flip" }

func (HorizontalFlip) ApplyBBox(b BBox, width, height float64) BBox {
	return BBox{X: width - b.X - b.W, Y: b.Y, W: b.W, H: b.H}
}

func (HorizontalFlip) ApplyPoint(p Point2D, width, height float64) Point2D {
	return Point2D{X: width - p.X, Y: p.Y}
}

func (f HorizontalFlip) ApplyPolygon(p Polygon, width, height float64) Polygon {
	out := Polygon{Points: make([][2]float64, len(p.Points))}
	for i, pt := range p.Points {
		fp := f.ApplyPoint(Point2D{X: pt[0], Y: pt[1]}, width, height)
		out.Points[i] = [2]float64{fp.X, fp.Y}
	}
	return out
}

// VerticalFlip mirrors geometry across the horizontal midline.
type VerticalFlip struct{}

func (VerticalFlip) Name() string { return "vertical_flip" }

func (VerticalFlip) ApplyBBox(b BBox, width, height float64) BBox {
	return BBox{X: b.X, Y: height - b.Y - b.H, W: b.W, H: b.H}
}

func (VerticalFlip) ApplyPoint(p Point2D, width, height float64) Point2D {
	return Point2D{X: p.X, Y: height - p.Y}
}

func (f VerticalFlip) ApplyPolygon(p Polygon, width, height float64) Polygon {
	out := Polygon{Points: make([][2]float64, len(p.Points))}
	for i, pt := range p.Points {
		fp := f.ApplyPoint(Point2D{X: pt[0], Y: pt[1]}, width, height)
		out.Points[i] = [2]float64{fp.X, fp.Y}
	}
	return out
}

// Scale multiplies all coordinates by Factor.
type Scale struct {
	Factor float64
}

func (Scale) Name() string { return "scale" }

func (s Scale) ApplyBBox(b BBox, width, height float64) BBox {
	return BBox{X: b.X * s.Factor, Y: b.Y * s.Factor, W: b.W * s.Factor, H: b.H * s.Factor}
}

func (s Scale) ApplyPoint(p Point2D, width, height float64) Point2D {
	return Point2D{X: p.X * s.Factor, Y: p.Y * s.Factor}
}

func (s Scale) ApplyPolygon(p Polygon, width, height float64) Polygon {
	out := Polygon{Points: make([][2]float64, len(p.Points))}
	for i, pt := range p.Points {
		out.Points[i] = [2]float64{pt[0] * s.Factor, pt[1] * s.Factor}
	}
	return out
}

// Rotate is recorded for provenance only; spec.md §4.H scopes rotate's
// annotation-geometry transform out, so Apply* are identity.
type Rotate struct {
	AngleDeg float64
}

func (Rotate) Name() string { return "rotate" }

func (Rotate) ApplyBBox(b BBox, width, height float64) BBox         { return b }
func (Rotate) ApplyPoint(p Point2D, width, height float64) Point2D  { return p }
func (Rotate) ApplyPolygon(p Polygon, width, height float64) Polygon { return p }

// ApplyChain applies transforms left-to-right to one annotation's raw
// geometry JSON, switching on its type the way every other consumer does.
// Non-geometric types (caption, classification, transcription, custom)
// pass through unchanged.
func ApplyChain(annType types.AnnotationType, raw []byte, width, height float64, chain []Transform) ([]byte, error) {
	switch annType {
	case types.AnnotationBBox:
		b, err := DecodeBBox(raw)
		if err != nil {
			return nil, err
		}
		for _, t := range chain {
			b = t.ApplyBBox(b, width, height)
		}
		return json.Marshal(b)
	case types.AnnotationPoint:
		p, err := DecodePoint(raw)
		if err != nil {
			return nil, err
		}
		for _, t := range chain {
			p = t.ApplyPoint(p, width, height)
		}
		return json.Marshal(p)
	case types.AnnotationPolygon, types.AnnotationPolyline:
		p, err := DecodePolygon(raw)
		if err != nil {
			return nil, err
		}
		for _, t := range chain {
			p = t.ApplyPolygon(p, width, height)
		}
		return json.Marshal(p)
	default:
		return raw, nil
	}
}
