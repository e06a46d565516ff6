// Package export renders a DatasetVersion's manifest and annotations
// into the bit-exact formats spec.md §6 names: COCO, YOLO, CSV, JSONL.
// Each exporter is a pure function over already-loaded rows; callers in
// internal/services assemble the Item/Annotation slices from the
// metadata store and pass them in, grounded on the original
// services/export.py.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/geometry"
)

// LabelDef carries the ID and Name of a domain.LabelDef (Color is not
// needed for export), kept local so this package has no dependency on
// the repo/ORM layer.
type LabelDef struct {
	ID    string
	Name  string
}

// AnnotationRow is one annotation flattened for export.
type AnnotationRow struct {
	Type       string // lowercase domain.AnnotationType value
	Label      string
	Confidence float64
	Geometry   []byte // raw JSON, shape depends on Type
}

// ItemRow is one dataset item with its media reference and annotations.
type ItemRow struct {
	MediaID     uuid.UUID
	Split       string
	Annotations []AnnotationRow
}

// COCOImage, COCOAnnotation, and COCOCategory are the exact JSON shapes
// spec.md §6 names.
type COCOImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
}

type COCOAnnotation struct {
	ID            int        `json:"id"`
	ImageID       int        `json:"image_id"`
	CategoryID    int        `json:"category_id"`
	BBox          []float64  `json:"bbox,omitempty"`
	Area          float64    `json:"area,omitempty"`
	Segmentation  [][]float64 `json:"segmentation,omitempty"`
}

type COCOCategory struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Supercategory string `json:"supercategory"`
}

type COCODocument struct {
	Info struct {
		Description string `json:"description"`
		Version     string `json:"version"`
	} `json:"info"`
	Images      []COCOImage      `json:"images"`
	Annotations []COCOAnnotation `json:"annotations"`
	Categories  []COCOCategory   `json:"categories"`
}

// categoryIndex returns a 1-based id per label in declaration order,
// plus a lookup by label id; unknown labels map to 0 (spec.md §6).
func categoryIndex(labels []LabelDef) map[string]int {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l.ID] = i + 1
	}
	return idx
}

// COCO renders items into the COCO detection/segmentation document
// shape. Images are numbered 1..n in input order; annotations 1..m in
// the order they are encountered walking items then their annotations.
func COCO(description, version string, labels []LabelDef, items []ItemRow) (COCODocument, error) {
	catIdx := categoryIndex(labels)

	doc := COCODocument{}
	doc.Info.Description = description
	doc.Info.Version = version

	for _, l := range labels {
		doc.Categories = append(doc.Categories, COCOCategory{
			ID:            catIdx[l.ID],
			Name:          l.Name,
			Supercategory: "",
		})
	}

	annID := 1
	for imgID, item := range items {
		doc.Images = append(doc.Images, COCOImage{
			ID:       imgID + 1,
			FileName: item.MediaID.String(),
		})
		for _, ann := range item.Annotations {
			catID := catIdx[ann.Label]
			switch ann.Type {
			case "bbox":
				b, err := geometry.DecodeBBox(ann.Geometry)
				if err != nil {
					return COCODocument{}, fmt.Errorf("export: coco bbox: %w", err)
				}
				doc.Annotations = append(doc.Annotations, COCOAnnotation{
					ID:         annID,
					ImageID:    imgID + 1,
					CategoryID: catID,
					BBox:       []float64{b.X, b.Y, b.W, b.H},
					Area:       b.W * b.H,
				})
				annID++
			case "polygon", "polyline":
				p, err := geometry.DecodePolygon(ann.Geometry)
				if err != nil {
					return COCODocument{}, fmt.Errorf("export: coco polygon: %w", err)
				}
				flat := make([]float64, 0, len(p.Points)*2)
				for _, pt := range p.Points {
					flat = append(flat, pt[0], pt[1])
				}
				doc.Annotations = append(doc.Annotations, COCOAnnotation{
					ID:           annID,
					ImageID:      imgID + 1,
					CategoryID:   catID,
					Segmentation: [][]float64{flat},
				})
				annID++
			default:
				// other annotation types have no COCO shape; skipped.
			}
		}
	}
	return doc, nil
}

// YOLO renders one line per bbox annotation:
// "<media_id>: <class_idx> <x> <y> <w> <h>", newline-joined (spec.md §6).
// class_idx is 0-based index into labels' declaration order; unknown
// labels are skipped (YOLO has no "unknown class" slot).
func YOLO(labels []LabelDef, items []ItemRow) (string, error) {
	classIdx := make(map[string]int, len(labels))
	for i, l := range labels {
		classIdx[l.ID] = i
	}

	var lines []string
	for _, item := range items {
		for _, ann := range item.Annotations {
			if ann.Type != "bbox" {
				continue
			}
			idx, ok := classIdx[ann.Label]
			if !ok {
				continue
			}
			b, err := geometry.DecodeBBox(ann.Geometry)
			if err != nil {
				return "", fmt.Errorf("export: yolo bbox: %w", err)
			}
			lines = append(lines, fmt.Sprintf("%s: %d %v %v %v %v",
				item.MediaID.String(), idx, b.X, b.Y, b.W, b.H))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// CSV renders header "media_id,split,annotation_type,label,confidence,geometry"
// with geometry serialized as its raw JSON (spec.md §6).
func CSV(items []ItemRow) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"media_id", "split", "annotation_type", "label", "confidence", "geometry"}); err != nil {
		return "", err
	}
	for _, item := range items {
		for _, ann := range item.Annotations {
			row := []string{
				item.MediaID.String(),
				item.Split,
				ann.Type,
				ann.Label,
				fmt.Sprintf("%v", ann.Confidence),
				string(ann.Geometry),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type jsonlAnnotation struct {
	Type       string          `json:"type"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Geometry   json.RawMessage `json:"geometry"`
}

type jsonlLine struct {
	MediaID     string            `json:"media_id"`
	Split       string            `json:"split"`
	Annotations []jsonlAnnotation `json:"annotations"`
}

// JSONL renders one {media_id, split, annotations} object per line
// (spec.md §6).
func JSONL(items []ItemRow) (string, error) {
	var lines []string
	for _, item := range items {
		line := jsonlLine{
			MediaID: item.MediaID.String(),
			Split:   item.Split,
		}
		for _, ann := range item.Annotations {
			line.Annotations = append(line.Annotations, jsonlAnnotation{
				Type:       ann.Type,
				Label:      ann.Label,
				Confidence: ann.Confidence,
				Geometry:   json.RawMessage(ann.Geometry),
			})
		}
		raw, err := json.Marshal(line)
		if err != nil {
			return "", fmt.Errorf("export: jsonl line: %w", err)
		}
		lines = append(lines, string(raw))
	}
	return strings.Join(lines, "\n"), nil
}

