package export

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCOCO_WorkedExample(t *testing.T) {
	labels := []LabelDef{{ID: "person", Name: "Person"}, {ID: "car", Name: "Car"}}

	m1 := uuid.New()
	m2 := uuid.New()

	items := []ItemRow{
		{
			MediaID: m1,
			Split:   "train",
			Annotations: []AnnotationRow{
				{Type: "bbox", Label: "person", Geometry: []byte(`{"x":10,"y":20,"w":100,"h":200}`)},
				{Type: "bbox", Label: "car", Geometry: []byte(`{"x":300,"y":100,"w":200,"h":150}`)},
			},
		},
		{
			MediaID: m2,
			Split:   "val",
			Annotations: []AnnotationRow{
				{Type: "polygon", Label: "person", Geometry: []byte(`{"points":[[10,10],[50,10],[50,50],[10,50]]}`)},
			},
		},
	}

	doc, err := COCO("d", "v1", labels, items)
	require.NoError(t, err)

	require.Len(t, doc.Images, 2)
	require.Equal(t, 1, doc.Images[0].ID)
	require.Equal(t, 2, doc.Images[1].ID)

	require.Len(t, doc.Annotations, 3)
	require.Equal(t, []float64{10, 20, 100, 200}, doc.Annotations[0].BBox)
	require.Equal(t, 20000.0, doc.Annotations[0].Area)
	require.Equal(t, [][]float64{{10, 10, 50, 10, 50, 50, 10, 50}}, doc.Annotations[2].Segmentation)

	require.Equal(t, []COCOCategory{
		{ID: 1, Name: "Person", Supercategory: ""},
		{ID: 2, Name: "Car", Supercategory: ""},
	}, doc.Categories)
}

func TestCOCO_UnknownLabelMapsToZero(t *testing.T) {
	labels := []LabelDef{{ID: "person", Name: "Person"}}
	items := []ItemRow{{
		MediaID: uuid.New(),
		Annotations: []AnnotationRow{
			{Type: "bbox", Label: "unicorn", Geometry: []byte(`{"x":0,"y":0,"w":1,"h":1}`)},
		},
	}}
	doc, err := COCO("d", "v1", labels, items)
	require.NoError(t, err)
	require.Equal(t, 0, doc.Annotations[0].CategoryID)
}

func TestYOLO_OneLinePerBBox(t *testing.T) {
	labels := []LabelDef{{ID: "person"}, {ID: "car"}}
	m1 := uuid.New()
	items := []ItemRow{{
		MediaID: m1,
		Annotations: []AnnotationRow{
			{Type: "bbox", Label: "car", Geometry: []byte(`{"x":1,"y":2,"w":3,"h":4}`)},
		},
	}}
	out, err := YOLO(labels, items)
	require.NoError(t, err)
	require.Equal(t, m1.String()+": 1 1 2 3 4", out)
}

func TestCSV_Header(t *testing.T) {
	out, err := CSV(nil)
	require.NoError(t, err)
	require.Contains(t, out, "media_id,split,annotation_type,label,confidence,geometry")
}

func TestJSONL_OneObjectPerLine(t *testing.T) {
	m1 := uuid.New()
	m2 := uuid.New()
	items := []ItemRow{
		{MediaID: m1, Split: "train"},
		{MediaID: m2, Split: "val"},
	}
	out, err := JSONL(items)
	require.NoError(t, err)
	require.Len(t, splitLines(out), 2)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
