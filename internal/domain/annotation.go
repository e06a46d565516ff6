package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnnotationType discriminates the ten geometry shapes. Represented as a
// sum type tagged by type, stored at rest as JSON; every consumer
// (exporters, augmenters, quality metrics) switches on this tag rather
// than modeling a type hierarchy (spec.md §9 "Cyclic and polymorphic
// geometry").
type AnnotationType string

const (
	AnnotationBBox            AnnotationType = "BBOX"
	AnnotationPolygon         AnnotationType = "POLYGON"
	AnnotationPolyline        AnnotationType = "POLYLINE"
	AnnotationPoint           AnnotationType = "POINT"
	AnnotationMask            AnnotationType = "MASK"
	AnnotationClassification  AnnotationType = "CLASSIFICATION"
	AnnotationCaption         AnnotationType = "CAPTION"
	AnnotationTranscription   AnnotationType = "TRANSCRIPTION"
	AnnotationTemporalSegment AnnotationType = "TEMPORAL_SEGMENT"
	AnnotationCustom          AnnotationType = "CUSTOM"
)

type AnnotationSource string

const (
	AnnotationSourceManual    AnnotationSource = "manual"
	AnnotationSourceAutoVLM   AnnotationSource = "auto_vlm"
	AnnotationSourceAutoCLIP  AnnotationSource = "auto_clip"
	AnnotationSourceImported  AnnotationSource = "imported"
	AnnotationSourceAugmented AnnotationSource = "augmented"
)

// Annotation belongs to a DatasetItem. Geometry's shape depends on Type;
// consumers unmarshal it with the helpers in internal/geometry.
type Annotation struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetItemID uuid.UUID        `gorm:"type:uuid;not null;index" json:"dataset_item_id"`
	Type          AnnotationType   `gorm:"column:type;not null" json:"type"`
	Label         string           `gorm:"column:label;not null" json:"label"`
	Confidence    float64          `gorm:"column:confidence;not null;default:1" json:"confidence"`
	Geometry      datatypes.JSON   `gorm:"column:geometry;type:jsonb;not null" json:"geometry"`
	Attributes    datatypes.JSON   `gorm:"column:attributes;type:jsonb" json:"attributes,omitempty"`
	Frame         *int             `gorm:"column:frame" json:"frame,omitempty"`
	TimeSec       *float64         `gorm:"column:time_sec" json:"time_sec,omitempty"`
	Source        AnnotationSource `gorm:"column:source;not null;default:'manual'" json:"source"`
	CreatedByID   uuid.UUID        `gorm:"type:uuid;column:created_by_id;not null" json:"created_by_id"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Annotation) TableName() string { return "annotations" }

type ReviewStatus string

const (
	ReviewPending       ReviewStatus = "PENDING"
	ReviewApproved      ReviewStatus = "APPROVED"
	ReviewRejected      ReviewStatus = "REJECTED"
	ReviewNeedsRevision ReviewStatus = "NEEDS_REVISION"
)

// AnnotationReview is (annotation, reviewer, status, comment).
type AnnotationReview struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AnnotationID uuid.UUID    `gorm:"type:uuid;not null;index" json:"annotation_id"`
	ReviewerID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"reviewer_id"`
	Status       ReviewStatus `gorm:"column:status;not null;default:'PENDING'" json:"status"`
	Comment      string       `gorm:"column:comment" json:"comment,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (AnnotationReview) TableName() string { return "annotation_reviews" }

// AgreementScore is (dataset, dataset_item, annotator set, metric, score).
type AgreementScore struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"dataset_id"`
	DatasetItemID uuid.UUID      `gorm:"type:uuid;not null;index" json:"dataset_item_id"`
	AnnotatorIDs  datatypes.JSON `gorm:"column:annotator_ids;type:jsonb;not null" json:"annotator_ids"`
	Metric        string         `gorm:"column:metric;not null" json:"metric"`
	Score         float64        `gorm:"column:score;not null" json:"score"`
	Details       datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AgreementScore) TableName() string { return "agreement_scores" }
