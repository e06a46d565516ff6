package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DatasetStatus string

const (
	DatasetStatusDraft    DatasetStatus = "DRAFT"
	DatasetStatusActive   DatasetStatus = "ACTIVE"
	DatasetStatusFrozen   DatasetStatus = "FROZEN"
	DatasetStatusArchived DatasetStatus = "ARCHIVED"
)

// DatasetType is a closed enumeration of supported ML task shapes.
type DatasetType string

const (
	DatasetTypeClassification      DatasetType = "CLASSIFICATION"
	DatasetTypeDetection           DatasetType = "DETECTION"
	DatasetTypeSegmentationSemantic DatasetType = "SEGMENTATION_SEMANTIC"
	DatasetTypeSegmentationInstance DatasetType = "SEGMENTATION_INSTANCE"
	DatasetTypeCaptioning          DatasetType = "CAPTIONING"
	DatasetTypeNER                 DatasetType = "NER"
)

// LabelDef is one entry of a Dataset's ordered label schema.
type LabelDef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Dataset is a curated view of media for a task (component C).
type Dataset struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_dataset_project_slug" json:"project_id"`
	Slug      string        `gorm:"column:slug;not null;uniqueIndex:idx_dataset_project_slug" json:"slug"`
	Name      string        `gorm:"column:name;not null" json:"name"`
	Type      DatasetType   `gorm:"column:type;not null" json:"type"`
	Status    DatasetStatus `gorm:"column:status;not null;default:'DRAFT'" json:"status"`

	LabelSchema datatypes.JSON `gorm:"column:label_schema;type:jsonb" json:"label_schema,omitempty"`
	SplitRatios datatypes.JSON `gorm:"column:split_ratios;type:jsonb" json:"split_ratios,omitempty"`

	ItemCount       int `gorm:"column:item_count;not null;default:0" json:"item_count"`
	AnnotatedCount  int `gorm:"column:annotated_count;not null;default:0" json:"annotated_count"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Dataset) TableName() string { return "datasets" }

type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
)

// DatasetItem is unique per (dataset, media).
type DatasetItem struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_dataset_item_unique" json:"dataset_id"`
	MediaID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_dataset_item_unique" json:"media_id"`
	Split      Split      `gorm:"column:split;not null;default:'train'" json:"split"`
	Priority   int        `gorm:"column:priority;not null;default:0" json:"priority"`
	Annotated  bool       `gorm:"column:annotated;not null;default:false" json:"annotated"`
	AssigneeID *uuid.UUID `gorm:"type:uuid;column:assignee_id" json:"assignee_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DatasetItem) TableName() string { return "dataset_items" }

// ManifestEntry is one row of a DatasetVersion's immutable item manifest.
type ManifestEntry struct {
	ItemID  uuid.UUID `json:"item_id"`
	MediaID uuid.UUID `json:"media_id"`
	Split   Split     `json:"split"`
}

// DatasetVersion is a write-once snapshot (spec.md §3).
type DatasetVersion struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_dataset_version_tag" json:"dataset_id"`
	Tag        string         `gorm:"column:tag;not null;uniqueIndex:idx_dataset_version_tag" json:"tag"`
	Manifest   datatypes.JSON `gorm:"column:manifest;type:jsonb;not null" json:"manifest"`
	Stats      datatypes.JSON `gorm:"column:stats;type:jsonb" json:"stats,omitempty"`
	ExportPath string         `gorm:"column:export_path" json:"export_path,omitempty"`
	ExportFmt  string         `gorm:"column:export_fmt" json:"export_fmt,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (DatasetVersion) TableName() string { return "dataset_versions" }
