package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MediaKind string

const (
	MediaKindImage    MediaKind = "IMAGE"
	MediaKindVideo    MediaKind = "VIDEO"
	MediaKindAudio    MediaKind = "AUDIO"
	MediaKindText     MediaKind = "TEXT"
	MediaKindDocument MediaKind = "DOCUMENT"
)

// MediaState is monotonic only in PENDING -> PROCESSING ->
// {COMPLETED, FAILED, PARTIAL} (spec.md §3).
type MediaState string

const (
	MediaStatePending    MediaState = "PENDING"
	MediaStateProcessing MediaState = "PROCESSING"
	MediaStateCompleted  MediaState = "COMPLETED"
	MediaStateFailed     MediaState = "FAILED"
	MediaStatePartial    MediaState = "PARTIAL"
)

// Media is an immutable blob plus mutable enrichment state (component C).
// Checksum is fixed at creation. Embedding-point identifiers are soft
// references into the vector index (component B): strings, not foreign
// keys, because the index lives outside the relational store.
type Media struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`

	Filename string    `gorm:"column:filename;not null" json:"filename"`
	Kind     MediaKind `gorm:"column:kind;not null;index" json:"kind"`
	MimeType string    `gorm:"column:mime_type;not null" json:"mime_type"`
	SizeBytes int64    `gorm:"column:size_bytes;not null" json:"size_bytes"`
	Checksum  string   `gorm:"column:checksum;not null;index" json:"checksum"`

	StoragePath   string `gorm:"column:storage_path;not null" json:"storage_path"`
	ThumbnailPath string `gorm:"column:thumbnail_path" json:"thumbnail_path,omitempty"`

	Width       *int     `gorm:"column:width" json:"width,omitempty"`
	Height      *int     `gorm:"column:height" json:"height,omitempty"`
	DurationSec *float64 `gorm:"column:duration_sec" json:"duration_sec,omitempty"`
	FPS         *float64 `gorm:"column:fps" json:"fps,omitempty"`

	State MediaState `gorm:"column:state;not null;index;default:'PENDING'" json:"state"`

	ClipEmbeddingID string `gorm:"column:clip_embedding_id" json:"clip_embedding_id,omitempty"`
	DinoEmbeddingID string `gorm:"column:dino_embedding_id" json:"dino_embedding_id,omitempty"`
	TextEmbeddingID string `gorm:"column:text_embedding_id" json:"text_embedding_id,omitempty"`

	AutoCaption          string         `gorm:"column:auto_caption" json:"auto_caption,omitempty"`
	AutoTags             datatypes.JSON `gorm:"column:auto_tags;type:jsonb" json:"auto_tags,omitempty"`
	CustomIndexingResults datatypes.JSON `gorm:"column:custom_indexing_results;type:jsonb" json:"custom_indexing_results,omitempty"`
	CustomPromptID       *uuid.UUID     `gorm:"type:uuid;column:custom_prompt_id" json:"custom_prompt_id,omitempty"`

	Title       string         `gorm:"column:title" json:"title,omitempty"`
	Description string         `gorm:"column:description" json:"description,omitempty"`
	UserTags    datatypes.JSON `gorm:"column:user_tags;type:jsonb" json:"user_tags,omitempty"`

	LastError string `gorm:"column:last_error" json:"last_error,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Media) TableName() string { return "media" }

// MediaSourceKind enumerates the external references a MediaSource may
// hold.
type MediaSourceKind string

const (
	MediaSourceURL       MediaSourceKind = "URL"
	MediaSourceWebPage   MediaSourceKind = "WEB_PAGE"
	MediaSourceMarkdown  MediaSourceKind = "MARKDOWN"
	MediaSourcePaper     MediaSourceKind = "PAPER"
	MediaSourceAPIResult MediaSourceKind = "API_RESULT"
)

// MediaSource is additive: duplicate attachments are detectable via
// ContentHash but never rejected (spec.md §3).
type MediaSource struct {
	ID      uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MediaID uuid.UUID       `gorm:"type:uuid;not null;index" json:"media_id"`
	Kind    MediaSourceKind `gorm:"column:kind;not null" json:"kind"`
	URL     string          `gorm:"column:url" json:"url,omitempty"`

	Content         string `gorm:"column:content" json:"content,omitempty"`
	ContentHash     string `gorm:"column:content_hash;index" json:"content_hash,omitempty"`
	TextEmbeddingID string `gorm:"column:text_embedding_id" json:"text_embedding_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (MediaSource) TableName() string { return "media_sources" }
