package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobRun is the task-queue row consumed by the enrichment workers
// (component D) and the training controller (component I). Generalized
// from the teacher's job_run model: same claim/heartbeat/retry shape,
// entity_type/entity_id repurposed to point at a Media row or a
// TrainingJob row instead of the teacher's domain entities.
type JobRun struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	JobType       string     `gorm:"column:job_type;not null;index" json:"job_type"`
	Queue         string     `gorm:"column:queue;not null;index;default:'default'" json:"queue"`
	EntityType    string     `gorm:"column:entity_type;index" json:"entity_type,omitempty"`
	EntityID      uuid.UUID  `gorm:"type:uuid;column:entity_id;index" json:"entity_id,omitempty"`
	IndexingJobID *uuid.UUID `gorm:"type:uuid;column:indexing_job_id;index" json:"indexing_job_id,omitempty"`

	Status      string `gorm:"column:status;not null;index;default:'queued'" json:"status"`
	Stage       string `gorm:"column:stage" json:"stage,omitempty"`
	Progress    int    `gorm:"column:progress;not null;default:0" json:"progress"`
	Message     string `gorm:"column:message" json:"message,omitempty"`
	Attempts    int    `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts int    `gorm:"column:max_attempts;not null;default:3" json:"max_attempts"`

	LockedAt    *time.Time `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`
	Error       string     `gorm:"column:error" json:"error,omitempty"`

	Payload datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result  datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (JobRun) TableName() string { return "job_runs" }

// Task kinds dispatched through internal/jobs/runtime.Registry.
const (
	JobTypeClipEmbed   = "clip_embed"
	JobTypeDinoEmbed   = "dino_embed"
	JobTypeVLMCaption  = "vlm_caption"
	JobTypeTextEmbed   = "text_embed"
	JobTypeTrainingRun = "training_run"
)

// Queue names; routing by queue is the only GPU-contention control
// (spec.md §9 "Task orchestration").
const (
	QueueDefault = "default"
	QueueGPU     = "gpu"
	QueueVLM     = "vlm"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusCanceled  = "canceled"
)

// IndexingJob is the parent record dispatch() creates for one run of the
// indexing dispatcher (component E): {job_id, total_items, total_tasks}
// plus live progress counters for GET /indexing/status.
type IndexingJob struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Pipelines     datatypes.JSON `gorm:"column:pipelines;type:jsonb;not null" json:"pipelines"`
	CustomPromptID *uuid.UUID    `gorm:"type:uuid;column:custom_prompt_id" json:"custom_prompt_id,omitempty"`
	Priority      int            `gorm:"column:priority;not null;default:0" json:"priority"`

	TotalItems int `gorm:"column:total_items;not null" json:"total_items"`
	TotalTasks int `gorm:"column:total_tasks;not null" json:"total_tasks"`
	DoneTasks  int `gorm:"column:done_tasks;not null;default:0" json:"done_tasks"`
	FailedTasks int `gorm:"column:failed_tasks;not null;default:0" json:"failed_tasks"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (IndexingJob) TableName() string { return "indexing_jobs" }
