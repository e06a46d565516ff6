package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TrainingStatus is component I's state machine. Cancellation is only
// legal from a non-terminal state (spec.md §3).
type TrainingStatus string

const (
	TrainingQueued     TrainingStatus = "QUEUED"
	TrainingPreparing  TrainingStatus = "PREPARING"
	TrainingTraining   TrainingStatus = "TRAINING"
	TrainingEvaluating TrainingStatus = "EVALUATING"
	TrainingCompleted  TrainingStatus = "COMPLETED"
	TrainingFailed     TrainingStatus = "FAILED"
	TrainingCancelled  TrainingStatus = "CANCELLED"
)

// IsTerminal reports whether s admits no further transitions.
func (s TrainingStatus) IsTerminal() bool {
	switch s {
	case TrainingCompleted, TrainingFailed, TrainingCancelled:
		return true
	default:
		return false
	}
}

// TrainingJob owns the progress tuple (current_epoch, total_epochs,
// train_loss, val_loss) and a final metrics map.
type TrainingJob struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	DatasetVersionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"dataset_version_id"`
	Status           TrainingStatus `gorm:"column:status;not null;default:'QUEUED';index" json:"status"`

	Config datatypes.JSON `gorm:"column:config;type:jsonb" json:"config,omitempty"`

	CurrentEpoch int      `gorm:"column:current_epoch;not null;default:0" json:"current_epoch"`
	TotalEpochs  int      `gorm:"column:total_epochs;not null;default:0" json:"total_epochs"`
	TrainLoss    *float64 `gorm:"column:train_loss" json:"train_loss,omitempty"`
	ValLoss      *float64 `gorm:"column:val_loss" json:"val_loss,omitempty"`

	Metrics datatypes.JSON `gorm:"column:metrics;type:jsonb" json:"metrics,omitempty"`
	Error   string         `gorm:"column:error" json:"error,omitempty"`

	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TrainingJob) TableName() string { return "training_jobs" }

// trainingTransitions enumerates the state machine's legal edges
// (spec.md 4.I). Cancelled and Failed are listed on every non-terminal
// row; terminal states have no row, so they admit no transition.
var trainingTransitions = map[TrainingStatus][]TrainingStatus{
	TrainingQueued:     {TrainingPreparing, TrainingCancelled, TrainingFailed},
	TrainingPreparing:  {TrainingTraining, TrainingCancelled, TrainingFailed},
	TrainingTraining:   {TrainingTraining, TrainingEvaluating, TrainingCancelled, TrainingFailed},
	TrainingEvaluating: {TrainingCompleted, TrainingCancelled, TrainingFailed},
}

// CanTransition reports whether moving from s to next is a legal edge in
// the training job state machine.
func (s TrainingStatus) CanTransition(next TrainingStatus) bool {
	for _, candidate := range trainingTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
