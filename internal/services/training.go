package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/temporalx"
)

// modelDefaults maps a model_type to its default architecture (spec.md
// §4.I "Defaults by model_type").
var modelDefaults = map[string]string{
	"image_classifier": "resnet50",
	"object_detector":  "yolov8n",
	"clip_finetune":    "ViT-B/32",
	"text_classifier":  "distilbert-base-uncased",
}

// hyperparamDefaults fills in any field the caller omitted; every job's
// config must include all six fields (spec.md §4.I).
var hyperparamDefaults = map[string]any{
	"epochs":        10,
	"batch_size":    32,
	"learning_rate": 1e-4,
	"optimizer":     "adamw",
	"weight_decay":  0.01,
	"scheduler":     "cosine",
}

// CreateTrainingJobRequest is the inputs to component I's job creation
// (spec.md §6 "POST /training/jobs").
type CreateTrainingJobRequest struct {
	DatasetVersionID uuid.UUID
	ModelType        string
	Architecture     string // required when ModelType == "custom"
	Hyperparameters  map[string]any
	MaxConcurrent    int // max_concurrent_training_jobs, soft-enforced at dispatch
}

// TrainingService is component I's controller layer: job creation with
// per-model_type hyperparameter defaults, enqueuing the worker-side
// training_run job, and cancellation. Grounded on the teacher's JobRun
// state-machine conventions (status column guarded by
// UpdateFieldsUnlessStatus/CompareAndTransition) applied to
// TrainingStatus instead of job_run's own status column. Worker-side
// execution lives in internal/jobs/pipeline/trainingrun.
type TrainingService struct {
	db       *gorm.DB
	log      *logger.Logger
	r        *repos.Repos
	temporal *temporalx.Dispatcher
}

func NewTrainingService(db *gorm.DB, log *logger.Logger, r *repos.Repos, temporal *temporalx.Dispatcher) *TrainingService {
	return &TrainingService{db: db, log: log.With("service", "TrainingService"), r: r, temporal: temporal}
}

// Create validates model_type/architecture, fills hyperparameter
// defaults, soft-enforces the concurrency cap, and enqueues a
// training_run JobRun in the same transaction as the TrainingJob row.
func (s *TrainingService) Create(ctx context.Context, projectID uuid.UUID, req CreateTrainingJobRequest) (*types.TrainingJob, error) {
	architecture := req.Architecture
	if req.ModelType != "custom" {
		def, ok := modelDefaults[req.ModelType]
		if !ok {
			return nil, fmt.Errorf("%w: unknown model_type %q", dberrors.ErrInputInvalid, req.ModelType)
		}
		architecture = def
	} else if architecture == "" {
		return nil, fmt.Errorf("%w: architecture is required for model_type=custom", dberrors.ErrInputInvalid)
	}

	hp := map[string]any{}
	for k, v := range hyperparamDefaults {
		hp[k] = v
	}
	for k, v := range req.Hyperparameters {
		hp[k] = v
	}
	hp["model_type"] = req.ModelType
	hp["architecture"] = architecture

	var job *types.TrainingJob
	var jobRunID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: txx}

		if req.MaxConcurrent > 0 {
			active, err := s.countActive(dbc, projectID)
			if err != nil {
				return err
			}
			if active >= req.MaxConcurrent {
				return fmt.Errorf("%w: project already has %d training jobs in flight (max %d)", dberrors.ErrConflict, active, req.MaxConcurrent)
			}
		}

		configJSON, err := json.Marshal(hp)
		if err != nil {
			return err
		}
		created, err := s.r.TrainingJob.Create(dbc, &types.TrainingJob{
			ID:               uuid.New(),
			ProjectID:        projectID,
			DatasetVersionID: req.DatasetVersionID,
			Status:           types.TrainingQueued,
			Config:           datatypes.JSON(configJSON),
		})
		if err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]any{"training_job_id": created.ID.String()})
		jobRunID = uuid.New()
		if _, err := s.r.JobRun.Create(dbc, []*types.JobRun{{
			ID:          jobRunID,
			ProjectID:   projectID,
			JobType:     types.JobTypeTrainingRun,
			Queue:       types.QueueDefault,
			EntityType:  "training_job",
			EntityID:    created.ID,
			Status:      types.JobStatusQueued,
			MaxAttempts: 1,
			Payload:     datatypes.JSON(payload),
		}}); err != nil {
			return err
		}

		job = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Start the Temporal workflow only after the row committed — a
	// suspension point (network call) must never happen while holding
	// the transaction open (spec.md §5 "must not hold locks across
	// suspension").
	_ = s.temporal.Start(ctx, jobRunID)
	return job, nil
}

// countActive returns how many of the project's training jobs are
// currently in PREPARING or TRAINING (spec.md §4.I "Concurrency cap").
func (s *TrainingService) countActive(dbc dbctx.Context, projectID uuid.UUID) (int, error) {
	jobs, err := s.r.TrainingJob.ListByProject(dbc, projectID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, j := range jobs {
		if j.Status == types.TrainingPreparing || j.Status == types.TrainingTraining {
			count++
		}
	}
	return count, nil
}

// Cancel transitions a training job to CANCELLED from any non-terminal
// state (spec.md §4.I "Any non-terminal state -> CANCELLED on user
// request"). Returns ErrConflict if the job is already terminal.
func (s *TrainingService) Cancel(ctx context.Context, id uuid.UUID) (*types.TrainingJob, error) {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := s.r.TrainingJob.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: training job is already %s", dberrors.ErrConflict, job.Status)
	}
	ok, err := s.r.TrainingJob.CompareAndTransition(dbc, id, job.Status, map[string]interface{}{
		"status": types.TrainingCancelled,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: training job changed state concurrently", dberrors.ErrConflict)
	}
	job.Status = types.TrainingCancelled
	return job, nil
}

func (s *TrainingService) List(ctx context.Context, projectID uuid.UUID) ([]*types.TrainingJob, error) {
	return s.r.TrainingJob.ListByProject(dbctx.Context{Ctx: ctx}, projectID)
}

func (s *TrainingService) Get(ctx context.Context, id uuid.UUID) (*types.TrainingJob, error) {
	return s.r.TrainingJob.GetByID(dbctx.Context{Ctx: ctx}, id)
}
