package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
)

func trainingFixture(t *testing.T) (*TrainingService, *fakeTrainingJobRepo, *fakeJobRunRepo) {
	t.Helper()
	trainingJobs := newFakeTrainingJobRepo()
	jobRuns := &fakeJobRunRepo{}
	r := &repos.Repos{TrainingJob: trainingJobs, JobRun: jobRuns}
	svc := NewTrainingService(newTestGormDB(t), newTestServiceLogger(t), r, nil)
	return svc, trainingJobs, jobRuns
}

func TestTrainingCreate_DefaultsByModelType(t *testing.T) {
	svc, _, jobRuns := trainingFixture(t)
	projectID := uuid.New()

	job, err := svc.Create(context.Background(), projectID, CreateTrainingJobRequest{
		DatasetVersionID: uuid.New(),
		ModelType:        "image_classifier",
	})
	require.NoError(t, err)
	require.Equal(t, types.TrainingQueued, job.Status)

	var cfg map[string]any
	require.NoError(t, json.Unmarshal(job.Config, &cfg))
	require.Equal(t, "resnet50", cfg["architecture"])
	require.Equal(t, "image_classifier", cfg["model_type"])
	for _, key := range []string{"epochs", "batch_size", "learning_rate", "optimizer", "weight_decay", "scheduler"} {
		require.Contains(t, cfg, key)
	}

	require.Len(t, jobRuns.created, 1)
	run := jobRuns.created[0]
	require.Equal(t, types.JobTypeTrainingRun, run.JobType)
	require.Equal(t, types.QueueDefault, run.Queue)
	require.Equal(t, 1, run.MaxAttempts)
	require.Equal(t, job.ID, run.EntityID)
}

func TestTrainingCreate_CustomRequiresArchitecture(t *testing.T) {
	svc, _, _ := trainingFixture(t)

	_, err := svc.Create(context.Background(), uuid.New(), CreateTrainingJobRequest{
		DatasetVersionID: uuid.New(),
		ModelType:        "custom",
	})
	require.ErrorIs(t, err, dberrors.ErrInputInvalid)

	job, err := svc.Create(context.Background(), uuid.New(), CreateTrainingJobRequest{
		DatasetVersionID: uuid.New(),
		ModelType:        "custom",
		Architecture:     "convnext_tiny",
	})
	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(job.Config, &cfg))
	require.Equal(t, "convnext_tiny", cfg["architecture"])
}

func TestTrainingCreate_UnknownModelType(t *testing.T) {
	svc, _, _ := trainingFixture(t)

	_, err := svc.Create(context.Background(), uuid.New(), CreateTrainingJobRequest{
		DatasetVersionID: uuid.New(),
		ModelType:        "diffusion_policy",
	})
	require.ErrorIs(t, err, dberrors.ErrInputInvalid)
}

func TestTrainingCreate_CallerOverridesKeepDefaultsElsewhere(t *testing.T) {
	svc, _, _ := trainingFixture(t)

	job, err := svc.Create(context.Background(), uuid.New(), CreateTrainingJobRequest{
		DatasetVersionID: uuid.New(),
		ModelType:        "object_detector",
		Hyperparameters:  map[string]any{"epochs": 50, "learning_rate": 3e-4},
	})
	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(job.Config, &cfg))
	require.Equal(t, float64(50), cfg["epochs"])
	require.Equal(t, 3e-4, cfg["learning_rate"])
	require.Equal(t, "adamw", cfg["optimizer"])
	require.Equal(t, "yolov8n", cfg["architecture"])
}

func TestTrainingCreate_ConcurrencyCap(t *testing.T) {
	svc, trainingJobs, _ := trainingFixture(t)
	projectID := uuid.New()

	for _, st := range []types.TrainingStatus{types.TrainingPreparing, types.TrainingTraining, types.TrainingQueued} {
		j := &types.TrainingJob{ID: uuid.New(), ProjectID: projectID, Status: st}
		trainingJobs.rows[j.ID] = j
	}

	_, err := svc.Create(context.Background(), projectID, CreateTrainingJobRequest{
		DatasetVersionID: uuid.New(),
		ModelType:        "clip_finetune",
		MaxConcurrent:    2,
	})
	require.ErrorIs(t, err, dberrors.ErrConflict)

	// A QUEUED job does not count against the cap.
	_, err = svc.Create(context.Background(), projectID, CreateTrainingJobRequest{
		DatasetVersionID: uuid.New(),
		ModelType:        "clip_finetune",
		MaxConcurrent:    3,
	})
	require.NoError(t, err)
}

func TestTrainingCancel_FromNonTerminal(t *testing.T) {
	svc, trainingJobs, _ := trainingFixture(t)

	j := &types.TrainingJob{ID: uuid.New(), ProjectID: uuid.New(), Status: types.TrainingTraining}
	trainingJobs.rows[j.ID] = j

	cancelled, err := svc.Cancel(context.Background(), j.ID)
	require.NoError(t, err)
	require.Equal(t, types.TrainingCancelled, cancelled.Status)
	require.Equal(t, types.TrainingCancelled, trainingJobs.rows[j.ID].Status)
}

func TestTrainingCancel_TerminalRejected(t *testing.T) {
	svc, trainingJobs, _ := trainingFixture(t)

	for _, st := range []types.TrainingStatus{types.TrainingCompleted, types.TrainingFailed, types.TrainingCancelled} {
		j := &types.TrainingJob{ID: uuid.New(), ProjectID: uuid.New(), Status: st}
		trainingJobs.rows[j.ID] = j
		_, err := svc.Cancel(context.Background(), j.ID)
		require.ErrorIs(t, err, dberrors.ErrConflict)
	}
}
