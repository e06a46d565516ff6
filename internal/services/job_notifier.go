// Package services holds cross-cutting application services that sit
// above the repo layer but below the HTTP boundary: job notification,
// the indexing dispatcher, the hybrid search engine, quality/active
// learning, and the training controller.
package services

import (
	"github.com/google/uuid"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// JobNotifier is the side-channel the job runtime uses to push progress,
// failure, and completion events out of the worker pool. Grounded on the
// teacher's SSE notifier seam, generalized to project-scoped fan-out:
// our real-time surface is the collaboration fabric's project channel
// (component G), not a per-user SSE stream.
type JobNotifier interface {
	JobProgress(projectID uuid.UUID, job *types.JobRun, stage string, pct int, msg string)
	JobFailed(projectID uuid.UUID, job *types.JobRun, stage string, msg string)
	JobDone(projectID uuid.UUID, job *types.JobRun)
}

// NoopJobNotifier discards every event except a debug/warn log line.
// Used in tests and for worker deployments that run detached from the
// collaboration fabric.
type NoopJobNotifier struct {
	Log *logger.Logger
}

func (n NoopJobNotifier) JobProgress(projectID uuid.UUID, job *types.JobRun, stage string, pct int, msg string) {
	if n.Log != nil {
		n.Log.Debug("job progress", "project_id", projectID, "job_id", job.ID, "stage", stage, "progress", pct)
	}
}

func (n NoopJobNotifier) JobFailed(projectID uuid.UUID, job *types.JobRun, stage string, msg string) {
	if n.Log != nil {
		n.Log.Warn("job failed", "project_id", projectID, "job_id", job.ID, "stage", stage, "error", msg)
	}
}

func (n NoopJobNotifier) JobDone(projectID uuid.UUID, job *types.JobRun) {
	if n.Log != nil {
		n.Log.Debug("job done", "project_id", projectID, "job_id", job.ID)
	}
}
