package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/realtime"
)

// SSEJobNotifier is the production JobNotifier: every enrichment-worker
// event (spec.md §4.D progress callbacks) lands on the project channel
// (progress as SSEEventIndexingProgress, failures as SSEEventJobFailed,
// completions as SSEEventJobDone), so every connected collaborator sees
// ingestion move without polling.
type SSEJobNotifier struct {
	Emit SSEEmitter
}

func NewSSEJobNotifier(emit SSEEmitter) *SSEJobNotifier {
	return &SSEJobNotifier{Emit: emit}
}

func (n *SSEJobNotifier) JobProgress(projectID uuid.UUID, job *types.JobRun, stage string, pct int, msg string) {
	if n == nil || n.Emit == nil || projectID == uuid.Nil {
		return
	}
	n.Emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: projectID.String(),
		Event:   realtime.SSEEventIndexingProgress,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"progress": pct,
			"message":  msg,
		},
	})
}

func (n *SSEJobNotifier) JobFailed(projectID uuid.UUID, job *types.JobRun, stage string, msg string) {
	if n == nil || n.Emit == nil || projectID == uuid.Nil {
		return
	}
	n.Emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: projectID.String(),
		Event:   realtime.SSEEventJobFailed,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"error":    msg,
		},
	})
}

func (n *SSEJobNotifier) JobDone(projectID uuid.UUID, job *types.JobRun) {
	if n == nil || n.Emit == nil || projectID == uuid.Nil {
		return
	}
	n.Emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: projectID.String(),
		Event:   realtime.SSEEventJobDone,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
		},
	})
}

func safeJobID(job *types.JobRun) uuid.UUID {
	if job == nil {
		return uuid.Nil
	}
	return job.ID
}

func safeJobType(job *types.JobRun) string {
	if job == nil {
		return ""
	}
	return job.JobType
}
