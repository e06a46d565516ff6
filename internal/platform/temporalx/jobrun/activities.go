package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/jobs/runtime"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/services"
)

// Activities bundles the single activity Temporal calls once per
// workflow tick. It is the Temporal-side twin of internal/jobs/worker's
// runLoop: same registry lookup and runtime.Context, but the "claim" is
// a plain status flip (running under a single workflow execution per
// job, never two) instead of a SKIP LOCKED row claim across goroutines.
type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Jobs     repos.JobRunRepo
	Registry *runtime.Registry
	Notify   services.JobNotifier
}

// Tick loads the job_run row, runs its handler exactly once if the job
// is still runnable, and reports the resulting status so Workflow knows
// whether to sleep-and-retick or return.
func (a *Activities) Tick(ctx context.Context, jobIDStr string) (TickResult, error) {
	res := TickResult{JobID: strings.TrimSpace(jobIDStr)}
	if a == nil || a.DB == nil || a.Jobs == nil || a.Registry == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}

	jobID, err := uuid.Parse(res.JobID)
	if err != nil || jobID == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id %q", jobIDStr)
	}

	job, err := a.loadJob(ctx, jobID)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, fmt.Errorf("jobrun: job %s not found", jobID)
	}

	if isTerminal(job.Status) {
		return tickResultFromJob(job), nil
	}

	stopHB := a.startHeartbeat(ctx, jobID)
	defer stopHB()

	now := time.Now().UTC()
	ran, err := a.Jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx, Tx: a.DB}, jobID, []string{types.JobStatusCanceled}, map[string]interface{}{
		"status":       types.JobStatusRunning,
		"attempts":     gorm.Expr("attempts + 1"),
		"locked_at":    now,
		"heartbeat_at": now,
	})
	if err != nil {
		return res, err
	}
	if !ran {
		// Canceled concurrently; reload and report terminal state.
		updated, rerr := a.loadJob(ctx, jobID)
		if rerr != nil || updated == nil {
			return res, rerr
		}
		return tickResultFromJob(updated), nil
	}
	job.Status = types.JobStatusRunning
	job.Attempts++

	jc := runtime.NewContext(ctx, a.DB, job, a.Jobs, a.Notify)
	h, ok := a.Registry.Get(job.JobType)
	if !ok {
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
	} else {
		a.runHandler(h, jc)
	}

	updated, err := a.loadJob(ctx, jobID)
	if err != nil {
		return res, err
	}
	if updated == nil {
		return res, fmt.Errorf("jobrun: job %s vanished mid-tick", jobID)
	}
	return tickResultFromJob(updated), nil
}

// runHandler isolates handler panics so a buggy pipeline fails its own
// job instead of crashing the Temporal activity worker process.
func (a *Activities) runHandler(h runtime.Handler, jc *runtime.Context) {
	defer func() {
		if r := recover(); r != nil {
			if a.Log != nil {
				a.Log.Error("job handler panic", "job_id", jc.Job.ID, "job_type", jc.Job.JobType, "panic", r)
			}
			jc.Fail("panic", fmt.Errorf("panic: %v", r))
		}
	}()
	if err := h.Run(jc); err != nil {
		jc.Fail("run", err)
	}
}

func (a *Activities) loadJob(ctx context.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rows, err := a.Jobs.GetByIDs(dbctx.Context{Ctx: ctx, Tx: a.DB}, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// startHeartbeat records both a Temporal activity heartbeat (so
// StartToCloseTimeout doesn't trip a long-running pipeline) and the
// job_run.heartbeat_at column the reprocess sweeper and stale-running
// detection read.
func (a *Activities) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				activity.RecordHeartbeat(ctx)
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx, Tx: a.DB}, jobID)
			}
		}
	}()
	return func() { close(done) }
}

func isTerminal(status string) bool {
	switch status {
	case types.JobStatusSucceeded, types.JobStatusFailed, types.JobStatusCanceled:
		return true
	default:
		return false
	}
}

func tickResultFromJob(job *types.JobRun) TickResult {
	return TickResult{
		JobID:    job.ID.String(),
		Status:   job.Status,
		Stage:    job.Stage,
		Progress: job.Progress,
		Message:  job.Message,
	}
}
