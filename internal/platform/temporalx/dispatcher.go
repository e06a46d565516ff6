package temporalx

import (
	"context"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/temporalx/jobrun"
)

// Dispatcher starts one Temporal workflow execution per job_run row,
// keyed by the row's UUID as the WorkflowID. A service (indexing
// dispatcher, training controller) holds a *Dispatcher that is nil when
// Temporal isn't configured, so every call site is a single nil check
// away from "Temporal not in use, SQL worker pool handles it alone".
type Dispatcher struct {
	tc  temporalsdkclient.Client
	cfg Config
	log *logger.Logger
}

// NewDispatcher returns nil when tc is nil, so callers can do
// `d := temporalx.NewDispatcher(clients.Temporal, log); ...; d.Start(ctx, id)`
// unconditionally.
func NewDispatcher(tc temporalsdkclient.Client, log *logger.Logger) *Dispatcher {
	if tc == nil {
		return nil
	}
	return &Dispatcher{tc: tc, cfg: LoadConfig(), log: log}
}

// Start begins (or, for a re-dispatch of the same job_run id, no-ops
// against) the jobrun workflow for jobID. A WorkflowExecutionAlreadyStarted
// error is swallowed: it means a previous Start already has a workflow
// ticking this job, which is exactly the idempotent behavior
// spec.md §4.D requires of task submission. Every other start error is
// logged and swallowed too, so Start always returns nil and the SQL
// worker pool still claims the row.
func (d *Dispatcher) Start(ctx context.Context, jobID uuid.UUID) error {
	if d == nil || d.tc == nil || jobID == uuid.Nil {
		return nil
	}
	_, err := d.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       jobID.String(),
		TaskQueue:                d.cfg.TaskQueue,
		WorkflowIDReusePolicy:    0, // AllowDuplicate is the zero value; a terminated job_run id is never reused.
		WorkflowExecutionTimeout: 0,
	}, jobrun.WorkflowName)
	if err == nil {
		return nil
	}
	if d.log != nil {
		d.log.Warn("temporal: start workflow failed (SQL worker pool will still pick this job up)", "job_id", jobID, "error", err)
	}
	return nil
}

// StartAll is the batch form dispatch() uses after a bulk JobRun.Create
// (spec.md §4.E step 3: "enqueue a task" per (media, pipeline)).
func (d *Dispatcher) StartAll(ctx context.Context, jobIDs []uuid.UUID) {
	if d == nil {
		return
	}
	for _, id := range jobIDs {
		_ = d.Start(ctx, id)
	}
}
