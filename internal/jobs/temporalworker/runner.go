// Package temporalworker starts a Temporal worker polling the task
// queue component D's enrichment tasks are routed through when
// TEMPORAL_ADDRESS is configured. Grounded on the teacher's
// internal/temporalx/temporalworker.Runner.
package temporalworker

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	"github.com/pierdell/mediaforge-backend/internal/jobs/runtime"
	"github.com/pierdell/mediaforge-backend/internal/platform/envutil"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/temporalx"
	"github.com/pierdell/mediaforge-backend/internal/platform/temporalx/jobrun"
	"github.com/pierdell/mediaforge-backend/internal/services"
)

// Runner owns the Temporal worker lifecycle. It shares the same
// registry, repo, and notifier the SQL worker pool uses, so a job
// handler never knows (or needs to know) which execution backend ran it
// (spec.md §9 "Task orchestration").
type Runner struct {
	log *logger.Logger

	tc       temporalsdkclient.Client
	db       *gorm.DB
	jobs     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier

	w worker.Worker
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, db *gorm.DB, jobs repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if db == nil || jobs == nil || registry == nil {
		return nil, fmt.Errorf("temporal worker missing dependencies")
	}
	return &Runner{log: log, tc: tc, db: db, jobs: jobs, registry: registry, notify: notify}, nil
}

// Start registers the jobrun workflow/activity and begins polling
// TEMPORAL_TASK_QUEUE. It stops the worker when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := temporalx.LoadConfig()
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &jobrun.Activities{
		Log:      r.log,
		DB:       r.db,
		Jobs:     r.jobs,
		Registry: r.registry,
		Notify:   r.notify,
	}
	w.RegisterWorkflowWithOptions(jobrun.Workflow, workflow.RegisterOptions{Name: jobrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Tick, activity.RegisterOptions{Name: jobrun.ActivityTick})

	if err := w.Start(); err != nil {
		return fmt.Errorf("start temporal worker: %w", err)
	}
	r.w = w

	if r.log != nil {
		r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	}

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}
