package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// JobRunRepo is component D's scheduler: it decides what is runnable and
// owns the claim/lease/heartbeat/retry lifecycle. Grounded on the
// teacher's internal/data/repos/jobs/job_run.go; entity scoping moves
// from owner_user_id to project_id, and claims are queue-aware so GPU
// and VLM work never starves behind default-queue work (spec.md §9).
type JobRunRepo interface {
	Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.JobRun, error)
	ListByIndexingJob(dbc dbctx.Context, indexingJobID uuid.UUID) ([]*types.JobRun, error)
	ClaimNextRunnable(dbc dbctx.Context, queues []string, retryBase time.Duration, staleRunning time.Duration) (*types.JobRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	ExistsRunnable(dbc dbctx.Context, projectID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID) (bool, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{db: db, log: baseLog.With("repo", "JobRunRepo")}
}

func (r *jobRunRepo) Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	if len(jobs) == 0 {
		return []*types.JobRun{}, nil
	}
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRunRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.JobRun, error) {
	var out []*types.JobRun
	if len(ids) == 0 {
		return out, nil
	}
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRunRepo) ListByIndexingJob(dbc dbctx.Context, indexingJobID uuid.UUID) ([]*types.JobRun, error) {
	var out []*types.JobRun
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("indexing_job_id = ?", indexingJobID).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimNextRunnable locks and claims the oldest eligible row across the
// given queues (SKIP LOCKED so concurrent workers never block each
// other), favoring fresh queued work, then retry-eligible failures,
// then stale "running" rows abandoned by a dead worker. A failed row
// becomes eligible again once its exponential backoff window has passed:
// retryBase doubles per prior attempt (spec.md §4.D "base 30 s, × 2"),
// and the row's own max_attempts bounds the retry budget per task kind.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, queues []string, retryBase time.Duration, staleRunning time.Duration) (*types.JobRun, error) {
	base := tx(r.db, dbc.Tx)
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)

	var claimed *types.JobRun
	err := base.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var job types.JobRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < max_attempts
            AND (
              last_error_at IS NULL
              OR last_error_at < now() - make_interval(secs => ? * power(2, greatest(attempts - 1, 0)))
            )
          )
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.JobStatusQueued, types.JobStatusFailed, retryBase.Seconds(), types.JobStatusRunning, staleCutoff)
		if len(queues) > 0 {
			q = q.Where("queue IN ?", queues)
		}
		qErr := q.Order("created_at ASC").First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusRunning
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		job.UpdatedAt = now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateFieldsUnlessStatus guards against overwriting a terminal
// cancellation; the update is skipped (not an error) if the row is
// already in one of disallowedStatuses.
func (r *jobRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id)
	switch len(disallowedStatuses) {
	case 0:
	case 1:
		q = q.Where("status <> ?", disallowedStatuses[0])
	default:
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *jobRunRepo) ExistsRunnable(dbc dbctx.Context, projectID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID) (bool, error) {
	if projectID == uuid.Nil || jobType == "" {
		return false, nil
	}
	q := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Model(&types.JobRun{}).
		Where("project_id = ? AND job_type = ? AND status IN ?",
			projectID, jobType, []string{types.JobStatusQueued, types.JobStatusRunning})
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if entityID != nil && *entityID != uuid.Nil {
		q = q.Where("entity_id = ?", *entityID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IndexingJobRepo tracks the parent record for one dispatch() run
// (component E), aggregating per-task progress for GET /indexing/status.
type IndexingJobRepo interface {
	Create(dbc dbctx.Context, job *types.IndexingJob) (*types.IndexingJob, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.IndexingJob, error)
	IncrementDone(dbc dbctx.Context, id uuid.UUID, failed bool) error
}

type indexingJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIndexingJobRepo(db *gorm.DB, baseLog *logger.Logger) IndexingJobRepo {
	return &indexingJobRepo{db: db, log: baseLog.With("repo", "IndexingJobRepo")}
}

func (r *indexingJobRepo) Create(dbc dbctx.Context, job *types.IndexingJob) (*types.IndexingJob, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *indexingJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.IndexingJob, error) {
	var job types.IndexingJob
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// IncrementDone atomically bumps done_tasks (and failed_tasks, when the
// finishing task errored) so concurrent workers never lose an update.
func (r *indexingJobRepo) IncrementDone(dbc dbctx.Context, id uuid.UUID, failed bool) error {
	updates := map[string]interface{}{
		"done_tasks": gorm.Expr("done_tasks + 1"),
		"updated_at": time.Now(),
	}
	if failed {
		updates["failed_tasks"] = gorm.Expr("failed_tasks + 1")
	}
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.IndexingJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}
