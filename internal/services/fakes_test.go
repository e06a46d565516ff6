package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// newTestGormDB opens an in-memory sqlite handle. Services only use it
// as a transaction boundary in these tests; rows live in the fake repos,
// so no schema migration is needed.
func newTestGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func newTestServiceLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	t.Cleanup(log.Sync)
	return log
}

// fakeJobRunRepo records created rows; the scheduler-side methods are
// stubs because these tests exercise dispatch, not execution.
type fakeJobRunRepo struct {
	created []*types.JobRun
}

func (f *fakeJobRunRepo) Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	f.created = append(f.created, jobs...)
	return jobs, nil
}

func (f *fakeJobRunRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.JobRun, error) {
	var out []*types.JobRun
	for _, j := range f.created {
		for _, id := range ids {
			if j.ID == id {
				out = append(out, j)
			}
		}
	}
	return out, nil
}

func (f *fakeJobRunRepo) ListByIndexingJob(dbc dbctx.Context, indexingJobID uuid.UUID) ([]*types.JobRun, error) {
	var out []*types.JobRun
	for _, j := range f.created {
		if j.IndexingJobID != nil && *j.IndexingJobID == indexingJobID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobRunRepo) ClaimNextRunnable(dbc dbctx.Context, queues []string, retryBase time.Duration, staleRunning time.Duration) (*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakeJobRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	return true, nil
}

func (f *fakeJobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error { return nil }

func (f *fakeJobRunRepo) ExistsRunnable(dbc dbctx.Context, projectID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID) (bool, error) {
	return false, nil
}

// fakeIndexingJobRepo records the parent rows dispatch() creates.
type fakeIndexingJobRepo struct {
	created []*types.IndexingJob
}

func (f *fakeIndexingJobRepo) Create(dbc dbctx.Context, job *types.IndexingJob) (*types.IndexingJob, error) {
	f.created = append(f.created, job)
	return job, nil
}

func (f *fakeIndexingJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.IndexingJob, error) {
	for _, j := range f.created {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIndexingJobRepo) IncrementDone(dbc dbctx.Context, id uuid.UUID, failed bool) error {
	return nil
}

// fakeTrainingJobRepo is an in-memory TrainingJobRepo.
type fakeTrainingJobRepo struct {
	rows map[uuid.UUID]*types.TrainingJob
}

func newFakeTrainingJobRepo() *fakeTrainingJobRepo {
	return &fakeTrainingJobRepo{rows: make(map[uuid.UUID]*types.TrainingJob)}
}

func (f *fakeTrainingJobRepo) Create(dbc dbctx.Context, j *types.TrainingJob) (*types.TrainingJob, error) {
	f.rows[j.ID] = j
	return j, nil
}

func (f *fakeTrainingJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TrainingJob, error) {
	j, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return j, nil
}

func (f *fakeTrainingJobRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.TrainingJob, error) {
	var out []*types.TrainingJob
	for _, j := range f.rows {
		if j.ProjectID == projectID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeTrainingJobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakeTrainingJobRepo) CompareAndTransition(dbc dbctx.Context, id uuid.UUID, expectCurrent types.TrainingStatus, updates map[string]interface{}) (bool, error) {
	j, ok := f.rows[id]
	if !ok || j.Status != expectCurrent {
		return false, nil
	}
	if next, ok := updates["status"].(types.TrainingStatus); ok {
		j.Status = next
	}
	return true, nil
}
