package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

type TrainingJobRepo interface {
	Create(dbc dbctx.Context, j *types.TrainingJob) (*types.TrainingJob, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TrainingJob, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.TrainingJob, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// CompareAndTransition applies updates only if the row's current status
	// still matches expectCurrent, enforcing the state machine atomically
	// against concurrent writers (spec.md 4.I).
	CompareAndTransition(dbc dbctx.Context, id uuid.UUID, expectCurrent types.TrainingStatus, updates map[string]interface{}) (bool, error)
}

type trainingJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrainingJobRepo(db *gorm.DB, log *logger.Logger) TrainingJobRepo {
	return &trainingJobRepo{db: db, log: log.With("repo", "TrainingJobRepo")}
}

func (r *trainingJobRepo) Create(dbc dbctx.Context, j *types.TrainingJob) (*types.TrainingJob, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(j).Error; err != nil {
		return nil, err
	}
	return j, nil
}

func (r *trainingJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TrainingJob, error) {
	var j types.TrainingJob
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *trainingJobRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.TrainingJob, error) {
	var out []*types.TrainingJob
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *trainingJobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.TrainingJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *trainingJobRepo) CompareAndTransition(dbc dbctx.Context, id uuid.UUID, expectCurrent types.TrainingStatus, updates map[string]interface{}) (bool, error) {
	if next, ok := updates["status"].(types.TrainingStatus); ok && !expectCurrent.CanTransition(next) {
		return false, nil
	}
	res := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.TrainingJob{}).
		Where("id = ? AND status = ?", id, expectCurrent).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
