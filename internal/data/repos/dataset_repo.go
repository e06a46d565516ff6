package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

type DatasetRepo interface {
	Create(dbc dbctx.Context, d *types.Dataset) (*types.Dataset, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Dataset, error)
	GetBySlug(dbc dbctx.Context, projectID uuid.UUID, slug string) (*types.Dataset, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Dataset, error)
	Update(dbc dbctx.Context, d *types.Dataset) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type datasetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepo(db *gorm.DB, log *logger.Logger) DatasetRepo {
	return &datasetRepo{db: db, log: log.With("repo", "DatasetRepo")}
}

func (r *datasetRepo) Create(dbc dbctx.Context, d *types.Dataset) (*types.Dataset, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *datasetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Dataset, error) {
	var d types.Dataset
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *datasetRepo) GetBySlug(dbc dbctx.Context, projectID uuid.UUID, slug string) (*types.Dataset, error) {
	var d types.Dataset
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("project_id = ? AND slug = ?", projectID, slug).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *datasetRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Dataset, error) {
	var out []*types.Dataset
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *datasetRepo) Update(dbc dbctx.Context, d *types.Dataset) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Save(d).Error
}

func (r *datasetRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.Dataset{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *datasetRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Delete(&types.Dataset{}, "id = ?", id).Error
}

type DatasetItemRepo interface {
	Create(dbc dbctx.Context, item *types.DatasetItem) (*types.DatasetItem, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DatasetItem, error)
	GetByDatasetAndMedia(dbc dbctx.Context, datasetID, mediaID uuid.UUID) (*types.DatasetItem, error)
	ListByDataset(dbc dbctx.Context, datasetID uuid.UUID, split types.Split) ([]*types.DatasetItem, error)
	ListUnannotated(dbc dbctx.Context, datasetID uuid.UUID, limit int) ([]*types.DatasetItem, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type datasetItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetItemRepo(db *gorm.DB, log *logger.Logger) DatasetItemRepo {
	return &datasetItemRepo{db: db, log: log.With("repo", "DatasetItemRepo")}
}

func (r *datasetItemRepo) Create(dbc dbctx.Context, item *types.DatasetItem) (*types.DatasetItem, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *datasetItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DatasetItem, error) {
	var item types.DatasetItem
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *datasetItemRepo) GetByDatasetAndMedia(dbc dbctx.Context, datasetID, mediaID uuid.UUID) (*types.DatasetItem, error) {
	var item types.DatasetItem
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("dataset_id = ? AND media_id = ?", datasetID, mediaID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *datasetItemRepo) ListByDataset(dbc dbctx.Context, datasetID uuid.UUID, split types.Split) ([]*types.DatasetItem, error) {
	q := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("dataset_id = ?", datasetID)
	if split != "" {
		q = q.Where("split = ?", split)
	}
	var out []*types.DatasetItem
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListUnannotated feeds the active-learning prioritization queue
// (component H): highest priority first, then oldest first.
func (r *datasetItemRepo) ListUnannotated(dbc dbctx.Context, datasetID uuid.UUID, limit int) ([]*types.DatasetItem, error) {
	q := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("dataset_id = ? AND annotated = false", datasetID).
		Order("priority DESC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.DatasetItem
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *datasetItemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.DatasetItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *datasetItemRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Delete(&types.DatasetItem{}, "id = ?", id).Error
}

type DatasetVersionRepo interface {
	Create(dbc dbctx.Context, v *types.DatasetVersion) (*types.DatasetVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DatasetVersion, error)
	GetByTag(dbc dbctx.Context, datasetID uuid.UUID, tag string) (*types.DatasetVersion, error)
	ListByDataset(dbc dbctx.Context, datasetID uuid.UUID) ([]*types.DatasetVersion, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type datasetVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetVersionRepo(db *gorm.DB, log *logger.Logger) DatasetVersionRepo {
	return &datasetVersionRepo{db: db, log: log.With("repo", "DatasetVersionRepo")}
}

func (r *datasetVersionRepo) Create(dbc dbctx.Context, v *types.DatasetVersion) (*types.DatasetVersion, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (r *datasetVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DatasetVersion, error) {
	var v types.DatasetVersion
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *datasetVersionRepo) GetByTag(dbc dbctx.Context, datasetID uuid.UUID, tag string) (*types.DatasetVersion, error) {
	var v types.DatasetVersion
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("dataset_id = ? AND tag = ?", datasetID, tag).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *datasetVersionRepo) ListByDataset(dbc dbctx.Context, datasetID uuid.UUID) ([]*types.DatasetVersion, error) {
	var out []*types.DatasetVersion
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("dataset_id = ?", datasetID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *datasetVersionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.DatasetVersion{}).
		Where("id = ?", id).
		Updates(updates).Error
}
