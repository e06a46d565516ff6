package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// MediaFilter narrows ListByProject for the gallery/search surfaces.
type MediaFilter struct {
	Kind   types.MediaKind
	State  types.MediaState
	Limit  int
	Offset int
}

type MediaRepo interface {
	Create(dbc dbctx.Context, m *types.Media) (*types.Media, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Media, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Media, error)
	GetByChecksum(dbc dbctx.Context, projectID uuid.UUID, checksum string) (*types.Media, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID, filter MediaFilter) ([]*types.Media, error)
	Update(dbc dbctx.Context, m *types.Media) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type mediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaRepo(db *gorm.DB, log *logger.Logger) MediaRepo {
	return &mediaRepo{db: db, log: log.With("repo", "MediaRepo")}
}

func (r *mediaRepo) Create(dbc dbctx.Context, m *types.Media) (*types.Media, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *mediaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Media, error) {
	var m types.Media
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mediaRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*types.Media
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByChecksum supports duplicate-upload detection within a project.
func (r *mediaRepo) GetByChecksum(dbc dbctx.Context, projectID uuid.UUID, checksum string) (*types.Media, error) {
	var m types.Media
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("project_id = ? AND checksum = ?", projectID, checksum).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mediaRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, filter MediaFilter) ([]*types.Media, error) {
	q := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("project_id = ?", projectID)
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var out []*types.Media
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mediaRepo) Update(dbc dbctx.Context, m *types.Media) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Save(m).Error
}

func (r *mediaRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.Media{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *mediaRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Delete(&types.Media{}, "id = ?", id).Error
}

type MediaSourceRepo interface {
	Create(dbc dbctx.Context, s *types.MediaSource) (*types.MediaSource, error)
	ListByMedia(dbc dbctx.Context, mediaID uuid.UUID) ([]*types.MediaSource, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type mediaSourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaSourceRepo(db *gorm.DB, log *logger.Logger) MediaSourceRepo {
	return &mediaSourceRepo{db: db, log: log.With("repo", "MediaSourceRepo")}
}

func (r *mediaSourceRepo) Create(dbc dbctx.Context, s *types.MediaSource) (*types.MediaSource, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *mediaSourceRepo) ListByMedia(dbc dbctx.Context, mediaID uuid.UUID) ([]*types.MediaSource, error) {
	var out []*types.MediaSource
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("media_id = ?", mediaID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mediaSourceRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.MediaSource{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *mediaSourceRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Delete(&types.MediaSource{}, "id = ?", id).Error
}
