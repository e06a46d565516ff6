package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

type AnnotationRepo interface {
	Create(dbc dbctx.Context, a *types.Annotation) (*types.Annotation, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Annotation, error)
	ListByItem(dbc dbctx.Context, datasetItemID uuid.UUID) ([]*types.Annotation, error)
	ListByDataset(dbc dbctx.Context, datasetID uuid.UUID) ([]*types.Annotation, error)
	Update(dbc dbctx.Context, a *types.Annotation) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type annotationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnotationRepo(db *gorm.DB, log *logger.Logger) AnnotationRepo {
	return &annotationRepo{db: db, log: log.With("repo", "AnnotationRepo")}
}

func (r *annotationRepo) Create(dbc dbctx.Context, a *types.Annotation) (*types.Annotation, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *annotationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Annotation, error) {
	var a types.Annotation
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *annotationRepo) ListByItem(dbc dbctx.Context, datasetItemID uuid.UUID) ([]*types.Annotation, error) {
	var out []*types.Annotation
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("dataset_item_id = ?", datasetItemID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByDataset joins through dataset_items for export and agreement
// computation (dataset export and component H's quality kernel).
func (r *annotationRepo) ListByDataset(dbc dbctx.Context, datasetID uuid.UUID) ([]*types.Annotation, error) {
	var out []*types.Annotation
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Joins("JOIN dataset_items di ON di.id = annotations.dataset_item_id").
		Where("di.dataset_id = ?", datasetID).
		Order("annotations.created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *annotationRepo) Update(dbc dbctx.Context, a *types.Annotation) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Save(a).Error
}

func (r *annotationRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Delete(&types.Annotation{}, "id = ?", id).Error
}

type AnnotationReviewRepo interface {
	Create(dbc dbctx.Context, r *types.AnnotationReview) (*types.AnnotationReview, error)
	ListByAnnotation(dbc dbctx.Context, annotationID uuid.UUID) ([]*types.AnnotationReview, error)
	Update(dbc dbctx.Context, r *types.AnnotationReview) error
}

type annotationReviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnotationReviewRepo(db *gorm.DB, log *logger.Logger) AnnotationReviewRepo {
	return &annotationReviewRepo{db: db, log: log.With("repo", "AnnotationReviewRepo")}
}

func (r *annotationReviewRepo) Create(dbc dbctx.Context, rev *types.AnnotationReview) (*types.AnnotationReview, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(rev).Error; err != nil {
		return nil, err
	}
	return rev, nil
}

func (r *annotationReviewRepo) ListByAnnotation(dbc dbctx.Context, annotationID uuid.UUID) ([]*types.AnnotationReview, error) {
	var out []*types.AnnotationReview
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("annotation_id = ?", annotationID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *annotationReviewRepo) Update(dbc dbctx.Context, rev *types.AnnotationReview) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Save(rev).Error
}

type AgreementScoreRepo interface {
	Create(dbc dbctx.Context, s *types.AgreementScore) (*types.AgreementScore, error)
	ListByDataset(dbc dbctx.Context, datasetID uuid.UUID) ([]*types.AgreementScore, error)
	ListByItem(dbc dbctx.Context, datasetItemID uuid.UUID) ([]*types.AgreementScore, error)
}

type agreementScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgreementScoreRepo(db *gorm.DB, log *logger.Logger) AgreementScoreRepo {
	return &agreementScoreRepo{db: db, log: log.With("repo", "AgreementScoreRepo")}
}

func (r *agreementScoreRepo) Create(dbc dbctx.Context, s *types.AgreementScore) (*types.AgreementScore, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *agreementScoreRepo) ListByDataset(dbc dbctx.Context, datasetID uuid.UUID) ([]*types.AgreementScore, error) {
	var out []*types.AgreementScore
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("dataset_id = ?", datasetID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *agreementScoreRepo) ListByItem(dbc dbctx.Context, datasetItemID uuid.UUID) ([]*types.AgreementScore, error) {
	var out []*types.AgreementScore
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("dataset_item_id = ?", datasetItemID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
