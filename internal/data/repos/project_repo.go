package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

type ProjectRepo interface {
	Create(dbc dbctx.Context, p *types.Project) (*types.Project, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error)
	GetBySlug(dbc dbctx.Context, slug string) (*types.Project, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Project, error)
	Update(dbc dbctx.Context, p *types.Project) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, log *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: log.With("repo", "ProjectRepo")}
}

func (r *projectRepo) Create(dbc dbctx.Context, p *types.Project) (*types.Project, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *projectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error) {
	var p types.Project
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.Project, error) {
	var p types.Project
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListForUser returns every project the user is a member of, newest first.
func (r *projectRepo) ListForUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Project, error) {
	var out []*types.Project
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Joins("JOIN project_members pm ON pm.project_id = projects.id").
		Where("pm.user_id = ? AND pm.deleted_at IS NULL", userID).
		Order("projects.created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepo) Update(dbc dbctx.Context, p *types.Project) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Save(p).Error
}

func (r *projectRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Delete(&types.Project{}, "id = ?", id).Error
}

type ProjectMemberRepo interface {
	Create(dbc dbctx.Context, m *types.ProjectMember) (*types.ProjectMember, error)
	Get(dbc dbctx.Context, projectID, userID uuid.UUID) (*types.ProjectMember, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ProjectMember, error)
	UpdateRole(dbc dbctx.Context, projectID, userID uuid.UUID, role types.ProjectRole) error
	Remove(dbc dbctx.Context, projectID, userID uuid.UUID) error
}

type projectMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectMemberRepo(db *gorm.DB, log *logger.Logger) ProjectMemberRepo {
	return &projectMemberRepo{db: db, log: log.With("repo", "ProjectMemberRepo")}
}

func (r *projectMemberRepo) Create(dbc dbctx.Context, m *types.ProjectMember) (*types.ProjectMember, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *projectMemberRepo) Get(dbc dbctx.Context, projectID, userID uuid.UUID) (*types.ProjectMember, error) {
	var m types.ProjectMember
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *projectMemberRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ProjectMember, error) {
	var out []*types.ProjectMember
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectMemberRepo) UpdateRole(dbc dbctx.Context, projectID, userID uuid.UUID, role types.ProjectRole) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("role", role).Error
}

func (r *projectMemberRepo) Remove(dbc dbctx.Context, projectID, userID uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&types.ProjectMember{}).Error
}

type PromptTemplateRepo interface {
	Create(dbc dbctx.Context, p *types.PromptTemplate) (*types.PromptTemplate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PromptTemplate, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.PromptTemplate, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type promptTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPromptTemplateRepo(db *gorm.DB, log *logger.Logger) PromptTemplateRepo {
	return &promptTemplateRepo{db: db, log: log.With("repo", "PromptTemplateRepo")}
}

func (r *promptTemplateRepo) Create(dbc dbctx.Context, p *types.PromptTemplate) (*types.PromptTemplate, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *promptTemplateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PromptTemplate, error) {
	var p types.PromptTemplate
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promptTemplateRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.PromptTemplate, error) {
	var out []*types.PromptTemplate
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *promptTemplateRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Delete(&types.PromptTemplate{}, "id = ?", id).Error
}
