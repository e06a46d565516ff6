package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// ProjectService owns the tenant boundary (component C): creating a
// project always creates its first OWNER membership in the same
// transaction, and membership/prompt-template CRUD sits here rather
// than in handlers so the role invariant (every project has exactly one
// path to OWNER) lives in one place. Grounded on the teacher's
// internal/services/course.go owner-plus-enrollment transaction pattern.
type ProjectService struct {
	db  *gorm.DB
	log *logger.Logger
	r   *repos.Repos
}

func NewProjectService(db *gorm.DB, log *logger.Logger, r *repos.Repos) *ProjectService {
	return &ProjectService{db: db, log: log.With("service", "ProjectService"), r: r}
}

// Create makes a project and its creator's OWNER membership atomically.
func (s *ProjectService) Create(ctx context.Context, ownerID uuid.UUID, name, slug string, settings datatypes.JSON) (*types.Project, error) {
	slug = strings.TrimSpace(slug)
	name = strings.TrimSpace(name)
	if slug == "" || name == "" {
		return nil, fmt.Errorf("%w: name and slug are required", dberrors.ErrInputInvalid)
	}

	var created *types.Project
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: txx}
		project, err := s.r.Project.Create(dbc, &types.Project{
			ID:       uuid.New(),
			Slug:     slug,
			Name:     name,
			Settings: settings,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: slug already in use", dberrors.ErrConflict)
			}
			return err
		}
		if _, err := s.r.ProjectMember.Create(dbc, &types.ProjectMember{
			ID:        uuid.New(),
			ProjectID: project.ID,
			UserID:    ownerID,
			Role:      types.RoleOwner,
		}); err != nil {
			return err
		}
		created = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	return s.r.Project.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *ProjectService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Project, error) {
	return s.r.Project.ListForUser(dbctx.Context{Ctx: ctx}, userID)
}

func (s *ProjectService) Update(ctx context.Context, project *types.Project) error {
	return s.r.Project.Update(dbctx.Context{Ctx: ctx}, project)
}

// Delete removes a project; cascading deletion of media/datasets is a
// metadata-store concern left to the caller's migration/FK setup
// (spec.md §3 "deleting a project cascades to all"), not re-implemented
// here as application-level fan-out.
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.r.Project.Delete(dbctx.Context{Ctx: ctx}, id)
}

// AddMember creates a membership at the role the caller names and does no
// role checks of its own; an existing member's role changes through
// UpdateMemberRole (authorization that the caller may grant that role is
// enforced by the HTTP role-gate middleware, at >= ADMIN).
func (s *ProjectService) AddMember(ctx context.Context, projectID, userID uuid.UUID, role types.ProjectRole) (*types.ProjectMember, error) {
	return s.r.ProjectMember.Create(dbctx.Context{Ctx: ctx}, &types.ProjectMember{
		ID:        uuid.New(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	})
}

func (s *ProjectService) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*types.ProjectMember, error) {
	return s.r.ProjectMember.ListByProject(dbctx.Context{Ctx: ctx}, projectID)
}

func (s *ProjectService) UpdateMemberRole(ctx context.Context, projectID, userID uuid.UUID, role types.ProjectRole) error {
	return s.r.ProjectMember.UpdateRole(dbctx.Context{Ctx: ctx}, projectID, userID, role)
}

func (s *ProjectService) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	return s.r.ProjectMember.Remove(dbctx.Context{Ctx: ctx}, projectID, userID)
}

func (s *ProjectService) CreatePrompt(ctx context.Context, projectID uuid.UUID, name, prompt string) (*types.PromptTemplate, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt text is required", dberrors.ErrInputInvalid)
	}
	return s.r.PromptTemplate.Create(dbctx.Context{Ctx: ctx}, &types.PromptTemplate{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		Prompt:    prompt,
	})
}

func (s *ProjectService) ListPrompts(ctx context.Context, projectID uuid.UUID) ([]*types.PromptTemplate, error) {
	return s.r.PromptTemplate.ListByProject(dbctx.Context{Ctx: ctx}, projectID)
}

func (s *ProjectService) DeletePrompt(ctx context.Context, id uuid.UUID) error {
	return s.r.PromptTemplate.Delete(dbctx.Context{Ctx: ctx}, id)
}
