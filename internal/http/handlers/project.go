package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pierdell/mediaforge-backend/internal/http/middleware"
	"github.com/pierdell/mediaforge-backend/internal/http/response"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/services"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
)

// ProjectHandler is the tenant-boundary CRUD surface plus membership and
// prompt-template management (spec.md §6). Grounded on the teacher's
// internal/http/handlers/course.go owner-plus-roster shape.
type ProjectHandler struct {
	projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type createProjectRequest struct {
	Name     string         `json:"name" binding:"required"`
	Slug     string         `json:"slug" binding:"required"`
	Settings datatypes.JSON `json:"settings"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	project, err := h.projects.Create(c.Request.Context(), userID, req.Name, req.Slug, req.Settings)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, project)
}

func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	projects, err := h.projects.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"projects": projects})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	project, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: project", dberrors.ErrNotFound))
		return
	}
	response.RespondOK(c, project)
}

type updateProjectRequest struct {
	Name     *string         `json:"name"`
	Settings *datatypes.JSON `json:"settings"`
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	project, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: project", dberrors.ErrNotFound))
		return
	}
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Settings != nil {
		project.Settings = *req.Settings
	}
	if err := h.projects.Update(c.Request.Context(), project); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, project)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	if err := h.projects.Delete(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

type addMemberRequest struct {
	UserID uuid.UUID         `json:"user_id" binding:"required"`
	Role   types.ProjectRole `json:"role" binding:"required"`
}

func (h *ProjectHandler) AddMember(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	member, err := h.projects.AddMember(c.Request.Context(), projectID, req.UserID, req.Role)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, member)
}

func (h *ProjectHandler) ListMembers(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	members, err := h.projects.ListMembers(c.Request.Context(), projectID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"members": members})
}

type updateMemberRoleRequest struct {
	Role types.ProjectRole `json:"role" binding:"required"`
}

func (h *ProjectHandler) UpdateMemberRole(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed user_id", dberrors.ErrInputInvalid))
		return
	}
	var req updateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	if err := h.projects.UpdateMemberRole(c.Request.Context(), projectID, userID, req.Role); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed user_id", dberrors.ErrInputInvalid))
		return
	}
	if err := h.projects.RemoveMember(c.Request.Context(), projectID, userID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

type createPromptRequest struct {
	Name   string `json:"name" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
}

func (h *ProjectHandler) CreatePrompt(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	var req createPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	prompt, err := h.projects.CreatePrompt(c.Request.Context(), projectID, req.Name, req.Prompt)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, prompt)
}

func (h *ProjectHandler) ListPrompts(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	prompts, err := h.projects.ListPrompts(c.Request.Context(), projectID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prompts": prompts})
}

func (h *ProjectHandler) DeletePrompt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("prompt_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed prompt_id", dberrors.ErrInputInvalid))
		return
	}
	if err := h.projects.DeletePrompt(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
