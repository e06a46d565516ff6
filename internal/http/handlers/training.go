package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/http/response"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/services"
)

// TrainingHandler is component I's job-controller surface (spec.md §6
// "POST/GET /training/jobs, POST /training/jobs/{id}/cancel").
type TrainingHandler struct {
	training *services.TrainingService
}

func NewTrainingHandler(training *services.TrainingService) *TrainingHandler {
	return &TrainingHandler{training: training}
}

type createTrainingJobRequest struct {
	DatasetVersionID uuid.UUID      `json:"dataset_version_id" binding:"required"`
	ModelType        string         `json:"model_type" binding:"required"`
	Architecture     string         `json:"architecture"`
	Hyperparameters  map[string]any `json:"hyperparameters"`
	MaxConcurrent    int            `json:"max_concurrent_training_jobs"`
}

// Create implements `POST /projects/{id}/training/jobs`.
func (h *TrainingHandler) Create(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	var req createTrainingJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	job, err := h.training.Create(c.Request.Context(), projectID, services.CreateTrainingJobRequest{
		DatasetVersionID: req.DatasetVersionID,
		ModelType:        req.ModelType,
		Architecture:     req.Architecture,
		Hyperparameters:  req.Hyperparameters,
		MaxConcurrent:    req.MaxConcurrent,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, job)
}

// List implements `GET /projects/{id}/training/jobs`.
func (h *TrainingHandler) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	jobs, err := h.training.List(c.Request.Context(), projectID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}

// Get implements `GET /training/jobs/{job_id}`.
func (h *TrainingHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed job_id", dberrors.ErrInputInvalid))
		return
	}
	job, err := h.training.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: training job", dberrors.ErrNotFound))
		return
	}
	response.RespondOK(c, job)
}

// Cancel implements `POST /training/jobs/{job_id}/cancel`.
func (h *TrainingHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed job_id", dberrors.ErrInputInvalid))
		return
	}
	job, err := h.training.Cancel(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, job)
}
