package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/http/response"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/services"
)

// IndexingHandler is component E's dispatcher/status surface (spec.md §6).
type IndexingHandler struct {
	indexing *services.IndexingService
}

func NewIndexingHandler(indexing *services.IndexingService) *IndexingHandler {
	return &IndexingHandler{indexing: indexing}
}

type dispatchIndexingRequest struct {
	MediaIDs       []uuid.UUID `json:"media_ids"`
	Pipelines      []string    `json:"pipelines"`
	CustomPromptID *uuid.UUID  `json:"custom_prompt_id"`
	Priority       int         `json:"priority"`
}

// Run implements `POST /projects/{id}/indexing/run`.
func (h *IndexingHandler) Run(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	var req dispatchIndexingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	pipelines := req.Pipelines
	if len(pipelines) == 0 {
		pipelines = []string{"clip", "dino", "vlm", "text"}
	}
	result, err := h.indexing.Dispatch(c.Request.Context(), projectID, req.MediaIDs, pipelines, req.CustomPromptID, req.Priority)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// Status implements `GET /projects/{id}/indexing/status`.
func (h *IndexingHandler) Status(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	stats, err := h.indexing.Stats(c.Request.Context(), projectID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, stats)
}
