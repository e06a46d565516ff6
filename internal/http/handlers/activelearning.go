package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/http/middleware"
	"github.com/pierdell/mediaforge-backend/internal/http/response"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/services"
)

// ActiveLearningHandler is component H's candidate-ranking surface
// (spec.md §6).
type ActiveLearningHandler struct {
	activeLearning *services.ActiveLearningService
}

func NewActiveLearningHandler(al *services.ActiveLearningService) *ActiveLearningHandler {
	return &ActiveLearningHandler{activeLearning: al}
}

// Suggest implements `POST /active-learning/{dataset_id}/suggest?strategy=&limit=`.
func (h *ActiveLearningHandler) Suggest(c *gin.Context) {
	datasetID, err := uuid.Parse(c.Param("dataset_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	strategy := c.DefaultQuery("strategy", "uncertainty")
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		fmt.Sscanf(raw, "%d", &limit)
	}
	result, err := h.activeLearning.Suggest(c.Request.Context(), datasetID, strategy, limit)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, result)
}

type autoAnnotateRequest struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	Limit               int     `json:"limit"`
}

// AutoAnnotate implements `POST /active-learning/{dataset_id}/auto-annotate`,
// a supplemented feature carried over from the original
// api/active_learning.py: auto_annotate (see DESIGN.md).
func (h *ActiveLearningHandler) AutoAnnotate(c *gin.Context) {
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	datasetID, err := uuid.Parse(c.Param("dataset_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	var req autoAnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	threshold := req.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	result, err := h.activeLearning.AutoAnnotate(c.Request.Context(), datasetID, userID, threshold, req.Limit)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, result)
}
