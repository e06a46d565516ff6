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

// AugmentationHandler is component H's augmentation surface (spec.md §6).
type AugmentationHandler struct {
	augmentation *services.AugmentationService
}

func NewAugmentationHandler(aug *services.AugmentationService) *AugmentationHandler {
	return &AugmentationHandler{augmentation: aug}
}

type configureAugmentationRequest struct {
	Transforms []services.TransformSpec `json:"transforms" binding:"required"`
}

// Configure implements `POST /augmentation/{dataset_id}/configure`: it
// validates the requested transform chain without applying it, so a
// client can surface configuration errors before committing to a run.
// There is no persisted AugmentationConfig entity (spec.md §3 names
// none); the validated chain is echoed back and re-submitted verbatim
// to Run.
func (h *AugmentationHandler) Configure(c *gin.Context) {
	if _, err := uuid.Parse(c.Param("dataset_id")); err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	var req configureAugmentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	chain, err := services.BuildChain(req.Transforms)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"valid": true, "steps": len(chain), "transforms": req.Transforms})
}

type runAugmentationRequest struct {
	ItemIDs    []uuid.UUID               `json:"item_ids" binding:"required"`
	Transforms []services.TransformSpec  `json:"transforms" binding:"required"`
	Width      float64                   `json:"width"`
	Height     float64                   `json:"height"`
}

// Run implements `POST /augmentation/{dataset_id}/run`.
func (h *AugmentationHandler) Run(c *gin.Context) {
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
	var req runAugmentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	result, err := h.augmentation.Run(c.Request.Context(), datasetID, userID, req.ItemIDs, req.Transforms, req.Width, req.Height)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, result)
}
