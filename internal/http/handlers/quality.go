package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/http/middleware"
	"github.com/pierdell/mediaforge-backend/internal/http/response"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/services"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
)

// QualityHandler is component H's review/agreement surface (spec.md §6).
type QualityHandler struct {
	quality *services.QualityService
}

func NewQualityHandler(quality *services.QualityService) *QualityHandler {
	return &QualityHandler{quality: quality}
}

type createReviewRequest struct {
	AnnotationID uuid.UUID          `json:"annotation_id" binding:"required"`
	Status       types.ReviewStatus `json:"status" binding:"required"`
	Comment      string             `json:"comment"`
}

// CreateReview implements `POST /quality/reviews`.
func (h *QualityHandler) CreateReview(c *gin.Context) {
	reviewerID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	review, err := h.quality.CreateReview(c.Request.Context(), req.AnnotationID, reviewerID, req.Status, req.Comment)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, review)
}

// Agreement implements `POST /quality/{dataset_id}/agreement?metric=`.
func (h *QualityHandler) Agreement(c *gin.Context) {
	datasetID, err := uuid.Parse(c.Param("dataset_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	metric := c.DefaultQuery("metric", "label")
	result, err := h.quality.ComputeAgreement(c.Request.Context(), datasetID, metric)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// Summary implements `GET /quality/{dataset_id}/summary`.
func (h *QualityHandler) Summary(c *gin.Context) {
	datasetID, err := uuid.Parse(c.Param("dataset_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	summary, err := h.quality.Summary(c.Request.Context(), datasetID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": summary})
}
