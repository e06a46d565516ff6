package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/http/response"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/services"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
)

// SearchHandler is component F's hybrid/similar search surface
// (spec.md §6).
type SearchHandler struct {
	search *services.SearchService
}

func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequestBody struct {
	Query         string            `json:"query"`
	ImageRef      string            `json:"image_ref"`
	MediaTypes    []types.MediaKind `json:"media_types"`
	MinConfidence float64           `json:"min_confidence"`
	UseCLIP       *bool             `json:"use_clip"`
	UseText       *bool             `json:"use_text"`
	Limit         int               `json:"limit"`
	Offset        int               `json:"offset"`
}

// Search implements `POST /projects/{id}/search`.
func (h *SearchHandler) Search(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	var body searchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	useCLIP := body.UseCLIP == nil || *body.UseCLIP
	useText := body.UseText == nil || *body.UseText

	result, err := h.search.Search(c.Request.Context(), projectID, services.SearchRequest{
		Query:         body.Query,
		ImageRef:      body.ImageRef,
		MediaTypes:    body.MediaTypes,
		MinConfidence: body.MinConfidence,
		UseCLIP:       useCLIP,
		UseText:       useText,
		Limit:         body.Limit,
		Offset:        body.Offset,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, result)
}

type similarRequestBody struct {
	MediaID uuid.UUID             `json:"media_id" binding:"required"`
	Method  services.SimilarMethod `json:"method"`
	Limit   int                    `json:"limit"`
}

// Similar implements `POST /search/similar`.
func (h *SearchHandler) Similar(c *gin.Context) {
	projectID, err := uuid.Parse(c.Query("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	var body similarRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	method := body.Method
	if method == "" {
		method = services.SimilarCombined
	}
	hits, err := h.search.Similar(c.Request.Context(), projectID, body.MediaID, method, body.Limit)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": hits})
}
