package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pierdell/mediaforge-backend/internal/http/middleware"
	"github.com/pierdell/mediaforge-backend/internal/http/response"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/services"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
)

// DatasetHandler covers dataset/item/annotation curation and the
// write-once version/export step (spec.md §6).
type DatasetHandler struct {
	datasets *services.DatasetService
}

func NewDatasetHandler(datasets *services.DatasetService) *DatasetHandler {
	return &DatasetHandler{datasets: datasets}
}

type createDatasetRequest struct {
	Slug        string            `json:"slug" binding:"required"`
	Name        string            `json:"name" binding:"required"`
	Type        types.DatasetType `json:"type" binding:"required"`
	LabelSchema datatypes.JSON    `json:"label_schema"`
	// LabelSchemaPreset names a server-configured YAML preset used when
	// no explicit label_schema is sent.
	LabelSchemaPreset string `json:"label_schema_preset"`
}

func (h *DatasetHandler) Create(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	var req createDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	if len(req.LabelSchema) == 0 && req.LabelSchemaPreset != "" {
		schema, ok := h.datasets.PresetSchema(req.LabelSchemaPreset)
		if !ok {
			response.RespondError(c, fmt.Errorf("%w: unknown label schema preset %q", dberrors.ErrInputInvalid, req.LabelSchemaPreset))
			return
		}
		req.LabelSchema = schema
	}
	dataset, err := h.datasets.Create(c.Request.Context(), projectID, req.Slug, req.Name, req.Type, req.LabelSchema)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, dataset)
}

func (h *DatasetHandler) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	datasets, err := h.datasets.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"datasets": datasets})
}

func (h *DatasetHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("dataset_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	dataset, err := h.datasets.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: dataset", dberrors.ErrNotFound))
		return
	}
	response.RespondOK(c, dataset)
}

type addItemRequest struct {
	MediaID uuid.UUID  `json:"media_id" binding:"required"`
	Split   types.Split `json:"split"`
}

// AddItem implements `POST /datasets/{did}/items`.
func (h *DatasetHandler) AddItem(c *gin.Context) {
	datasetID, err := uuid.Parse(c.Param("dataset_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	item, err := h.datasets.AddItem(c.Request.Context(), datasetID, req.MediaID, req.Split)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, item)
}

func (h *DatasetHandler) ListItems(c *gin.Context) {
	datasetID, err := uuid.Parse(c.Param("dataset_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	items, err := h.datasets.ListItems(c.Request.Context(), datasetID, types.Split(c.Query("split")))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

type createAnnotationRequest struct {
	Type       types.AnnotationType   `json:"type" binding:"required"`
	Label      string                 `json:"label" binding:"required"`
	Geometry   datatypes.JSON         `json:"geometry" binding:"required"`
	Source     types.AnnotationSource `json:"source"`
	Confidence float64                `json:"confidence"`
}

// AddAnnotation implements `POST /datasets/{did}/items/{iid}/annotations`.
func (h *DatasetHandler) AddAnnotation(c *gin.Context) {
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed item_id", dberrors.ErrInputInvalid))
		return
	}
	var req createAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	source := req.Source
	if source == "" {
		source = types.AnnotationSourceManual
	}
	ann, err := h.datasets.AddAnnotation(c.Request.Context(), itemID, userID, req.Type, req.Label, req.Geometry, source, req.Confidence)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, ann)
}

// BulkAddAnnotations implements `POST /datasets/{did}/items/{iid}/annotations/bulk`.
func (h *DatasetHandler) BulkAddAnnotations(c *gin.Context) {
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed item_id", dberrors.ErrInputInvalid))
		return
	}
	var req struct {
		Annotations []createAnnotationRequest `json:"annotations" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	entries := make([]services.AnnotationInput, 0, len(req.Annotations))
	for _, a := range req.Annotations {
		source := a.Source
		if source == "" {
			source = types.AnnotationSourceManual
		}
		entries = append(entries, services.AnnotationInput{
			Type:       a.Type,
			Label:      a.Label,
			Geometry:   a.Geometry,
			Source:     source,
			Confidence: a.Confidence,
		})
	}
	created, err := h.datasets.BulkAddAnnotations(c.Request.Context(), itemID, userID, entries)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"annotations": created})
}

func (h *DatasetHandler) ListAnnotations(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed item_id", dberrors.ErrInputInvalid))
		return
	}
	annotations, err := h.datasets.ListAnnotations(c.Request.Context(), itemID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"annotations": annotations})
}

type createVersionRequest struct {
	Tag          string `json:"tag" binding:"required"`
	ExportFormat string `json:"export_format"`
}

// CreateVersion implements `POST /datasets/{did}/versions`.
func (h *DatasetHandler) CreateVersion(c *gin.Context) {
	datasetID, err := uuid.Parse(c.Param("dataset_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	var req createVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	version, err := h.datasets.CreateVersion(c.Request.Context(), datasetID, req.Tag, req.ExportFormat)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, version)
}

func (h *DatasetHandler) ListVersions(c *gin.Context) {
	datasetID, err := uuid.Parse(c.Param("dataset_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed dataset_id", dberrors.ErrInputInvalid))
		return
	}
	versions, err := h.datasets.ListVersions(c.Request.Context(), datasetID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"versions": versions})
}

// VersionExportURL implements `GET /datasets/{did}/versions/{vid}/export`.
func (h *DatasetHandler) VersionExportURL(c *gin.Context) {
	versionID, err := uuid.Parse(c.Param("version_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed version_id", dberrors.ErrInputInvalid))
		return
	}
	version, err := h.datasets.GetVersion(c.Request.Context(), versionID)
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: dataset version", dberrors.ErrNotFound))
		return
	}
	url, err := h.datasets.ExportURL(c.Request.Context(), version, 15*time.Minute)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"url": url, "expires_in": int((15 * time.Minute).Seconds())})
}

// ItemOverlay serves the annotated review preview as a JPEG body.
func (h *DatasetHandler) ItemOverlay(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed item_id", dberrors.ErrInputInvalid))
		return
	}
	img, err := h.datasets.ItemOverlay(c.Request.Context(), itemID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.Data(200, "image/jpeg", img)
}
