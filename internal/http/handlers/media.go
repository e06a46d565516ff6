package handlers

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/http/response"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/services"
)

// MediaHandler is component A's content-store surface: multipart
// upload, filtered listing, and signed-URL retrieval (spec.md §6).
type MediaHandler struct {
	media *services.MediaService
}

func NewMediaHandler(media *services.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// Upload implements `POST /projects/{id}/media/upload`, a multipart
// form with one or more "files" parts.
func (h *MediaHandler) Upload(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: expected multipart form", dberrors.ErrInputInvalid))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.RespondError(c, fmt.Errorf("%w: no files attached", dberrors.ErrInputInvalid))
		return
	}

	var uploaded []*types.Media
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
			return
		}
		mimeType := fh.Header.Get("Content-Type")
		media, err := h.media.Upload(c.Request.Context(), projectID, services.UploadInput{
			Filename: fh.Filename,
			MimeType: mimeType,
			Data:     data,
		})
		if err != nil {
			response.RespondError(c, err)
			return
		}
		uploaded = append(uploaded, media)
	}
	response.RespondCreated(c, gin.H{"media": uploaded})
}

// List implements the gallery endpoint with its filter set (spec.md §6):
// media_type, indexing_status, tag, search, sort_by, sort_dir, page,
// per_page.
func (h *MediaHandler) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	filter := repos.MediaFilter{
		Kind:  types.MediaKind(c.Query("media_type")),
		State: types.MediaState(c.Query("indexing_status")),
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))

	media, err := h.media.List(c.Request.Context(), projectID, filter,
		c.Query("search"), c.Query("sort_by"), c.Query("sort_dir"), page, perPage)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"media": media, "page": page, "per_page": perPage})
}

func (h *MediaHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("media_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed media_id", dberrors.ErrInputInvalid))
		return
	}
	media, err := h.media.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: media", dberrors.ErrNotFound))
		return
	}
	response.RespondOK(c, media)
}

// SignedURL implements `GET /media/{id}/url`.
func (h *MediaHandler) SignedURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("media_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed media_id", dberrors.ErrInputInvalid))
		return
	}
	url, err := h.media.SignedURL(c.Request.Context(), id, 15*time.Minute)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"url": url, "expires_in": int((15 * time.Minute).Seconds())})
}

func (h *MediaHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("media_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed media_id", dberrors.ErrInputInvalid))
		return
	}
	if err := h.media.Delete(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
