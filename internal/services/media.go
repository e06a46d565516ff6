package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/storage"
	"github.com/pierdell/mediaforge-backend/internal/platform/thumbnail"
	"github.com/pierdell/mediaforge-backend/internal/platform/vectorindex"
)

// UploadInput is one file from a `POST /media/upload` multipart request
// (spec.md §6 "many files").
type UploadInput struct {
	Filename string
	MimeType string
	Data     []byte
}

// MediaService is component A+C's upload path: checksum-dedup, blob
// storage, best-effort thumbnailing, and the Media row itself.
// Grounded on the teacher's internal/services/avatar.go upload flow
// (decode -> resize -> store -> persist path), generalized from a
// single avatar slot to arbitrary project media.
type MediaService struct {
	db    *gorm.DB
	log   *logger.Logger
	r     *repos.Repos
	store storage.Store
	index vectorindex.Index
}

func NewMediaService(db *gorm.DB, log *logger.Logger, r *repos.Repos, store storage.Store, index vectorindex.Index) *MediaService {
	return &MediaService{db: db, log: log.With("service", "MediaService"), r: r, store: store, index: index}
}

// Upload stores one file and creates its Media row. A checksum match
// against an existing row in the same project returns that row instead
// of creating a duplicate (spec.md §3 "Checksum is fixed at creation").
func (s *MediaService) Upload(ctx context.Context, projectID uuid.UUID, in UploadInput) (*types.Media, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", dberrors.ErrInputInvalid)
	}
	sum := sha256.Sum256(in.Data)
	checksum := hex.EncodeToString(sum[:])

	dbc := dbctx.Context{Ctx: ctx}
	if existing, err := s.r.Media.GetByChecksum(dbc, projectID, checksum); err == nil && existing != nil {
		return existing, nil
	}

	mediaID := uuid.New()
	ext := filepath.Ext(in.Filename)
	storagePath, err := s.store.Put(ctx, projectID.String(), mediaID.String(), ext, bytes.NewReader(in.Data), in.MimeType)
	if err != nil {
		return nil, fmt.Errorf("store media: %w", err)
	}

	media := &types.Media{
		ID:          mediaID,
		ProjectID:   projectID,
		Filename:    in.Filename,
		Kind:        classifyKind(in.MimeType),
		MimeType:    in.MimeType,
		SizeBytes:   int64(len(in.Data)),
		Checksum:    checksum,
		StoragePath: storagePath,
		State:       types.MediaStatePending,
	}

	if thumb, tErr := thumbnail.Generate(in.Data); tErr == nil {
		if thumbPath, pErr := s.store.PutThumbnail(ctx, projectID.String(), mediaID.String(), bytes.NewReader(thumb)); pErr == nil {
			media.ThumbnailPath = thumbPath
		} else {
			s.log.Warn("thumbnail store failed", "media_id", mediaID, "error", pErr)
		}
	} else {
		s.log.Debug("thumbnail generation skipped", "media_id", mediaID, "error", tErr)
	}

	created, err := s.r.Media.Create(dbc, media)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// List applies the gallery filters spec.md §6 names; sort/pagination
// are handled in-process since MediaFilter has no sort_by/sort_dir/search
// knobs of its own (a small dataset-scale concession, not a full-text
// search engine).
func (s *MediaService) List(ctx context.Context, projectID uuid.UUID, filter repos.MediaFilter, search, sortBy, sortDir string, page, perPage int) ([]*types.Media, error) {
	media, err := s.r.Media.ListByProject(dbctx.Context{Ctx: ctx}, projectID, filter)
	if err != nil {
		return nil, err
	}
	if search != "" {
		needle := strings.ToLower(search)
		filtered := media[:0]
		for _, m := range media {
			if strings.Contains(strings.ToLower(m.Filename), needle) ||
				strings.Contains(strings.ToLower(m.Title), needle) ||
				strings.Contains(strings.ToLower(m.AutoCaption), needle) {
				filtered = append(filtered, m)
			}
		}
		media = filtered
	}
	sortMedia(media, sortBy, sortDir)
	return paginate(media, page, perPage), nil
}

func sortMedia(media []*types.Media, sortBy, sortDir string) {
	desc := sortDir == "desc" || sortDir == ""
	less := func(i, j int) bool {
		switch sortBy {
		case "filename":
			return media[i].Filename < media[j].Filename
		case "size_bytes":
			return media[i].SizeBytes < media[j].SizeBytes
		default:
			return media[i].CreatedAt.Before(media[j].CreatedAt)
		}
	}
	// Simple insertion sort: gallery pages are small (MediaFilter.Limit
	// bounds the working set), so this avoids pulling in sort.Slice's
	// reflection overhead for what is in practice a few dozen rows.
	for i := 1; i < len(media); i++ {
		for j := i; j > 0; j-- {
			swap := less(j, j-1)
			if desc {
				swap = less(j-1, j)
			}
			if !swap {
				break
			}
			media[j], media[j-1] = media[j-1], media[j]
		}
	}
}

func paginate(media []*types.Media, page, perPage int) []*types.Media {
	if perPage <= 0 {
		return media
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(media) {
		return []*types.Media{}
	}
	end := start + perPage
	if end > len(media) {
		end = len(media)
	}
	return media[start:end]
}

func classifyKind(mimeType string) types.MediaKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return types.MediaKindImage
	case strings.HasPrefix(mimeType, "video/"):
		return types.MediaKindVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return types.MediaKindAudio
	case mimeType == "application/pdf":
		return types.MediaKindDocument
	default:
		return types.MediaKindText
	}
}

func (s *MediaService) Get(ctx context.Context, id uuid.UUID) (*types.Media, error) {
	return s.r.Media.GetByID(dbctx.Context{Ctx: ctx}, id)
}

// SignedURL implements `GET /media/{id}/url` (spec.md §6).
func (s *MediaService) SignedURL(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, error) {
	media, err := s.r.Media.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return "", fmt.Errorf("%w: media", dberrors.ErrNotFound)
	}
	return s.store.SignedURL(ctx, media.StoragePath, ttl)
}

// Delete removes the blob, the row, and every vector point carrying the
// media's id. The index sweep runs after the row delete (spec.md §4.C:
// deletion order is (B) after (C) for the row) and its per-collection
// errors are already absorbed by DeleteByMedia, so a half-unreachable
// index never resurrects the row.
func (s *MediaService) Delete(ctx context.Context, id uuid.UUID) error {
	media, err := s.r.Media.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return fmt.Errorf("%w: media", dberrors.ErrNotFound)
	}
	if err := s.store.Delete(ctx, media.StoragePath); err != nil {
		return err
	}
	if media.ThumbnailPath != "" {
		_ = s.store.Delete(ctx, media.ThumbnailPath)
	}
	if err := s.r.Media.Delete(dbctx.Context{Ctx: ctx}, id); err != nil {
		return err
	}
	if err := s.index.DeleteByMedia(ctx, id.String()); err != nil {
		s.log.Warn("vector sweep after media delete failed", "media_id", id, "error", err)
	}
	return nil
}
