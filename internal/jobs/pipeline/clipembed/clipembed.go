// Package clipembed is the CLIP-image enrichment worker (spec.md §4.D
// "CLIP image"): for IMAGE media, download bytes, run the CLIP image
// encoder, unit-normalize, and upsert to the CLIP collection with a
// deterministic point id so reruns are idempotent. Grounded on the
// teacher's internal/jobs/pipeline handlers (one package per task kind,
// implementing runtime.Handler).
package clipembed

import (
	"fmt"
	"io"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/jobs/runtime"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/encoders"
	"github.com/pierdell/mediaforge-backend/internal/platform/storage"
	"github.com/pierdell/mediaforge-backend/internal/platform/vectorindex"
)

// Handler implements runtime.Handler for job type "clip_embed".
type Handler struct {
	Repos    *repos.Repos
	Store    storage.Store
	Encoders *encoders.Manager
	Index    vectorindex.Index
}

func New(r *repos.Repos, store storage.Store, enc *encoders.Manager, idx vectorindex.Index) *Handler {
	return &Handler{Repos: r, Store: store, Encoders: enc, Index: idx}
}

func (h *Handler) Type() string { return types.JobTypeClipEmbed }

func (h *Handler) Run(rc *runtime.Context) error {
	mediaID, ok := rc.PayloadUUID("media_id")
	if !ok {
		err := fmt.Errorf("clip_embed: missing media_id in payload")
		rc.Fail("load_media", err)
		return err
	}

	dbc := dbctx.Context{Ctx: rc.Ctx}
	media, err := h.Repos.Media.GetByID(dbc, mediaID)
	if err != nil {
		rc.Fail("load_media", err)
		return err
	}

	rc.Progress("load_media", 10, "loaded media row")

	var imgBytes []byte
	switch media.Kind {
	case types.MediaKindImage:
		imgBytes, err = h.readMedia(rc, media)
		if err != nil {
			rc.Fail("read_bytes", err)
			return err
		}
	case types.MediaKindVideo:
		// No keyframe-extraction library is wired into this module (no
		// video codec dependency appears anywhere in the example pack);
		// per spec.md §4.D, extraction failure means the task fails.
		err := fmt.Errorf("clip_embed: video keyframe extraction unavailable")
		rc.Fail("extract_keyframe", err)
		return err
	default:
		rc.Succeed("skipped", map[string]any{"skipped": true, "reason": "unsupported media kind"})
		return nil
	}

	rc.Progress("embed", 40, "running clip image encoder")
	embedder, err := h.Encoders.CLIP(rc.Ctx)
	if err != nil {
		rc.Fail("embed", err)
		return err
	}
	vec, err := embedder.EmbedImage(rc.Ctx, imgBytes)
	if err != nil {
		rc.Fail("embed", err)
		return err
	}
	vec = vectorindex.Normalize(vec)
	if err := vectorindex.ValidateVector(vectorindex.CollectionClip, vec); err != nil {
		rc.Fail("validate_vector", err)
		return err
	}

	pointID := fmt.Sprintf("clip_%s", media.ID.String())
	rc.Progress("upsert", 70, "upserting clip point")
	err = h.Index.Upsert(rc.Ctx, vectorindex.CollectionClip, vectorindex.Point{
		PointID: pointID,
		Vector:  vec,
		Payload: map[string]any{
			"media_id":   media.ID.String(),
			"project_id": media.ProjectID.String(),
			"media_type": string(media.Kind),
			"origin":     "clip",
		},
	})
	if err != nil {
		rc.Fail("upsert", err)
		return err
	}

	if err := h.Repos.Media.UpdateFields(dbc, media.ID, map[string]interface{}{
		"clip_embedding_id": pointID,
	}); err != nil {
		rc.Fail("persist_media", err)
		return err
	}

	rc.Succeed("done", map[string]any{"point_id": pointID})
	return nil
}

func (h *Handler) readMedia(rc *runtime.Context, media *types.Media) ([]byte, error) {
	rd, err := h.Store.Get(rc.Ctx, media.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("clip_embed: fetch bytes: %w", err)
	}
	defer rd.Close()
	return io.ReadAll(rd)
}
