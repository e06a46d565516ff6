// Package dinoembed is the DINO-image enrichment worker (spec.md §4.D
// "DINO image"): same contract as clipembed but against the DINO
// collection and embedder singleton; other media kinds are skipped.
package dinoembed

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

// Handler implements runtime.Handler for job type "dino_embed".
type Handler struct {
	Repos    *repos.Repos
	Store    storage.Store
	Encoders *encoders.Manager
	Index    vectorindex.Index
}

func New(r *repos.Repos, store storage.Store, enc *encoders.Manager, idx vectorindex.Index) *Handler {
	return &Handler{Repos: r, Store: store, Encoders: enc, Index: idx}
}

func (h *Handler) Type() string { return types.JobTypeDinoEmbed }

func (h *Handler) Run(rc *runtime.Context) error {
	mediaID, ok := rc.PayloadUUID("media_id")
	if !ok {
		err := fmt.Errorf("dinoembed: missing media_id in payload")
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

	if media.Kind != types.MediaKindImage {
		rc.Succeed("skipped", map[string]any{"skipped": true, "reason": "unsupported media kind"})
		return nil
	}

	rd, err := h.Store.Get(rc.Ctx, media.StoragePath)
	if err != nil {
		rc.Fail("read_bytes", err)
		return err
	}
	imgBytes, err := io.ReadAll(rd)
	rd.Close()
	if err != nil {
		rc.Fail("read_bytes", err)
		return err
	}

	rc.Progress("embed", 40, "running dino image encoder")
	embedder, err := h.Encoders.DINO(rc.Ctx)
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
	if err := vectorindex.ValidateVector(vectorindex.CollectionDino, vec); err != nil {
		rc.Fail("validate_vector", err)
		return err
	}

	pointID := fmt.Sprintf("dino_%s", media.ID.String())
	rc.Progress("upsert", 70, "upserting dino point")
	err = h.Index.Upsert(rc.Ctx, vectorindex.CollectionDino, vectorindex.Point{
		PointID: pointID,
		Vector:  vec,
		Payload: map[string]any{
			"media_id":   media.ID.String(),
			"project_id": media.ProjectID.String(),
			"media_type": string(media.Kind),
			"origin":     "dino",
		},
	})
	if err != nil {
		rc.Fail("upsert", err)
		return err
	}

	if err := h.Repos.Media.UpdateFields(dbc, media.ID, map[string]interface{}{
		"dino_embedding_id": pointID,
	}); err != nil {
		rc.Fail("persist_media", err)
		return err
	}

	rc.Succeed("done", map[string]any{"point_id": pointID})
	return nil
}
