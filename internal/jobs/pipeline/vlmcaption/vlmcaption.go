// Package vlmcaption runs VLM captioning (spec.md §4.D "VLM
// captioning"): for IMAGE media, a free-form caption prompt and a
// comma-separated tag prompt, plus an optional custom prompt template,
// then composes a text-encoder-ready summary and upserts it into the
// TEXT collection.
package vlmcaption

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/jobs/runtime"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/encoders"
	"github.com/pierdell/mediaforge-backend/internal/platform/storage"
	"github.com/pierdell/mediaforge-backend/internal/platform/vectorindex"
)

const (
	captionPrompt = "Describe this image in one sentence."
	tagPrompt     = "List comma-separated tags describing this image."
)

// Handler implements runtime.Handler for job type "vlm_caption".
type Handler struct {
	Repos    *repos.Repos
	Store    storage.Store
	Encoders *encoders.Manager
	Index    vectorindex.Index
}

func New(r *repos.Repos, store storage.Store, enc *encoders.Manager, idx vectorindex.Index) *Handler {
	return &Handler{Repos: r, Store: store, Encoders: enc, Index: idx}
}

func (h *Handler) Type() string { return types.JobTypeVLMCaption }

type customPromptResult struct {
	PromptName string `json:"prompt_name"`
	Prompt     string `json:"prompt"`
	Result     string `json:"result"`
}

func (h *Handler) Run(rc *runtime.Context) error {
	mediaID, ok := rc.PayloadUUID("media_id")
	if !ok {
		err := fmt.Errorf("vlmcaption: missing media_id in payload")
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

	captioner, err := h.Encoders.VLM(rc.Ctx)
	if err != nil {
		rc.Fail("caption", err)
		return err
	}

	rc.Progress("caption", 30, "running vlm caption prompt")
	caption, err := captioner.Generate(rc.Ctx, imgBytes, captionPrompt)
	if err != nil {
		rc.Fail("caption", err)
		return err
	}

	rc.Progress("tags", 45, "running vlm tag prompt")
	rawTags, err := captioner.Generate(rc.Ctx, imgBytes, tagPrompt)
	if err != nil {
		rc.Fail("tags", err)
		return err
	}
	tags := splitTags(rawTags)

	updates := map[string]interface{}{
		"auto_caption": caption,
	}
	if tagsJSON, err := json.Marshal(tags); err == nil {
		updates["auto_tags"] = tagsJSON
	}

	if media.CustomPromptID != nil {
		tmpl, err := h.Repos.PromptTemplate.GetByID(dbc, *media.CustomPromptID)
		if err == nil && tmpl != nil {
			rc.Progress("custom_prompt", 55, "running custom prompt template")
			result, cerr := captioner.Generate(rc.Ctx, imgBytes, tmpl.Prompt)
			if cerr == nil {
				if raw, merr := json.Marshal(customPromptResult{
					PromptName: tmpl.Name,
					Prompt:     tmpl.Prompt,
					Result:     result,
				}); merr == nil {
					updates["custom_indexing_results"] = raw
				}
			}
		}
	}

	composed := composeText(caption, tags)
	textEmbedder, err := h.Encoders.Text(rc.Ctx)
	if err != nil {
		rc.Fail("embed_text", err)
		return err
	}
	vec, err := textEmbedder.EmbedText(rc.Ctx, composed)
	if err != nil {
		rc.Fail("embed_text", err)
		return err
	}
	vec = vectorindex.Normalize(vec)
	if err := vectorindex.ValidateVector(vectorindex.CollectionText, vec); err != nil {
		rc.Fail("validate_vector", err)
		return err
	}

	pointID := fmt.Sprintf("caption_%s", media.ID.String())
	rc.Progress("upsert", 80, "upserting caption point")
	err = h.Index.Upsert(rc.Ctx, vectorindex.CollectionText, vectorindex.Point{
		PointID: pointID,
		Vector:  vec,
		Payload: map[string]any{
			"media_id":   media.ID.String(),
			"project_id": media.ProjectID.String(),
			"media_type": string(media.Kind),
			"origin":     "auto_caption",
		},
	})
	if err != nil {
		rc.Fail("upsert", err)
		return err
	}

	// The VLM task is the last write of the enabled pipeline set in
	// practice, so it closes out the media's enrichment state.
	updates["state"] = types.MediaStateCompleted
	if err := h.Repos.Media.UpdateFields(dbc, media.ID, updates); err != nil {
		rc.Fail("persist_media", err)
		return err
	}

	rc.Succeed("done", map[string]any{"point_id": pointID, "tags": tags})
	return nil
}

// splitTags splits a comma-separated tag string, lowercasing, trimming,
// and dropping empties, preserving order (spec.md §4.D tags discipline).
func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func composeText(caption string, tags []string) string {
	if len(tags) == 0 {
		return caption
	}
	return fmt.Sprintf("%s. Tags: %s", caption, strings.Join(tags, ", "))
}
