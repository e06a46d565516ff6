// Package textembed is the text-embedding enrichment worker (spec.md
// §4.D "Text embedding"): chunks each attached MediaSource's text
// content and upserts one TEXT-collection point per chunk.
package textembed

import (
	"fmt"
	"strings"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/jobs/runtime"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/encoders"
	"github.com/pierdell/mediaforge-backend/internal/platform/vectorindex"
)

const (
	maxChunkChars = 512
	previewChars  = 200
)

// Handler implements runtime.Handler for job type "text_embed".
type Handler struct {
	Repos    *repos.Repos
	Encoders *encoders.Manager
	Index    vectorindex.Index
}

func New(r *repos.Repos, enc *encoders.Manager, idx vectorindex.Index) *Handler {
	return &Handler{Repos: r, Encoders: enc, Index: idx}
}

func (h *Handler) Type() string { return types.JobTypeTextEmbed }

func (h *Handler) Run(rc *runtime.Context) error {
	mediaID, ok := rc.PayloadUUID("media_id")
	if !ok {
		err := fmt.Errorf("textembed: missing media_id in payload")
		rc.Fail("load_media", err)
		return err
	}

	dbc := dbctx.Context{Ctx: rc.Ctx}
	media, err := h.Repos.Media.GetByID(dbc, mediaID)
	if err != nil {
		rc.Fail("load_media", err)
		return err
	}

	sources, err := h.Repos.MediaSource.ListByMedia(dbc, mediaID)
	if err != nil {
		rc.Fail("load_sources", err)
		return err
	}

	textEmbedder, err := h.Encoders.Text(rc.Ctx)
	if err != nil {
		rc.Fail("embed", err)
		return err
	}

	totalChunks := 0
	for i, source := range sources {
		if strings.TrimSpace(source.Content) == "" {
			continue
		}
		chunks := ChunkText(source.Content, maxChunkChars)
		rc.Progress("embed", 10+int(float64(i)/float64(len(sources))*70), fmt.Sprintf("embedding source %d", i))

		for chunkIdx, chunk := range chunks {
			vec, err := textEmbedder.EmbedText(rc.Ctx, chunk)
			if err != nil {
				rc.Fail("embed", err)
				return err
			}
			vec = vectorindex.Normalize(vec)
			if err := vectorindex.ValidateVector(vectorindex.CollectionText, vec); err != nil {
				rc.Fail("validate_vector", err)
				return err
			}

			pointID := fmt.Sprintf("text_%s_%s_%d", media.ID.String(), source.ID.String(), chunkIdx)
			err = h.Index.Upsert(rc.Ctx, vectorindex.CollectionText, vectorindex.Point{
				PointID: pointID,
				Vector:  vec,
				Payload: map[string]any{
					"media_id":    media.ID.String(),
					"project_id":  media.ProjectID.String(),
					"media_type":  string(media.Kind),
					"origin":      fmt.Sprintf("source:%s:%d", source.ID.String(), chunkIdx),
					"source_id":   source.ID.String(),
					"source_type": string(source.Kind),
					"preview":     preview(chunk, previewChars),
				},
			})
			if err != nil {
				rc.Fail("upsert", err)
				return err
			}
			totalChunks++
		}

		anchor := fmt.Sprintf("text_%s_%s_0", media.ID.String(), source.ID.String())
		if err := h.Repos.MediaSource.UpdateFields(dbc, source.ID, map[string]interface{}{
			"text_embedding_id": anchor,
		}); err != nil {
			rc.Fail("persist_source", err)
			return err
		}
	}

	if totalChunks > 0 {
		anchor := fmt.Sprintf("text_%s", media.ID.String())
		if err := h.Repos.Media.UpdateFields(dbc, media.ID, map[string]interface{}{
			"text_embedding_id": anchor,
		}); err != nil {
			rc.Fail("persist_media", err)
			return err
		}
	}

	rc.Succeed("done", map[string]any{"chunks": totalChunks})
	return nil
}

// ChunkText splits text into pieces no longer than maxChars, cutting at
// the last ". " sentence boundary within the window when one exists,
// otherwise hard-cutting at maxChars (spec.md §4.D).
func ChunkText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	for len(text) > maxChars {
		window := text[:maxChars]
		cut := strings.LastIndex(window, ". ")
		if cut <= 0 {
			cut = maxChars
		} else {
			cut += 2 // keep the period and space with the chunk being cut
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = text[cut:]
	}
	if strings.TrimSpace(text) != "" {
		chunks = append(chunks, strings.TrimSpace(text))
	}
	return chunks
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
