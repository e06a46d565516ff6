package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/encoders"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/vectorindex"
)

// hybridBoost is the multiplier applied when a media_id is hit by both
// the CLIP-text and TEXT-text branches (spec.md §4.F, §9 "treat as a
// tunable, not derived").
const hybridBoost = 1.1

// imageFetchBudget bounds the image-branch URL fetch (spec.md §5
// "Image fetch during search has a 10 s total budget").
const imageFetchBudget = 10 * time.Second

// SearchRequest is the hybrid search engine's input (spec.md §4.F).
type SearchRequest struct {
	Query         string
	ImageRef      string
	MediaTypes    []types.MediaKind
	MinConfidence float64
	UseCLIP       bool
	UseText       bool
	Limit         int
	Offset        int
}

// SearchHit is one scored, media-enriched result.
type SearchHit struct {
	MediaID uuid.UUID    `json:"media_id"`
	Score   float64      `json:"score"`
	Source  string       `json:"match_source"`
	Media   *types.Media `json:"media"`
}

// SearchResponse is the HTTP surface's return shape (spec.md §6 "POST
// /projects/{id}/search ... returning {results, total, query, took_ms}").
type SearchResponse struct {
	Results []SearchHit `json:"results"`
	Total   int         `json:"total"`
	Query   string      `json:"query"`
	TookMS  int64       `json:"took_ms"`
}

// candidate accumulates a media_id's best score and source tag across
// branches, exactly the {score, source, payload} record spec.md §4.F
// describes by step 1.
type candidate struct {
	score  float64
	source string
}

// SearchService is component F: the hybrid search engine, grounded
// line-for-line on the original api/search.py algorithm (branch order,
// max-over-duplicates merge, the 1.1x hybrid boost, the recommend-based
// similar-media combined average).
type SearchService struct {
	log      *logger.Logger
	r        *repos.Repos
	index    vectorindex.Index
	encoders *encoders.Manager
	httpc    *http.Client
}

func NewSearchService(log *logger.Logger, r *repos.Repos, index vectorindex.Index, enc *encoders.Manager) *SearchService {
	return &SearchService{
		log:      log.With("service", "SearchService"),
		r:        r,
		index:    index,
		encoders: enc,
		httpc:    &http.Client{Timeout: imageFetchBudget},
	}
}

// Search implements spec.md §4.F's algorithm.
func (s *SearchService) Search(ctx context.Context, projectID uuid.UUID, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()
	if req.Query == "" && req.ImageRef == "" {
		return nil, fmt.Errorf("%w: query or image_ref is required", dberrors.ErrInputInvalid)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	// Each branch returns its own map, never writing into a map shared
	// across branches; they are merged in order after g.Wait(): the text branch's boost rule (step 3)
	// depends on whether a media_id came from the CLIP-text branch
	// specifically, which only has a stable answer once both branches
	// have fully finished — not at whatever order their goroutines
	// happen to interleave merges in.
	var clipTextHits, textHits, imageHits map[uuid.UUID]candidate
	var branchErr error
	var mu sync.Mutex
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if branchErr == nil {
			branchErr = err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if req.Query != "" && req.UseCLIP {
		g.Go(func() error {
			m, err := s.clipTextBranch(gctx, projectID, req, limit)
			if err != nil {
				recordErr(err)
				return nil
			}
			clipTextHits = m
			return nil
		})
	}
	if req.Query != "" && req.UseText {
		g.Go(func() error {
			m, err := s.textBranch(gctx, projectID, req, limit)
			if err != nil {
				recordErr(err)
				return nil
			}
			textHits = m
			return nil
		})
	}
	if req.ImageRef != "" {
		g.Go(func() error {
			m, err := s.imageBranch(gctx, projectID, req, limit)
			if err != nil {
				recordErr(err)
				return nil
			}
			imageHits = m
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[uuid.UUID]candidate)
	for id, c := range clipTextHits {
		results[id] = c
	}
	for id, c := range textHits {
		if existing, ok := results[id]; ok && existing.source == "clip" {
			results[id] = candidate{score: max64(existing.score, c.score) * hybridBoost, source: "hybrid"}
			continue
		}
		if existing, ok := results[id]; !ok || c.score > existing.score {
			results[id] = c
		}
	}
	for id, c := range imageHits {
		if existing, ok := results[id]; !ok || c.score > existing.score {
			results[id] = c
		}
	}

	// Per-branch failures are swallowed (spec.md §7 "never fails the
	// request if at least one branch produced rows"); the first branch
	// error propagates only when the merged result set is empty.
	if branchErr != nil && len(results) == 0 {
		return nil, branchErr
	}

	type scored struct {
		mediaID uuid.UUID
		candidate
	}
	ranked := make([]scored, 0, len(results))
	for id, c := range results {
		if c.score < req.MinConfidence {
			continue
		}
		ranked = append(ranked, scored{mediaID: id, candidate: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].mediaID.String() < ranked[j].mediaID.String()
	})

	total := len(ranked)
	lo := req.Offset
	if lo > len(ranked) {
		lo = len(ranked)
	}
	hi := lo + limit
	if hi > len(ranked) {
		hi = len(ranked)
	}
	page := ranked[lo:hi]

	dbc := dbctx.Context{Ctx: ctx}
	hits := make([]SearchHit, 0, len(page))
	for _, p := range page {
		media, err := s.r.Media.GetByID(dbc, p.mediaID)
		if err != nil {
			continue
		}
		hits = append(hits, SearchHit{MediaID: p.mediaID, Score: p.score, Source: p.source, Media: media})
	}

	return &SearchResponse{
		Results: hits,
		Total:   total,
		Query:   req.Query,
		TookMS:  time.Since(start).Milliseconds(),
	}, nil
}

func (s *SearchService) searchOpts(projectID uuid.UUID, req SearchRequest, limit int) vectorindex.SearchOptions {
	opts := vectorindex.SearchOptions{ProjectID: projectID.String(), Limit: limit}
	if len(req.MediaTypes) == 1 {
		opts.MediaType = string(req.MediaTypes[0])
	}
	return opts
}

// clipTextBranch is spec.md §4.F step 2: encode with the CLIP text
// encoder, search the CLIP collection at 2x limit, keep the max over
// duplicate media_ids, tag "clip".
func (s *SearchService) clipTextBranch(ctx context.Context, projectID uuid.UUID, req SearchRequest, limit int) (map[uuid.UUID]candidate, error) {
	embedder, err := s.encoders.CLIPText(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: clip text encoder: %w", err)
	}
	vec, err := embedder.EmbedCLIPText(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query (clip): %w", err)
	}
	vec = vectorindex.Normalize(vec)

	opts := s.searchOpts(projectID, req, limit*2)
	hits, err := s.index.Search(ctx, vectorindex.CollectionClip, vec, opts)
	if err != nil {
		return nil, fmt.Errorf("search: clip collection: %w", err)
	}
	return maxOverDuplicates(hits, "clip"), nil
}

// textBranch is spec.md §4.F step 3: encode with the sentence encoder,
// search the TEXT collection. The 1.1x hybrid boost against the
// CLIP-text branch is applied by the caller once both branches finish.
func (s *SearchService) textBranch(ctx context.Context, projectID uuid.UUID, req SearchRequest, limit int) (map[uuid.UUID]candidate, error) {
	embedder, err := s.encoders.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: text encoder: %w", err)
	}
	vec, err := embedder.EmbedText(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query (text): %w", err)
	}
	vec = vectorindex.Normalize(vec)

	opts := s.searchOpts(projectID, req, limit)
	hits, err := s.index.Search(ctx, vectorindex.CollectionText, vec, opts)
	if err != nil {
		return nil, fmt.Errorf("search: text collection: %w", err)
	}
	return maxOverDuplicates(hits, "text"), nil
}

// imageBranch is spec.md §4.F step 4: either recommend off an existing
// media's CLIP point, or fetch+encode a URL, then search as clip.
func (s *SearchService) imageBranch(ctx context.Context, projectID uuid.UUID, req SearchRequest, limit int) (map[uuid.UUID]candidate, error) {
	opts := s.searchOpts(projectID, req, limit)

	if refID, err := uuid.Parse(req.ImageRef); err == nil {
		dbc := dbctx.Context{Ctx: ctx}
		media, mErr := s.r.Media.GetByID(dbc, refID)
		if mErr == nil && media.ClipEmbeddingID != "" {
			hits, rErr := s.index.Recommend(ctx, vectorindex.CollectionClip, media.ClipEmbeddingID, opts)
			if rErr != nil {
				return nil, fmt.Errorf("search: recommend: %w", rErr)
			}
			return maxOverDuplicates(dropMedia(hits, refID), "clip"), nil
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, imageFetchBudget)
	defer cancel()
	imgBytes, err := s.fetchImage(fetchCtx, req.ImageRef)
	if err != nil {
		return nil, fmt.Errorf("search: fetch image_ref: %w", err)
	}
	embedder, err := s.encoders.CLIP(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: clip image encoder: %w", err)
	}
	vec, err := embedder.EmbedImage(ctx, imgBytes)
	if err != nil {
		return nil, fmt.Errorf("search: embed image_ref: %w", err)
	}
	vec = vectorindex.Normalize(vec)

	hits, err := s.index.Search(ctx, vectorindex.CollectionClip, vec, opts)
	if err != nil {
		return nil, fmt.Errorf("search: clip collection: %w", err)
	}
	return maxOverDuplicates(hits, "clip"), nil
}

// maxOverDuplicates keeps, for each media_id present in hits, the
// highest-scoring hit, tagged source (spec.md §4.F "keep the max over
// duplicate media_ids").
func maxOverDuplicates(hits []vectorindex.Hit, source string) map[uuid.UUID]candidate {
	out := make(map[uuid.UUID]candidate, len(hits))
	for _, h := range hits {
		mediaID, ok := mediaIDFromPayload(h.Payload)
		if !ok {
			continue
		}
		if existing, ok := out[mediaID]; !ok || h.Score > existing.score {
			out[mediaID] = candidate{score: h.Score, source: source}
		}
	}
	return out
}

func dropMedia(hits []vectorindex.Hit, excludeID uuid.UUID) []vectorindex.Hit {
	out := make([]vectorindex.Hit, 0, len(hits))
	for _, h := range hits {
		if id, ok := mediaIDFromPayload(h.Payload); ok && id == excludeID {
			continue
		}
		out = append(out, h)
	}
	return out
}

func (s *SearchService) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SimilarMethod names a similar() strategy (spec.md §4.F).
type SimilarMethod string

const (
	SimilarCLIP     SimilarMethod = "clip"
	SimilarDINO     SimilarMethod = "dino"
	SimilarCombined SimilarMethod = "combined"
)

// Similar implements spec.md §4.F's similar(media_id, method, limit).
func (s *SearchService) Similar(ctx context.Context, projectID, mediaID uuid.UUID, method SimilarMethod, limit int) ([]SearchHit, error) {
	dbc := dbctx.Context{Ctx: ctx}
	media, err := s.r.Media.GetByID(dbc, mediaID)
	if err != nil {
		return nil, err
	}
	opts := vectorindex.SearchOptions{ProjectID: projectID.String(), Limit: limit}

	switch method {
	case SimilarCLIP:
		if media.ClipEmbeddingID == "" {
			return nil, fmt.Errorf("%w: media has no clip embedding", dberrors.ErrInputInvalid)
		}
		hits, err := s.index.Recommend(ctx, vectorindex.CollectionClip, media.ClipEmbeddingID, opts)
		if err != nil {
			return nil, err
		}
		return s.enrichHits(dbc, hits, "clip", mediaID)
	case SimilarDINO:
		if media.DinoEmbeddingID == "" {
			return nil, fmt.Errorf("%w: media has no dino embedding", dberrors.ErrInputInvalid)
		}
		hits, err := s.index.Recommend(ctx, vectorindex.CollectionDino, media.DinoEmbeddingID, opts)
		if err != nil {
			return nil, err
		}
		return s.enrichHits(dbc, hits, "dino", mediaID)
	case SimilarCombined:
		return s.similarCombined(ctx, dbc, media, opts, mediaID)
	default:
		return nil, fmt.Errorf("%w: unknown similarity method %q", dberrors.ErrInputInvalid, method)
	}
}

// similarCombined averages the per-media score of the CLIP and DINO
// recommend results (spec.md §4.F "combined averages the per-media
// score of CLIP and DINO recommendations").
func (s *SearchService) similarCombined(ctx context.Context, dbc dbctx.Context, media *types.Media, opts vectorindex.SearchOptions, excludeID uuid.UUID) ([]SearchHit, error) {
	combined := make(map[uuid.UUID][]float64)

	if media.ClipEmbeddingID != "" {
		hits, err := s.index.Recommend(ctx, vectorindex.CollectionClip, media.ClipEmbeddingID, opts)
		if err == nil {
			for _, h := range hits {
				if id, ok := mediaIDFromPayload(h.Payload); ok && id != excludeID {
					combined[id] = append(combined[id], h.Score)
				}
			}
		}
	}
	if media.DinoEmbeddingID != "" {
		hits, err := s.index.Recommend(ctx, vectorindex.CollectionDino, media.DinoEmbeddingID, opts)
		if err == nil {
			for _, h := range hits {
				if id, ok := mediaIDFromPayload(h.Payload); ok && id != excludeID {
					combined[id] = append(combined[id], h.Score)
				}
			}
		}
	}

	type scored struct {
		id    uuid.UUID
		score float64
	}
	ranked := make([]scored, 0, len(combined))
	for id, scores := range combined {
		var sum float64
		for _, v := range scores {
			sum += v
		}
		ranked = append(ranked, scored{id: id, score: sum / float64(len(scores))})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id.String() < ranked[j].id.String()
	})
	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}

	out := make([]SearchHit, 0, len(ranked))
	for _, r := range ranked {
		m, err := s.r.Media.GetByID(dbc, r.id)
		if err != nil {
			continue
		}
		out = append(out, SearchHit{MediaID: r.id, Score: r.score, Source: "combined", Media: m})
	}
	return out, nil
}

func (s *SearchService) enrichHits(dbc dbctx.Context, hits []vectorindex.Hit, source string, excludeID uuid.UUID) ([]SearchHit, error) {
	out := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		id, ok := mediaIDFromPayload(h.Payload)
		if !ok || id == excludeID {
			continue
		}
		media, err := s.r.Media.GetByID(dbc, id)
		if err != nil {
			continue
		}
		out = append(out, SearchHit{MediaID: id, Score: h.Score, Source: source, Media: media})
	}
	return out, nil
}

func mediaIDFromPayload(payload map[string]any) (uuid.UUID, bool) {
	v, ok := payload["media_id"]
	if !ok {
		return uuid.Nil, false
	}
	s, ok := v.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
