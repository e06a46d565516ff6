package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/encoders"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/vectorindex"
)

// fakeMediaRepo is an in-memory MediaRepo shared by the search and
// indexing tests; GetByChecksum is the only stub (always not found).
type fakeMediaRepo struct {
	rows map[uuid.UUID]*types.Media
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{rows: make(map[uuid.UUID]*types.Media)}
}

func (f *fakeMediaRepo) Create(dbc dbctx.Context, m *types.Media) (*types.Media, error) {
	f.rows[m.ID] = m
	return m, nil
}

func (f *fakeMediaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Media, error) {
	m, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (f *fakeMediaRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Media, error) {
	var out []*types.Media
	for _, id := range ids {
		if m, ok := f.rows[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMediaRepo) GetByChecksum(dbc dbctx.Context, projectID uuid.UUID, checksum string) (*types.Media, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMediaRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, filter repos.MediaFilter) ([]*types.Media, error) {
	var out []*types.Media
	for _, m := range f.rows {
		if m.ProjectID != projectID {
			continue
		}
		if filter.State != "" && m.State != filter.State {
			continue
		}
		if filter.Kind != "" && m.Kind != filter.Kind {
			continue
		}
		out = append(out, m)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMediaRepo) Update(dbc dbctx.Context, m *types.Media) error {
	f.rows[m.ID] = m
	return nil
}

func (f *fakeMediaRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	m, ok := f.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if state, ok := updates["state"].(types.MediaState); ok {
		m.State = state
	}
	return nil
}

func (f *fakeMediaRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

// Stub encoders returning fixed vectors so search scores are exact.
type stubCLIPText struct{ vec []float32 }

func (s stubCLIPText) EmbedCLIPText(ctx context.Context, text string) ([]float32, error) {
	return s.vec, nil
}

type stubText struct{ vec []float32 }

func (s stubText) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return s.vec, nil
}

type stubImage struct{ vec []float32 }

func (s stubImage) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	return s.vec, nil
}

// axisVec builds a vector with the given first two components and zeros
// elsewhere; it does not normalize, so callers pass x²+y²=1 (or wrap it in
// Normalize). Against a (1,0,...) query a unit axisVec scores exactly x.
func axisVec(dim int, x, y float64) []float32 {
	v := make([]float32, dim)
	v[0] = float32(x)
	v[1] = float32(y)
	return v
}

func searchFixture(t *testing.T) (*SearchService, *fakeMediaRepo, *vectorindex.MemoryIndex) {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	t.Cleanup(log.Sync)

	media := newFakeMediaRepo()
	idx := vectorindex.NewMemoryIndex()
	require.NoError(t, idx.EnsureCollections(context.Background()))

	enc := encoders.NewManager(
		func() (encoders.ImageEmbedder, error) { return stubImage{vec: axisVec(512, 1, 0)}, nil },
		func() (encoders.ImageEmbedder, error) { return stubImage{vec: axisVec(768, 1, 0)}, nil },
		func() (encoders.Captioner, error) { return &encoders.FakeCaptioner{}, nil },
		func() (encoders.TextEmbedder, error) { return stubText{vec: axisVec(384, 1, 0)}, nil },
		func() (encoders.CLIPTextEmbedder, error) { return stubCLIPText{vec: axisVec(512, 1, 0)}, nil },
	)

	svc := NewSearchService(log, &repos.Repos{Media: media}, idx, enc)
	return svc, media, idx
}

func seedMedia(media *fakeMediaRepo, projectID uuid.UUID) *types.Media {
	m := &types.Media{
		ID:        uuid.New(),
		ProjectID: projectID,
		Filename:  "img.png",
		Kind:      types.MediaKindImage,
		State:     types.MediaStateCompleted,
	}
	media.rows[m.ID] = m
	return m
}

func clipPayload(m *types.Media, origin string) map[string]any {
	return map[string]any{
		"media_id":   m.ID.String(),
		"project_id": m.ProjectID.String(),
		"media_type": string(m.Kind),
		"origin":     origin,
	}
}

func TestSearch_RejectsEmptyRequest(t *testing.T) {
	svc, _, _ := searchFixture(t)
	_, err := svc.Search(context.Background(), uuid.New(), SearchRequest{UseCLIP: true, UseText: true})
	require.ErrorIs(t, err, dberrors.ErrInputInvalid)
}

func TestSearch_HybridBoost(t *testing.T) {
	svc, media, idx := searchFixture(t)
	projectID := uuid.New()
	ctx := context.Background()

	m1 := seedMedia(media, projectID)
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionClip, vectorindex.Point{
		PointID: "clip_" + m1.ID.String(),
		Vector:  axisVec(512, 0.8, 0.6),
		Payload: clipPayload(m1, "clip"),
	}))
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionText, vectorindex.Point{
		PointID: "caption_" + m1.ID.String(),
		Vector:  axisVec(384, 0.7, 0.714142842854285),
		Payload: clipPayload(m1, "auto_caption"),
	}))

	resp, err := svc.Search(ctx, projectID, SearchRequest{
		Query:   "cat",
		UseCLIP: true,
		UseText: true,
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Equal(t, m1.ID, resp.Results[0].MediaID)
	require.Equal(t, "hybrid", resp.Results[0].Source)
	// max(0.80, 0.70) * 1.1
	require.InDelta(t, 0.88, resp.Results[0].Score, 1e-6)
	require.NotNil(t, resp.Results[0].Media)
	require.GreaterOrEqual(t, resp.TookMS, int64(0))
}

func TestSearch_SortedDescendingUniqueMedia(t *testing.T) {
	svc, media, idx := searchFixture(t)
	projectID := uuid.New()
	ctx := context.Background()

	scores := []float64{0.9, 0.5, 0.7}
	for _, s := range scores {
		m := seedMedia(media, projectID)
		require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionClip, vectorindex.Point{
			PointID: "clip_" + m.ID.String(),
			Vector:  vectorindex.Normalize(axisVec(512, s, 1-s)),
			Payload: clipPayload(m, "clip"),
		}))
	}

	resp, err := svc.Search(ctx, projectID, SearchRequest{Query: "anything", UseCLIP: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	seen := make(map[uuid.UUID]bool)
	for i := 1; i < len(resp.Results); i++ {
		require.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
	for _, hit := range resp.Results {
		require.False(t, seen[hit.MediaID], "duplicate media_id in results")
		seen[hit.MediaID] = true
	}
}

func TestSearch_MinConfidenceFilters(t *testing.T) {
	svc, media, idx := searchFixture(t)
	projectID := uuid.New()
	ctx := context.Background()

	m := seedMedia(media, projectID)
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionClip, vectorindex.Point{
		PointID: "clip_" + m.ID.String(),
		Vector:  axisVec(512, 0.6, 0.8),
		Payload: clipPayload(m, "clip"),
	}))

	resp, err := svc.Search(ctx, projectID, SearchRequest{
		Query:         "cat",
		UseCLIP:       true,
		MinConfidence: 0.9,
		Limit:         10,
	})
	require.NoError(t, err)
	require.Empty(t, resp.Results)
}

func TestSearch_ProjectFilterExcludesOtherTenants(t *testing.T) {
	svc, media, idx := searchFixture(t)
	projectID := uuid.New()
	otherProject := uuid.New()
	ctx := context.Background()

	foreign := seedMedia(media, otherProject)
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionClip, vectorindex.Point{
		PointID: "clip_" + foreign.ID.String(),
		Vector:  axisVec(512, 1, 0),
		Payload: clipPayload(foreign, "clip"),
	}))

	resp, err := svc.Search(ctx, projectID, SearchRequest{Query: "cat", UseCLIP: true, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, resp.Results)
}

func TestSearch_SkipsVanishedMediaRows(t *testing.T) {
	svc, _, idx := searchFixture(t)
	projectID := uuid.New()
	ctx := context.Background()

	ghost := &types.Media{ID: uuid.New(), ProjectID: projectID, Kind: types.MediaKindImage}
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionClip, vectorindex.Point{
		PointID: "clip_" + ghost.ID.String(),
		Vector:  axisVec(512, 1, 0),
		Payload: clipPayload(ghost, "clip"),
	}))

	resp, err := svc.Search(ctx, projectID, SearchRequest{Query: "cat", UseCLIP: true, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, resp.Results)
	require.Equal(t, 1, resp.Total)
}

func TestSimilar_CLIPExcludesReference(t *testing.T) {
	svc, media, idx := searchFixture(t)
	projectID := uuid.New()
	ctx := context.Background()

	ref := seedMedia(media, projectID)
	ref.ClipEmbeddingID = "clip_" + ref.ID.String()
	neighbor := seedMedia(media, projectID)

	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionClip, vectorindex.Point{
		PointID: ref.ClipEmbeddingID,
		Vector:  axisVec(512, 1, 0),
		Payload: clipPayload(ref, "clip"),
	}))
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionClip, vectorindex.Point{
		PointID: "clip_" + neighbor.ID.String(),
		Vector:  axisVec(512, 0.8, 0.6),
		Payload: clipPayload(neighbor, "clip"),
	}))

	hits, err := svc.Similar(ctx, projectID, ref.ID, SimilarCLIP, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, neighbor.ID, hits[0].MediaID)
	require.InDelta(t, 0.8, hits[0].Score, 1e-6)
}

func TestSimilar_UnknownMethod(t *testing.T) {
	svc, media, _ := searchFixture(t)
	projectID := uuid.New()
	m := seedMedia(media, projectID)

	_, err := svc.Similar(context.Background(), projectID, m.ID, SimilarMethod("bogus"), 10)
	require.ErrorIs(t, err, dberrors.ErrInputInvalid)
}
