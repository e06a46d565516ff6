package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func unitVec(dim int, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestMemoryIndex_UpsertIsIdempotentAndLastWriterWins(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.EnsureCollections(ctx))

	p := Point{PointID: "clip_m1", Vector: unitVec(512, 0), Payload: map[string]any{"project_id": "p1", "media_id": "m1", "media_type": "IMAGE"}}
	require.NoError(t, idx.Upsert(ctx, CollectionClip, p))
	require.NoError(t, idx.Upsert(ctx, CollectionClip, p))

	hits, err := idx.Search(ctx, CollectionClip, unitVec(512, 0), SearchOptions{ProjectID: "p1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "clip_m1", hits[0].PointID)
	require.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestMemoryIndex_RejectsDimensionMismatch(t *testing.T) {
	idx := NewMemoryIndex()
	err := idx.Upsert(context.Background(), CollectionClip, Point{PointID: "x", Vector: unitVec(10, 0)})
	require.Error(t, err)
}

func TestMemoryIndex_RejectsNonUnitVector(t *testing.T) {
	idx := NewMemoryIndex()
	v := make([]float32, 512)
	v[0] = 2 // norm 2, not unit
	err := idx.Upsert(context.Background(), CollectionClip, Point{PointID: "x", Vector: v})
	require.Error(t, err)
}

func TestMemoryIndex_DeleteByMediaSweepsAllCollections(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	payload := map[string]any{"project_id": "p1", "media_id": "m1", "media_type": "IMAGE"}
	require.NoError(t, idx.Upsert(ctx, CollectionClip, Point{PointID: "clip_m1", Vector: unitVec(512, 0), Payload: payload}))
	require.NoError(t, idx.Upsert(ctx, CollectionDino, Point{PointID: "dino_m1", Vector: unitVec(768, 0), Payload: payload}))
	require.NoError(t, idx.DeleteByMedia(ctx, "m1"))

	hits, err := idx.Search(ctx, CollectionClip, unitVec(512, 0), SearchOptions{ProjectID: "p1"})
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestMemoryIndex_RecommendExcludesSeedPoint(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, CollectionClip, Point{PointID: "clip_a", Vector: unitVec(512, 0), Payload: map[string]any{"project_id": "p1"}}))
	require.NoError(t, idx.Upsert(ctx, CollectionClip, Point{PointID: "clip_b", Vector: unitVec(512, 0), Payload: map[string]any{"project_id": "p1"}}))

	hits, err := idx.Recommend(ctx, CollectionClip, "clip_a", SearchOptions{ProjectID: "p1", Limit: 5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "clip_b", hits[0].PointID)
}
