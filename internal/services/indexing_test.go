package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
)

func indexingFixture(t *testing.T) (*IndexingService, *fakeMediaRepo, *fakeJobRunRepo, *fakeIndexingJobRepo) {
	t.Helper()
	media := newFakeMediaRepo()
	jobRuns := &fakeJobRunRepo{}
	indexingJobs := &fakeIndexingJobRepo{}
	r := &repos.Repos{Media: media, JobRun: jobRuns, IndexingJob: indexingJobs}
	svc := NewIndexingService(newTestGormDB(t), newTestServiceLogger(t), r, nil)
	return svc, media, jobRuns, indexingJobs
}

func pendingMedia(media *fakeMediaRepo, projectID uuid.UUID) *types.Media {
	m := &types.Media{
		ID:        uuid.New(),
		ProjectID: projectID,
		Kind:      types.MediaKindImage,
		State:     types.MediaStatePending,
	}
	media.rows[m.ID] = m
	return m
}

func TestDispatch_FansOutPerMediaPerPipeline(t *testing.T) {
	svc, media, jobRuns, indexingJobs := indexingFixture(t)
	projectID := uuid.New()
	m1 := pendingMedia(media, projectID)
	m2 := pendingMedia(media, projectID)

	result, err := svc.Dispatch(context.Background(), projectID, []uuid.UUID{m1.ID, m2.ID}, nil, nil, 0)
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalItems)
	require.Equal(t, 8, result.TotalTasks) // 2 media x 4 default pipelines
	require.Len(t, jobRuns.created, 8)
	require.Len(t, indexingJobs.created, 1)
	require.Equal(t, result.JobID, indexingJobs.created[0].ID)

	// Targets transition to PROCESSING in the same dispatch.
	require.Equal(t, types.MediaStateProcessing, m1.State)
	require.Equal(t, types.MediaStateProcessing, m2.State)

	// CLIP/DINO/VLM route to gpu, text to default; VLM carries the
	// shorter retry budget.
	byType := make(map[string]*types.JobRun)
	for _, j := range jobRuns.created {
		if j.EntityID == m1.ID {
			byType[j.JobType] = j
		}
		require.Equal(t, types.JobStatusQueued, j.Status)
		require.Equal(t, "media", j.EntityType)
	}
	require.Equal(t, types.QueueGPU, byType[types.JobTypeClipEmbed].Queue)
	require.Equal(t, types.QueueGPU, byType[types.JobTypeDinoEmbed].Queue)
	require.Equal(t, types.QueueGPU, byType[types.JobTypeVLMCaption].Queue)
	require.Equal(t, types.QueueDefault, byType[types.JobTypeTextEmbed].Queue)
	require.Equal(t, 3, byType[types.JobTypeClipEmbed].MaxAttempts)
	require.Equal(t, 2, byType[types.JobTypeVLMCaption].MaxAttempts)
}

func TestDispatch_RejectsUnknownPipeline(t *testing.T) {
	svc, media, _, _ := indexingFixture(t)
	projectID := uuid.New()
	m := pendingMedia(media, projectID)

	_, err := svc.Dispatch(context.Background(), projectID, []uuid.UUID{m.ID}, []string{"clip", "bogus"}, nil, 0)
	require.ErrorIs(t, err, dberrors.ErrInputInvalid)
}

func TestDispatch_IgnoresForeignProjectMedia(t *testing.T) {
	svc, media, jobRuns, _ := indexingFixture(t)
	projectID := uuid.New()
	foreign := pendingMedia(media, uuid.New())

	result, err := svc.Dispatch(context.Background(), projectID, []uuid.UUID{foreign.ID}, []string{"clip"}, nil, 0)
	require.NoError(t, err)
	require.Equal(t, 0, result.TotalItems)
	require.Empty(t, jobRuns.created)
	require.Equal(t, types.MediaStatePending, foreign.State)
}

func TestDispatch_DefaultsToPendingAndFailed(t *testing.T) {
	svc, media, jobRuns, _ := indexingFixture(t)
	projectID := uuid.New()

	pending := pendingMedia(media, projectID)
	failed := pendingMedia(media, projectID)
	failed.State = types.MediaStateFailed
	done := pendingMedia(media, projectID)
	done.State = types.MediaStateCompleted

	result, err := svc.Dispatch(context.Background(), projectID, nil, []string{"clip"}, nil, 0)
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalItems)
	require.Len(t, jobRuns.created, 2)
	require.Equal(t, types.MediaStateProcessing, pending.State)
	require.Equal(t, types.MediaStateProcessing, failed.State)
	require.Equal(t, types.MediaStateCompleted, done.State)
}

func TestStats_ZeroMedia(t *testing.T) {
	svc, _, _, _ := indexingFixture(t)

	stats, err := svc.Stats(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, &IndexingStats{}, stats)
}

func TestStats_GroupsByState(t *testing.T) {
	svc, media, _, _ := indexingFixture(t)
	projectID := uuid.New()

	states := []types.MediaState{
		types.MediaStateCompleted,
		types.MediaStateCompleted,
		types.MediaStatePending,
		types.MediaStateProcessing,
		types.MediaStateFailed,
		types.MediaStatePartial,
	}
	for _, st := range states {
		m := pendingMedia(media, projectID)
		m.State = st
	}

	stats, err := svc.Stats(context.Background(), projectID)
	require.NoError(t, err)
	require.Equal(t, 6, stats.Total)
	require.Equal(t, 2, stats.Indexed)
	require.Equal(t, 1, stats.Pending)
	require.Equal(t, 1, stats.Processing)
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 1, stats.Partial)
}
