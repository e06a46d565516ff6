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
)

// fakeDatasetVersionRepo answers "no such tag" for every lookup, enough
// to drive CreateVersion past its collision check.
type fakeDatasetVersionRepo struct{}

func (fakeDatasetVersionRepo) Create(dbc dbctx.Context, v *types.DatasetVersion) (*types.DatasetVersion, error) {
	return v, nil
}

func (fakeDatasetVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DatasetVersion, error) {
	return nil, gorm.ErrRecordNotFound
}

func (fakeDatasetVersionRepo) GetByTag(dbc dbctx.Context, datasetID uuid.UUID, tag string) (*types.DatasetVersion, error) {
	return nil, gorm.ErrRecordNotFound
}

func (fakeDatasetVersionRepo) ListByDataset(dbc dbctx.Context, datasetID uuid.UUID) ([]*types.DatasetVersion, error) {
	return nil, nil
}

func (fakeDatasetVersionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

// fakeDatasetRepo knows no datasets; CreateVersion reaching its GetByID
// proves tag validation already passed.
type fakeDatasetRepo struct{}

func (fakeDatasetRepo) Create(dbc dbctx.Context, d *types.Dataset) (*types.Dataset, error) {
	return d, nil
}

func (fakeDatasetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Dataset, error) {
	return nil, gorm.ErrRecordNotFound
}

func (fakeDatasetRepo) GetBySlug(dbc dbctx.Context, projectID uuid.UUID, slug string) (*types.Dataset, error) {
	return nil, gorm.ErrRecordNotFound
}

func (fakeDatasetRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Dataset, error) {
	return nil, nil
}

func (fakeDatasetRepo) Update(dbc dbctx.Context, d *types.Dataset) error { return nil }

func (fakeDatasetRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (fakeDatasetRepo) Delete(dbc dbctx.Context, id uuid.UUID) error { return nil }

func datasetVersionFixture(t *testing.T) *DatasetService {
	t.Helper()
	r := &repos.Repos{
		Dataset:        fakeDatasetRepo{},
		DatasetVersion: fakeDatasetVersionRepo{},
	}
	return NewDatasetService(newTestGormDB(t), newTestServiceLogger(t), r, nil, nil)
}

func TestCreateVersion_RejectsMalformedTags(t *testing.T) {
	svc := datasetVersionFixture(t)

	// The tag becomes a path segment of the export artifact, so path
	// metacharacters must never survive validation.
	for _, tag := range []string{
		"../../../../tmp/evil",
		"v1/evil",
		`v1\evil`,
		"v 1",
		"v1!",
		"",
		"   ",
	} {
		_, err := svc.CreateVersion(context.Background(), uuid.New(), tag, "")
		require.ErrorIs(t, err, dberrors.ErrInputInvalid, "tag %q must be rejected", tag)
	}
}

func TestCreateVersion_AcceptsWellFormedTags(t *testing.T) {
	svc := datasetVersionFixture(t)

	// A well-formed tag passes validation and fails later on the missing
	// dataset instead, which is exactly the ordering the invariant needs.
	for _, tag := range []string{"v1", "v1.0.0", "2024-01-01", "release_candidate.2"} {
		_, err := svc.CreateVersion(context.Background(), uuid.New(), tag, "")
		require.ErrorIs(t, err, dberrors.ErrNotFound, "tag %q must pass validation", tag)
		require.NotErrorIs(t, err, dberrors.ErrInputInvalid)
	}
}
