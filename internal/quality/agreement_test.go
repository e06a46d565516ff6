package quality

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pierdell/mediaforge-backend/internal/geometry"
)

func TestLabelAgreement_WorkedExample(t *testing.T) {
	entries := []Entry{
		{UserID: "u1", Label: "cat"},
		{UserID: "u1", Label: "dog"},
		{UserID: "u2", Label: "cat"},
		{UserID: "u2", Label: "fish"},
	}
	// {cat,dog} vs {cat,fish}: intersection=1, union=3 -> 1/3
	r := LabelAgreement(entries)
	require.InDelta(t, 1.0/3.0, r.Score, 1e-9)
}

func TestLabelAgreement_FewerThanTwoUsers(t *testing.T) {
	r := LabelAgreement([]Entry{{UserID: "u1", Label: "cat"}})
	require.Equal(t, 1.0, r.Score)
}

func TestIoUAgreement_WorkedExample(t *testing.T) {
	entries := []Entry{
		{UserID: "u1", Type: "bbox", Geometry: geometry.BBox{X: 0, Y: 0, W: 100, H: 100}},
		{UserID: "u2", Type: "bbox", Geometry: geometry.BBox{X: 50, Y: 50, W: 100, H: 100}},
	}
	r := IoUAgreement(entries)
	require.InDelta(t, 2500.0/17500.0, r.Score, 1e-9)
}

func TestIoUAgreement_IgnoresNonBBox(t *testing.T) {
	entries := []Entry{
		{UserID: "u1", Type: "classification", Label: "cat"},
		{UserID: "u2", Type: "classification", Label: "cat"},
	}
	r := IoUAgreement(entries)
	require.Equal(t, 1.0, r.Score)
	require.Empty(t, r.Annotators)
}

func TestPercentAgreement_ExactMatch(t *testing.T) {
	entries := []Entry{
		{UserID: "u1", Label: "cat"},
		{UserID: "u1", Label: "dog"},
		{UserID: "u2", Label: "dog"},
		{UserID: "u2", Label: "cat"},
	}
	r := PercentAgreement(entries)
	require.Equal(t, 1.0, r.Score)
}

func TestPercentAgreement_Mismatch(t *testing.T) {
	entries := []Entry{
		{UserID: "u1", Label: "cat"},
		{UserID: "u2", Label: "dog"},
	}
	r := PercentAgreement(entries)
	require.Equal(t, 0.0, r.Score)
}

func TestCohensKappa_PerfectAgreement(t *testing.T) {
	entries := []Entry{
		{UserID: "u1", Label: "cat"},
		{UserID: "u2", Label: "cat"},
	}
	r := CohensKappa(entries)
	require.Equal(t, 1.0, r.Score)
}

func TestCohensKappa_Disagreement(t *testing.T) {
	entries := []Entry{
		{UserID: "u1", Label: "cat"},
		{UserID: "u2", Label: "dog"},
	}
	r := CohensKappa(entries)
	require.InDelta(t, -1.0, r.Score, 1e-9)
}

func TestFleissKappa_PerfectAgreement(t *testing.T) {
	entries := []Entry{
		{UserID: "u1", Label: "cat"},
		{UserID: "u2", Label: "cat"},
		{UserID: "u3", Label: "cat"},
	}
	r := FleissKappa(entries)
	require.Equal(t, 1.0, r.Score)
}

func TestFleissKappa_FewerThanTwoRaters(t *testing.T) {
	r := FleissKappa([]Entry{{UserID: "u1", Label: "cat"}})
	require.Equal(t, 1.0, r.Score)
}
