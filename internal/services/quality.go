package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/geometry"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/quality"
)

// QualityService is component H's review/agreement half: it loads
// Annotation rows from the metadata store, reshapes them into the pure
// quality package's Entry records, and persists AgreementScore/
// AnnotationReview rows. Grounded on the original services/quality_metrics.py
// driving logic that wraps the same metric functions this package ports.
type QualityService struct {
	db  *gorm.DB
	log *logger.Logger
	r   *repos.Repos
}

func NewQualityService(db *gorm.DB, log *logger.Logger, r *repos.Repos) *QualityService {
	return &QualityService{db: db, log: log.With("service", "QualityService"), r: r}
}

// CreateReview implements `POST /quality/reviews` (spec.md §6).
func (s *QualityService) CreateReview(ctx context.Context, annotationID, reviewerID uuid.UUID, status types.ReviewStatus, comment string) (*types.AnnotationReview, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.r.Annotation.GetByID(dbc, annotationID); err != nil {
		return nil, fmt.Errorf("%w: annotation", dberrors.ErrNotFound)
	}
	return s.r.AnnotationReview.Create(dbc, &types.AnnotationReview{
		ID:           uuid.New(),
		AnnotationID: annotationID,
		ReviewerID:   reviewerID,
		Status:       status,
		Comment:      comment,
	})
}

// AgreementResponse mirrors spec.md §8's zero-annotator boundary: a
// `message` is populated and score is nil rather than erroring.
type AgreementResponse struct {
	Score       *float64           `json:"score"`
	Message     string             `json:"message,omitempty"`
	ItemScores  []ItemAgreement    `json:"item_scores"`
}

// ItemAgreement is one dataset item's per-item agreement score, rolled
// up into AgreementResponse and persisted as an AgreementScore row.
type ItemAgreement struct {
	ItemID uuid.UUID `json:"item_id"`
	Score  float64   `json:"score"`
}

// ComputeAgreement implements `POST /quality/{dataset_id}/agreement?metric=`
// (spec.md §6): groups the dataset's annotations by item, computes the
// named metric per item, persists an AgreementScore row per item, and
// averages for the dataset-level Score.
func (s *QualityService) ComputeAgreement(ctx context.Context, datasetID uuid.UUID, metric string) (*AgreementResponse, error) {
	dbc := dbctx.Context{Ctx: ctx}
	annotations, err := s.r.Annotation.ListByDataset(dbc, datasetID)
	if err != nil {
		return nil, err
	}
	if len(annotations) == 0 {
		return &AgreementResponse{Message: "no annotations", ItemScores: []ItemAgreement{}}, nil
	}

	byItem := map[uuid.UUID][]*types.Annotation{}
	for _, a := range annotations {
		byItem[a.DatasetItemID] = append(byItem[a.DatasetItemID], a)
	}

	var itemScores []ItemAgreement
	var total float64
	for itemID, anns := range byItem {
		entries := make([]quality.Entry, 0, len(anns))
		annotatorSet := map[uuid.UUID]bool{}
		for _, a := range anns {
			entries = append(entries, quality.Entry{
				UserID:   a.CreatedByID.String(),
				Label:    a.Label,
				Type:     lowerAnnType(a.Type),
				Geometry: decodeBBoxOrZero(a.Geometry, a.Type),
			})
			annotatorSet[a.CreatedByID] = true
		}

		result, err := runMetric(metric, entries)
		if err != nil {
			return nil, err
		}
		itemScores = append(itemScores, ItemAgreement{ItemID: itemID, Score: result.Score})
		total += result.Score

		annotatorIDs := make([]string, 0, len(annotatorSet))
		for id := range annotatorSet {
			annotatorIDs = append(annotatorIDs, id.String())
		}
		idsJSON, _ := json.Marshal(annotatorIDs)
		detailsJSON, _ := json.Marshal(result.PerLabel)
		if _, err := s.r.AgreementScore.Create(dbc, &types.AgreementScore{
			ID:            uuid.New(),
			DatasetID:     datasetID,
			DatasetItemID: itemID,
			AnnotatorIDs:  datatypes.JSON(idsJSON),
			Metric:        metric,
			Score:         result.Score,
			Details:       datatypes.JSON(detailsJSON),
		}); err != nil {
			s.log.Error("persist agreement score", "error", err, "item_id", itemID)
		}
	}

	avg := total / float64(len(itemScores))
	return &AgreementResponse{Score: &avg, ItemScores: itemScores}, nil
}

// Summary implements `GET /quality/{dataset_id}/summary` (spec.md §6):
// the most recent AgreementScore per item, grouped by metric.
func (s *QualityService) Summary(ctx context.Context, datasetID uuid.UUID) (map[string][]float64, error) {
	scores, err := s.r.AgreementScore.ListByDataset(dbctx.Context{Ctx: ctx}, datasetID)
	if err != nil {
		return nil, err
	}
	out := map[string][]float64{}
	// scores arrive newest first, so the first row seen per (metric,
	// item) is the most recent one.
	seen := map[string]bool{}
	for _, sc := range scores {
		key := sc.Metric + "|" + sc.DatasetItemID.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out[sc.Metric] = append(out[sc.Metric], sc.Score)
	}
	return out, nil
}

func runMetric(metric string, entries []quality.Entry) (quality.Result, error) {
	switch metric {
	case "label", "":
		return quality.LabelAgreement(entries), nil
	case "iou":
		return quality.IoUAgreement(entries), nil
	case "percent":
		return quality.PercentAgreement(entries), nil
	case "cohens_kappa":
		return quality.CohensKappa(entries), nil
	case "fleiss_kappa":
		return quality.FleissKappa(entries), nil
	default:
		return quality.Result{}, fmt.Errorf("%w: unknown metric %q", dberrors.ErrInputInvalid, metric)
	}
}

func lowerAnnType(t types.AnnotationType) string {
	switch t {
	case types.AnnotationBBox:
		return "bbox"
	default:
		return string(t)
	}
}

func decodeBBoxOrZero(raw datatypes.JSON, annType types.AnnotationType) geometry.BBox {
	if annType != types.AnnotationBBox {
		return geometry.BBox{}
	}
	b, err := geometry.DecodeBBox(raw)
	if err != nil {
		return geometry.BBox{}
	}
	return b
}
