package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/activelearning"
	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// ActiveLearningService is component H's candidate-ranking half: it
// loads unannotated dataset items and their Media, hands them to the
// pure activelearning kernel, and (as a SUPPLEMENTED FEATURE carried
// over from the original api/active_learning.py: auto_annotate)
// materializes high-confidence auto_tags as Annotation rows.
type ActiveLearningService struct {
	db  *gorm.DB
	log *logger.Logger
	r   *repos.Repos
}

func NewActiveLearningService(db *gorm.DB, log *logger.Logger, r *repos.Repos) *ActiveLearningService {
	return &ActiveLearningService{db: db, log: log.With("service", "ActiveLearningService"), r: r}
}

// SuggestResponse mirrors spec.md §8's empty-candidates boundary: a
// `message` field is populated instead of an error when there is
// nothing to suggest.
type SuggestResponse struct {
	Suggestions []activelearning.Ranked `json:"suggestions"`
	Message     string                  `json:"message,omitempty"`
}

// candidateFetchLimit bounds how many unannotated items are pulled from
// the store before ranking; strategies themselves truncate to the
// caller's limit, but fetching unbounded rows would defeat that.
const candidateFetchLimit = 2000

// Suggest implements `POST /active-learning/{dataset_id}/suggest`
// (spec.md §6): loads unannotated items for dataset, builds Candidates
// from their Media rows, and dispatches to the named ranking strategy.
func (s *ActiveLearningService) Suggest(ctx context.Context, datasetID uuid.UUID, strategy string, limit int) (*SuggestResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	dbc := dbctx.Context{Ctx: ctx}
	items, err := s.r.DatasetItem.ListUnannotated(dbc, datasetID, candidateFetchLimit)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &SuggestResponse{Suggestions: []activelearning.Ranked{}, Message: "no unannotated candidates"}, nil
	}

	mediaIDs := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		mediaIDs = append(mediaIDs, it.MediaID)
	}
	mediaRows, err := s.r.Media.GetByIDs(dbc, mediaIDs)
	if err != nil {
		return nil, err
	}
	mediaByID := make(map[uuid.UUID]*types.Media, len(mediaRows))
	for _, m := range mediaRows {
		mediaByID[m.ID] = m
	}

	candidates := make([]activelearning.Candidate, 0, len(items))
	for _, it := range items {
		m, ok := mediaByID[it.MediaID]
		if !ok {
			continue
		}
		candidates = append(candidates, activelearning.Candidate{
			ItemID:      it.ID,
			MediaID:     it.MediaID,
			AutoTags:    decodeTagList(m.AutoTags),
			AutoCaption: m.AutoCaption,
		})
	}

	var ranked []activelearning.Ranked
	switch strategy {
	case "uncertainty", "":
		ranked = activelearning.Uncertainty(candidates, limit)
	case "diversity":
		ranked = activelearning.Diversity(candidates, limit)
	case "entropy":
		ranked = activelearning.Entropy(candidates, limit)
	case "random":
		ranked = activelearning.Random(candidates, limit, rand.New(rand.NewSource(time.Now().UnixNano())))
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", dberrors.ErrInputInvalid, strategy)
	}
	return &SuggestResponse{Suggestions: ranked}, nil
}

// AutoAnnotateResult reports how many Annotation rows were created.
type AutoAnnotateResult struct {
	Created int `json:"created"`
}

// AutoAnnotate is the supplemented feature from the original
// api/active_learning.py: auto_annotate. For every unannotated item
// whose Media carries auto_tags, it creates one CLASSIFICATION
// Annotation per tag (source=auto_vlm) when the item's uncertainty
// score is at or below the caller's threshold (i.e. the model already
// produced enough tags to be "confident"), and marks the item annotated.
func (s *ActiveLearningService) AutoAnnotate(ctx context.Context, datasetID uuid.UUID, createdBy uuid.UUID, confidenceThreshold float64, limit int) (*AutoAnnotateResult, error) {
	if limit <= 0 {
		limit = 200
	}
	dbc := dbctx.Context{Ctx: ctx}
	items, err := s.r.DatasetItem.ListUnannotated(dbc, datasetID, limit)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &AutoAnnotateResult{}, nil
	}

	created := 0
	err = s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: txx}
		for _, item := range items {
			m, mErr := s.r.Media.GetByID(txc, item.MediaID)
			if mErr != nil {
				continue
			}
			tags := decodeTagList(m.AutoTags)
			if len(tags) == 0 {
				continue
			}
			// Same uncertainty score the ranking strategy uses: more tags
			// means the VLM was more confident, so a lower score clears
			// the bar for auto-committing without human review.
			score := 1.0 / float64(len(tags)+1)
			if score > confidenceThreshold {
				continue
			}
			for _, tag := range tags {
				geometry, _ := json.Marshal(map[string]any{})
				_, cErr := s.r.Annotation.Create(txc, &types.Annotation{
					ID:            uuid.New(),
					DatasetItemID: item.ID,
					Type:          types.AnnotationClassification,
					Label:         tag,
					Confidence:    1.0 - score,
					Geometry:      datatypes.JSON(geometry),
					Source:        types.AnnotationSourceAutoVLM,
					CreatedByID:   createdBy,
				})
				if cErr != nil {
					return cErr
				}
				created++
			}
			if uErr := s.r.DatasetItem.UpdateFields(txc, item.ID, map[string]interface{}{"annotated": true}); uErr != nil {
				return uErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &AutoAnnotateResult{Created: created}, nil
}

func decodeTagList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	return tags
}
