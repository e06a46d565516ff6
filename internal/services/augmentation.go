package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/geometry"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// TransformSpec is the wire shape of one augmentation step in a
// `POST /augmentation/{dataset_id}/configure` request body (spec.md
// §6): a transform name plus its optional parameter.
type TransformSpec struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor,omitempty"`
	Angle  float64 `json:"angle,omitempty"`
}

// AugmentationService runs the geometry package's Transform chain over
// existing annotated DatasetItems, producing new augmented items+
// annotations (spec.md §4.H "Augmentation transforms"), grounded on the
// original services/augmentation.py run_augmentation driving loop.
type AugmentationService struct {
	db  *gorm.DB
	log *logger.Logger
	r   *repos.Repos
}

func NewAugmentationService(db *gorm.DB, log *logger.Logger, r *repos.Repos) *AugmentationService {
	return &AugmentationService{db: db, log: log.With("service", "AugmentationService"), r: r}
}

// BuildChain translates the wire TransformSpecs into geometry.Transform
// values, failing fast on an unknown name (spec.md §9 "Error variants
// over exceptions").
func BuildChain(specs []TransformSpec) ([]geometry.Transform, error) {
	chain := make([]geometry.Transform, 0, len(specs))
	for _, spec := range specs {
		switch spec.Name {
		case "horizontal_flip":
			chain = append(chain, geometry.HorizontalFlip{})
		case "vertical_flip":
			chain = append(chain, geometry.VerticalFlip{})
		case "scale":
			chain = append(chain, geometry.Scale{Factor: spec.Factor})
		case "rotate":
			chain = append(chain, geometry.Rotate{AngleDeg: spec.Angle})
		default:
			return nil, fmt.Errorf("%w: unknown transform %q", dberrors.ErrInputInvalid, spec.Name)
		}
	}
	return chain, nil
}

// RunResult reports how many augmented items/annotations were created.
type RunResult struct {
	ItemsCreated       int `json:"items_created"`
	AnnotationsCreated int `json:"annotations_created"`
}

// Run implements `POST /augmentation/{dataset_id}/run`: for every source
// item, clones it into a new DatasetItem (split is unconditionally
// "train" — spec.md §9 Open Question, decided in DESIGN.md) and clones
// every annotation through the transform chain, tagged
// Source=augmented.
func (s *AugmentationService) Run(ctx context.Context, datasetID uuid.UUID, createdBy uuid.UUID, itemIDs []uuid.UUID, specs []TransformSpec, width, height float64) (*RunResult, error) {
	chain, err := BuildChain(specs)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: at least one transform is required", dberrors.ErrInputInvalid)
	}

	result := &RunResult{}
	err = s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: txx}
		for _, srcItemID := range itemIDs {
			src, err := s.r.DatasetItem.GetByID(dbc, srcItemID)
			if err != nil {
				return fmt.Errorf("%w: dataset item %s", dberrors.ErrNotFound, srcItemID)
			}
			if src.DatasetID != datasetID {
				return fmt.Errorf("%w: dataset item %s does not belong to dataset %s", dberrors.ErrInputInvalid, srcItemID, datasetID)
			}

			newItem, err := s.r.DatasetItem.Create(dbc, &types.DatasetItem{
				ID:        uuid.New(),
				DatasetID: datasetID,
				MediaID:   src.MediaID,
				Split:     types.SplitTrain,
				Annotated: true,
			})
			if err != nil {
				return err
			}
			result.ItemsCreated++

			anns, err := s.r.Annotation.ListByItem(dbc, srcItemID)
			if err != nil {
				return err
			}
			for _, a := range anns {
				transformed, err := geometry.ApplyChain(a.Type, a.Geometry, width, height, chain)
				if err != nil {
					s.log.Warn("skipping annotation with untransformable geometry", "annotation_id", a.ID, "error", err)
					continue
				}
				if _, err := s.r.Annotation.Create(dbc, &types.Annotation{
					ID:            uuid.New(),
					DatasetItemID: newItem.ID,
					Type:          a.Type,
					Label:         a.Label,
					Confidence:    a.Confidence,
					Geometry:      transformed,
					Attributes:    a.Attributes,
					Frame:         a.Frame,
					TimeSec:       a.TimeSec,
					Source:        types.AnnotationSourceAugmented,
					CreatedByID:   createdBy,
				}); err != nil {
					return err
				}
				result.AnnotationsCreated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
