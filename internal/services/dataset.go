package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/export"
	"github.com/pierdell/mediaforge-backend/internal/geometry"
	"github.com/pierdell/mediaforge-backend/internal/platform/config"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/storage"
	"github.com/pierdell/mediaforge-backend/internal/platform/thumbnail"
)

// DatasetService is component C's curation surface plus the dataset
// version/export step. Grounded on the teacher's internal/services/
// enrollment.go item bookkeeping, generalized to datasets/items/
// annotations, with CreateVersion adapted from the original's
// services/export.py snapshot-then-render flow.
type DatasetService struct {
	db      *gorm.DB
	log     *logger.Logger
	r       *repos.Repos
	store   storage.Store
	presets map[string]datatypes.JSON
}

func NewDatasetService(db *gorm.DB, log *logger.Logger, r *repos.Repos, store storage.Store, presets []config.LabelSchemaPreset) *DatasetService {
	return &DatasetService{
		db:      db,
		log:     log.With("service", "DatasetService"),
		r:       r,
		store:   store,
		presets: buildPresetSchemas(presets),
	}
}

// presetColors cycles across a preset's classes so generated schemas
// are usable in an annotation UI without hand-assigned colors.
var presetColors = []string{"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4", "#46f0f0", "#f032e6"}

func buildPresetSchemas(presets []config.LabelSchemaPreset) map[string]datatypes.JSON {
	out := make(map[string]datatypes.JSON, len(presets))
	for _, p := range presets {
		defs := make([]types.LabelDef, 0, len(p.Classes))
		for i, class := range p.Classes {
			defs = append(defs, types.LabelDef{
				ID:    strings.ToLower(strings.ReplaceAll(strings.TrimSpace(class), " ", "_")),
				Name:  class,
				Color: presetColors[i%len(presetColors)],
			})
		}
		if raw, err := json.Marshal(defs); err == nil {
			out[p.Name] = datatypes.JSON(raw)
		}
	}
	return out
}

// PresetSchema resolves a named label-schema preset from the YAML
// overlay, if one is configured.
func (s *DatasetService) PresetSchema(name string) (datatypes.JSON, bool) {
	schema, ok := s.presets[name]
	return schema, ok
}

func (s *DatasetService) Create(ctx context.Context, projectID uuid.UUID, slug, name string, dtype types.DatasetType, labelSchema datatypes.JSON) (*types.Dataset, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", dberrors.ErrInputInvalid)
	}
	d, err := s.r.Dataset.Create(dbctx.Context{Ctx: ctx}, &types.Dataset{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Slug:        slug,
		Name:        name,
		Type:        dtype,
		Status:      types.DatasetStatusDraft,
		LabelSchema: labelSchema,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: slug already in use", dberrors.ErrConflict)
		}
		return nil, err
	}
	return d, nil
}

func (s *DatasetService) Get(ctx context.Context, id uuid.UUID) (*types.Dataset, error) {
	return s.r.Dataset.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *DatasetService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*types.Dataset, error) {
	return s.r.Dataset.ListByProject(dbctx.Context{Ctx: ctx}, projectID)
}

// AddItem enforces the (dataset, media) uniqueness invariant and keeps
// Dataset.ItemCount in sync with the items table (spec.md §3).
func (s *DatasetService) AddItem(ctx context.Context, datasetID, mediaID uuid.UUID, split types.Split) (*types.DatasetItem, error) {
	if split == "" {
		split = types.SplitTrain
	}
	var created *types.DatasetItem
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: txx}
		if existing, err := s.r.DatasetItem.GetByDatasetAndMedia(dbc, datasetID, mediaID); err == nil && existing != nil {
			return fmt.Errorf("%w: media already in dataset", dberrors.ErrConflict)
		}
		item, err := s.r.DatasetItem.Create(dbc, &types.DatasetItem{
			ID:        uuid.New(),
			DatasetID: datasetID,
			MediaID:   mediaID,
			Split:     split,
		})
		if err != nil {
			return err
		}
		if err := s.r.Dataset.UpdateFields(dbc, datasetID, map[string]interface{}{
			"item_count": gorm.Expr("item_count + 1"),
		}); err != nil {
			return err
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *DatasetService) ListItems(ctx context.Context, datasetID uuid.UUID, split types.Split) ([]*types.DatasetItem, error) {
	return s.r.DatasetItem.ListByDataset(dbctx.Context{Ctx: ctx}, datasetID, split)
}

// ItemOverlay renders the review preview for an item: the source image
// with its bbox annotations and labels burned in, so a reviewer sees
// the labeled frame without a client-side canvas.
func (s *DatasetService) ItemOverlay(ctx context.Context, itemID uuid.UUID) ([]byte, error) {
	dbc := dbctx.Context{Ctx: ctx}
	item, err := s.r.DatasetItem.GetByID(dbc, itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: dataset item", dberrors.ErrNotFound)
	}
	media, err := s.r.Media.GetByID(dbc, item.MediaID)
	if err != nil {
		return nil, fmt.Errorf("%w: media", dberrors.ErrNotFound)
	}
	if media.Kind != types.MediaKindImage {
		return nil, fmt.Errorf("%w: overlay preview is only available for images", dberrors.ErrInputInvalid)
	}

	annotations, err := s.r.Annotation.ListByItem(dbc, itemID)
	if err != nil {
		return nil, err
	}
	boxes := make([]thumbnail.Box, 0, len(annotations))
	for _, a := range annotations {
		if a.Type != types.AnnotationBBox {
			continue
		}
		box, dErr := geometry.DecodeBBox([]byte(a.Geometry))
		if dErr != nil {
			continue
		}
		boxes = append(boxes, thumbnail.Box{BBox: box, Label: a.Label})
	}

	rd, err := s.store.Get(ctx, media.StoragePath)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	raw, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	return thumbnail.RenderAnnotationOverlay(raw, boxes)
}

// AddAnnotation appends one annotation and, the first time an item
// receives one, flips DatasetItem.Annotated and bumps
// Dataset.AnnotatedCount (spec.md §3 annotation counts are derived,
// never user-editable).
func (s *DatasetService) AddAnnotation(ctx context.Context, itemID, createdByID uuid.UUID, annType types.AnnotationType, label string, geometry datatypes.JSON, source types.AnnotationSource, confidence float64) (*types.Annotation, error) {
	var created *types.Annotation
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: txx}
		item, err := s.r.DatasetItem.GetByID(dbc, itemID)
		if err != nil {
			return fmt.Errorf("%w: dataset item", dberrors.ErrNotFound)
		}
		if confidence == 0 {
			confidence = 1
		}
		ann, err := s.r.Annotation.Create(dbc, &types.Annotation{
			ID:            uuid.New(),
			DatasetItemID: itemID,
			Type:          annType,
			Label:         label,
			Confidence:    confidence,
			Geometry:      geometry,
			Source:        source,
			CreatedByID:   createdByID,
		})
		if err != nil {
			return err
		}
		if !item.Annotated {
			if err := s.r.DatasetItem.UpdateFields(dbc, itemID, map[string]interface{}{"annotated": true}); err != nil {
				return err
			}
			if err := s.r.Dataset.UpdateFields(dbc, item.DatasetID, map[string]interface{}{
				"annotated_count": gorm.Expr("annotated_count + 1"),
			}); err != nil {
				return err
			}
		}
		created = ann
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// BulkAddAnnotations implements `POST /datasets/{did}/items/{iid}/annotations/bulk`
// as a sequence of AddAnnotation calls inside one transaction, so a
// malformed entry leaves no partial annotations behind.
func (s *DatasetService) BulkAddAnnotations(ctx context.Context, itemID, createdByID uuid.UUID, entries []AnnotationInput) ([]*types.Annotation, error) {
	var created []*types.Annotation
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		txSvc := *s
		txSvc.db = txx
		for _, e := range entries {
			ann, err := txSvc.AddAnnotation(ctx, itemID, createdByID, e.Type, e.Label, e.Geometry, e.Source, e.Confidence)
			if err != nil {
				return err
			}
			created = append(created, ann)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AnnotationInput is one entry of a bulk-annotate request body.
type AnnotationInput struct {
	Type       types.AnnotationType
	Label      string
	Geometry   datatypes.JSON
	Source     types.AnnotationSource
	Confidence float64
}

func (s *DatasetService) ListAnnotations(ctx context.Context, itemID uuid.UUID) ([]*types.Annotation, error) {
	return s.r.Annotation.ListByItem(dbctx.Context{Ctx: ctx}, itemID)
}

// datasetLabels decodes Dataset.LabelSchema into export.LabelDef, the
// only shape the export package understands (it has no ORM dependency).
func datasetLabels(schema datatypes.JSON) ([]export.LabelDef, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	var defs []types.LabelDef
	if err := json.Unmarshal(schema, &defs); err != nil {
		return nil, fmt.Errorf("dataset: decode label schema: %w", err)
	}
	out := make([]export.LabelDef, 0, len(defs))
	for _, d := range defs {
		out = append(out, export.LabelDef{ID: d.ID, Name: d.Name})
	}
	return out, nil
}

// versionStats is the Stats JSON column's shape: per-split item counts
// and a total annotation count, the minimum a consumer needs to sanity
// check a snapshot without re-querying (spec.md §3).
type versionStats struct {
	ItemsBySplit      map[string]int `json:"items_by_split"`
	TotalItems        int            `json:"total_items"`
	TotalAnnotations  int            `json:"total_annotations"`
}

// versionTagPattern is the full allowed alphabet for a version tag
// (spec.md §3). The tag becomes a path segment of the export artifact
// (storage.ExportPath), so anything outside it — separators, "..",
// whitespace — must be rejected before a path is ever built.
var versionTagPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// CreateVersion snapshots every item (across all splits) into an
// immutable manifest, optionally renders an export file through
// internal/export, and persists it via the content store. Tag
// collisions are rejected (spec.md §3 "write-once").
func (s *DatasetService) CreateVersion(ctx context.Context, datasetID uuid.UUID, tag string, exportFormat string) (*types.DatasetVersion, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("%w: tag is required", dberrors.ErrInputInvalid)
	}
	if !versionTagPattern.MatchString(tag) {
		return nil, fmt.Errorf("%w: tag must match %s", dberrors.ErrInputInvalid, versionTagPattern)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if existing, err := s.r.DatasetVersion.GetByTag(dbc, datasetID, tag); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: version tag already exists", dberrors.ErrConflict)
	}

	dataset, err := s.r.Dataset.GetByID(dbc, datasetID)
	if err != nil {
		return nil, fmt.Errorf("%w: dataset", dberrors.ErrNotFound)
	}
	items, err := s.r.DatasetItem.ListByDataset(dbc, datasetID, "")
	if err != nil {
		return nil, err
	}
	annotations, err := s.r.Annotation.ListByDataset(dbc, datasetID)
	if err != nil {
		return nil, err
	}
	byItem := map[uuid.UUID][]*types.Annotation{}
	for _, a := range annotations {
		byItem[a.DatasetItemID] = append(byItem[a.DatasetItemID], a)
	}

	manifest := make([]types.ManifestEntry, 0, len(items))
	stats := versionStats{ItemsBySplit: map[string]int{}}
	rows := make([]export.ItemRow, 0, len(items))
	for _, item := range items {
		manifest = append(manifest, types.ManifestEntry{ItemID: item.ID, MediaID: item.MediaID, Split: item.Split})
		stats.ItemsBySplit[string(item.Split)]++
		stats.TotalItems++

		row := export.ItemRow{MediaID: item.MediaID, Split: string(item.Split)}
		for _, a := range byItem[item.ID] {
			row.Annotations = append(row.Annotations, export.AnnotationRow{
				Type:       strings.ToLower(string(a.Type)),
				Label:      a.Label,
				Confidence: a.Confidence,
				Geometry:   a.Geometry,
			})
			stats.TotalAnnotations++
		}
		rows = append(rows, row)
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("dataset: marshal manifest: %w", err)
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("dataset: marshal stats: %w", err)
	}

	version := &types.DatasetVersion{
		ID:        uuid.New(),
		DatasetID: datasetID,
		Tag:       tag,
		Manifest:  manifestJSON,
		Stats:     statsJSON,
	}

	if exportFormat != "" {
		path, err := s.renderExport(ctx, dataset, datasetID, tag, exportFormat, rows)
		if err != nil {
			return nil, err
		}
		version.ExportPath = path
		version.ExportFmt = exportFormat
	}

	return s.r.DatasetVersion.Create(dbc, version)
}

func (s *DatasetService) renderExport(ctx context.Context, dataset *types.Dataset, datasetID uuid.UUID, tag, format string, rows []export.ItemRow) (string, error) {
	labels, err := datasetLabels(dataset.LabelSchema)
	if err != nil {
		return "", err
	}

	var body string
	switch strings.ToLower(format) {
	case "coco":
		doc, err := export.COCO(dataset.Name, tag, labels, rows)
		if err != nil {
			return "", err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("dataset: marshal coco: %w", err)
		}
		body = string(raw)
	case "yolo":
		body, err = export.YOLO(labels, rows)
		if err != nil {
			return "", err
		}
	case "csv":
		body, err = export.CSV(rows)
		if err != nil {
			return "", err
		}
	case "jsonl":
		body, err = export.JSONL(rows)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", dberrors.ErrInputInvalid, format)
	}

	return s.store.PutExport(ctx, dataset.ProjectID.String(), datasetID.String(), tag, strings.ToLower(format), strings.NewReader(body))
}

func (s *DatasetService) ListVersions(ctx context.Context, datasetID uuid.UUID) ([]*types.DatasetVersion, error) {
	return s.r.DatasetVersion.ListByDataset(dbctx.Context{Ctx: ctx}, datasetID)
}

func (s *DatasetService) GetVersion(ctx context.Context, id uuid.UUID) (*types.DatasetVersion, error) {
	return s.r.DatasetVersion.GetByID(dbctx.Context{Ctx: ctx}, id)
}

// ExportURL signs a temporary URL for a version's rendered export file.
func (s *DatasetService) ExportURL(ctx context.Context, version *types.DatasetVersion, ttl time.Duration) (string, error) {
	if version.ExportPath == "" {
		return "", fmt.Errorf("%w: version has no export", dberrors.ErrNotFound)
	}
	return s.store.SignedURL(ctx, version.ExportPath, ttl)
}

func (s *DatasetService) Update(ctx context.Context, dataset *types.Dataset) error {
	return s.r.Dataset.Update(dbctx.Context{Ctx: ctx}, dataset)
}

func (s *DatasetService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.r.Dataset.Delete(dbctx.Context{Ctx: ctx}, id)
}
