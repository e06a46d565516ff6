package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/platform/ctxutil"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

var pointIDNamespace = uuid.MustParse("2f49f3a0-6e41-4c9a-9f2e-2a5a9b2f9a10")

func deterministicUUID(pointID string) uuid.UUID {
	return uuid.NewSHA1(pointIDNamespace, []byte(pointID))
}

const maxErrorBodyBytes = 1024

// QdrantConfig points a qdrantIndex at a running Qdrant instance. Collection
// names are prefixed so the same Qdrant deployment can host multiple
// environments without clashing (dev/staging namespacing), matching the
// teacher qdrant client's NamespacePrefix idea but applied to collection
// names since here each Collection already IS a fixed, dimension-typed
// namespace.
type QdrantConfig struct {
	URL    string
	Prefix string
}

type qdrantIndex struct {
	log     *logger.Logger
	cfg     QdrantConfig
	baseURL string
	prefix  string
	http    *http.Client
}

// NewQdrantIndex constructs the HTTP-based vector index client. It does not
// eagerly verify readiness; call EnsureCollections during startup.
func NewQdrantIndex(log *logger.Logger, cfg QdrantConfig) (Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("vectorindex: QDRANT_URL is required")
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "media"
	}
	return &qdrantIndex{
		log:     log.With("component", "VectorIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(url, "/"),
		prefix:  prefix,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (q *qdrantIndex) collectionName(c Collection) string {
	return q.prefix + "_" + string(c)
}

func (q *qdrantIndex) EnsureCollections(ctx context.Context) error {
	for _, c := range AllCollections {
		if err := q.ensureOneWithRetry(ctx, c); err != nil {
			return fmt.Errorf("ensure collection %q: %w", c, err)
		}
	}
	return nil
}

// ensureOneWithRetry retries transient failures with exponential backoff
// (base 500ms, x2, 5 attempts) per spec.md 4.B.
func (q *qdrantIndex) ensureOneWithRetry(ctx context.Context, c Collection) error {
	delay := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err := q.ensureOne(ctx, c); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (q *qdrantIndex) ensureOne(ctx context.Context, c Collection) error {
	name := q.collectionName(c)
	var existing struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := q.doJSON(ctx, "describe_collection", http.MethodGet, "/collections/"+name, nil, &existing)
	if err == nil {
		return nil // already exists; idempotent
	}
	var opErr *httpStatusError
	if !errors.As(err, &opErr) || opErr.StatusCode != http.StatusNotFound {
		return err
	}

	createReq := map[string]any{
		"vectors": map[string]any{
			"size":     c.Dim(),
			"distance": "Cosine",
		},
	}
	if err := q.doJSON(ctx, "create_collection", http.MethodPut, "/collections/"+name, createReq, nil); err != nil {
		return err
	}
	for _, field := range []string{"project_id", "media_id", "media_type"} {
		idxReq := map[string]any{"field_name": field, "field_schema": "keyword"}
		_ = q.doJSON(ctx, "create_index", http.MethodPut, "/collections/"+name+"/index", idxReq, nil)
	}
	return nil
}

func (q *qdrantIndex) Upsert(ctx context.Context, collection Collection, point Point) error {
	return q.UpsertBatch(ctx, collection, []Point{point})
}

func (q *qdrantIndex) UpsertBatch(ctx context.Context, collection Collection, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	payloads := make([]map[string]any, 0, len(points))
	for _, p := range points {
		if err := ValidateVector(collection, p.Vector); err != nil {
			return err
		}
		if strings.TrimSpace(p.PointID) == "" {
			return fmt.Errorf("vectorindex: point id is required")
		}
		payload := clonePayload(p.Payload)
		payload["_point_id"] = p.PointID
		payloads = append(payloads, map[string]any{
			"id":      qdrantPointUUID(p.PointID),
			"vector":  p.Vector,
			"payload": payload,
		})
	}
	req := map[string]any{"points": payloads}
	// last-writer-wins on point_id is Qdrant's native upsert semantics.
	return q.doJSON(ctx, "upsert", http.MethodPut, "/collections/"+q.collectionName(collection)+"/points?wait=true", req, nil)
}

func (q *qdrantIndex) Search(ctx context.Context, collection Collection, vector []float32, opts SearchOptions) ([]Hit, error) {
	if err := ValidateVector(collection, vector); err != nil {
		return nil, err
	}
	req := q.searchBody(opts)
	req["vector"] = vector
	return q.runSearch(ctx, collection, "search", "/collections/"+q.collectionName(collection)+"/points/search", req)
}

func (q *qdrantIndex) Recommend(ctx context.Context, collection Collection, pointID string, opts SearchOptions) ([]Hit, error) {
	if strings.TrimSpace(pointID) == "" {
		return nil, fmt.Errorf("vectorindex: point id required for recommend")
	}
	req := q.searchBody(opts)
	req["positive"] = []string{qdrantPointUUID(pointID)}
	return q.runSearch(ctx, collection, "recommend", "/collections/"+q.collectionName(collection)+"/points/recommend", req)
}

func (q *qdrantIndex) searchBody(opts SearchOptions) map[string]any {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	body := map[string]any{
		"limit":        limit,
		"offset":       opts.Offset,
		"with_payload": true,
		"with_vector":  false,
	}
	if opts.ScoreThreshold > 0 {
		body["score_threshold"] = opts.ScoreThreshold
	}
	must := []any{}
	if strings.TrimSpace(opts.ProjectID) != "" {
		must = append(must, matchCond("project_id", opts.ProjectID))
	}
	if strings.TrimSpace(opts.MediaType) != "" {
		must = append(must, matchCond("media_type", opts.MediaType))
	}
	if len(must) > 0 {
		body["filter"] = map[string]any{"must": must}
	}
	return body
}

func matchCond(key, value string) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}

type qdrantResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func (q *qdrantIndex) runSearch(ctx context.Context, collection Collection, op, path string, body map[string]any) ([]Hit, error) {
	var raw []qdrantResultItem
	if err := q.doJSON(ctx, op, http.MethodPost, path, body, &raw); err != nil {
		return nil, err
	}
	out := make([]Hit, 0, len(raw))
	for _, item := range raw {
		pointID, _ := item.Payload["_point_id"].(string)
		if pointID == "" {
			continue
		}
		out = append(out, Hit{PointID: pointID, Score: item.Score, Payload: item.Payload})
	}
	// Ranking determinism: score desc, point_id asc tiebreaker.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].PointID < out[j].PointID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// DeleteByMedia sweeps all three collections. Per-collection errors are
// logged and suppressed so the call always completes (spec 4.B).
func (q *qdrantIndex) DeleteByMedia(ctx context.Context, mediaID string) error {
	for _, c := range AllCollections {
		req := map[string]any{
			"filter": map[string]any{"must": []any{matchCond("media_id", mediaID)}},
		}
		path := "/collections/" + q.collectionName(c) + "/points/delete?wait=true"
		if err := q.doJSON(ctx, "delete_by_media", http.MethodPost, path, req, nil); err != nil {
			q.log.Warn("delete_by_media failed for collection", "collection", c, "media_id", mediaID, "error", err)
		}
	}
	return nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("qdrant http status=%d body=%q", e.StatusCode, e.Body)
}

func (q *qdrantIndex) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("vectorindex %s: encode request: %w", op, err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, q.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("vectorindex %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.http.Do(req)
	if err != nil {
		return classifyHTTPErr(op, err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes))
	if readErr != nil {
		return fmt.Errorf("vectorindex %s: read response: %w", op, readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpStatusError{StatusCode: resp.StatusCode, Body: truncateBody(raw)}
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("vectorindex %s: decode envelope: %w", op, err)
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("vectorindex %s: decode result: %w", op, err)
	}
	return nil
}

func classifyHTTPErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("vectorindex %s: timeout: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("vectorindex %s: timeout: %w", op, err)
	}
	return fmt.Errorf("vectorindex %s: transport: %w", op, err)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func clonePayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// qdrantPointUUID maps an arbitrary point_id string onto a deterministic
// UUID (Qdrant point ids must be UUIDs or unsigned ints); the caller-facing
// point_id scheme (spec.md §3/§6) is preserved in the payload's _point_id
// field and used for every read.
func qdrantPointUUID(pointID string) string {
	return deterministicUUID(pointID).String()
}
