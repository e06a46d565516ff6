package vectorindex

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force, in-process Index used by tests and local
// development (no Qdrant dependency). Cosine similarity is computed
// directly against unit-normalized vectors already enforced by Upsert.
type MemoryIndex struct {
	mu   sync.RWMutex
	data map[Collection]map[string]Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{data: make(map[Collection]map[string]Point)}
}

func (m *MemoryIndex) EnsureCollections(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range AllCollections {
		if _, ok := m.data[c]; !ok {
			m.data[c] = make(map[string]Point)
		}
	}
	return nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, collection Collection, point Point) error {
	return m.UpsertBatch(ctx, collection, []Point{point})
}

func (m *MemoryIndex) UpsertBatch(ctx context.Context, collection Collection, points []Point) error {
	for _, p := range points {
		if err := ValidateVector(collection, p.Vector); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]Point)
	}
	for _, p := range points {
		cp := p
		cp.Payload = clonePayload(p.Payload)
		m.data[collection][p.PointID] = cp // last-writer-wins
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, collection Collection, vector []float32, opts SearchOptions) ([]Hit, error) {
	if err := ValidateVector(collection, vector); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []Hit
	for id, p := range m.data[collection] {
		if !matchesFilter(p.Payload, opts) {
			continue
		}
		score := cosine(vector, p.Vector)
		if opts.ScoreThreshold > 0 && score < opts.ScoreThreshold {
			continue
		}
		hits = append(hits, Hit{PointID: id, Score: score, Payload: p.Payload})
	}
	return paginate(hits, opts), nil
}

func (m *MemoryIndex) Recommend(ctx context.Context, collection Collection, pointID string, opts SearchOptions) ([]Hit, error) {
	m.mu.RLock()
	seed, ok := m.data[collection][pointID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	hits, err := m.Search(ctx, collection, seed.Vector, SearchOptions{
		ProjectID:      opts.ProjectID,
		MediaType:      opts.MediaType,
		Limit:          opts.Limit + 1,
		Offset:         opts.Offset,
		ScoreThreshold: opts.ScoreThreshold,
	})
	if err != nil {
		return nil, err
	}
	out := hits[:0:0]
	for _, h := range hits {
		if h.PointID == pointID {
			continue
		}
		out = append(out, h)
		if len(out) >= opts.Limit && opts.Limit > 0 {
			break
		}
	}
	return out, nil
}

func (m *MemoryIndex) DeleteByMedia(ctx context.Context, mediaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, coll := range m.data {
		for id, p := range coll {
			if v, _ := p.Payload["media_id"].(string); v == mediaID {
				delete(coll, id)
			}
		}
	}
	return nil
}

func matchesFilter(payload map[string]any, opts SearchOptions) bool {
	if opts.ProjectID != "" {
		if v, _ := payload["project_id"].(string); v != opts.ProjectID {
			return false
		}
	}
	if opts.MediaType != "" {
		if v, _ := payload["media_type"].(string); v != opts.MediaType {
			return false
		}
	}
	return true
}

func paginate(hits []Hit, opts SearchOptions) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].PointID < hits[j].PointID
		}
		return hits[i].Score > hits[j].Score
	})
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	start := opts.Offset
	if start > len(hits) {
		return []Hit{}
	}
	end := start + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[start:end]
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
