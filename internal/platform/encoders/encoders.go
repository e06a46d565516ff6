// Package encoders is the ML-provider seam: process-wide singleton clients
// for the CLIP, DINO, VLM, and TEXT models (spec.md §5 "Shared resources").
// First use triggers load and may take tens of seconds; concurrent first
// callers are collapsed onto a single load via singleflight, matching the
// "lazy initialization with a double-checked guarded section" directive in
// spec.md §9. Grounded on the teacher's internal/platform/openai.Client
// (single HTTP-backed provider interface per model concern) generalized to
// four narrower model roles.
package encoders

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ImageEmbedder produces a raw (not yet normalized) embedding for an image.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
}

// TextEmbedder produces a raw embedding for a text string.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// CLIPTextEmbedder produces a raw embedding for a text string in CLIP's
// joint image/text space (spec.md §4.F: "encode query with CLIP text
// encoder" against the CLIP collection, as distinct from the TEXT
// collection's sentence encoder).
type CLIPTextEmbedder interface {
	EmbedCLIPText(ctx context.Context, text string) ([]float32, error)
}

// Captioner runs a free-form prompt against an image and returns text.
// Used for both the caption/tag prompts and any custom prompt template
// (spec.md 4.D VLM captioning).
type Captioner interface {
	Generate(ctx context.Context, image []byte, prompt string) (string, error)
}

// Factory funcs build one singleton's underlying client on first use.
type (
	CLIPFactory     func() (ImageEmbedder, error)
	CLIPTextFactory func() (CLIPTextEmbedder, error)
	DINOFactory     func() (ImageEmbedder, error)
	VLMFactory      func() (Captioner, error)
	TextFactory     func() (TextEmbedder, error)
)

// Manager lazily constructs and caches the five process-wide client
// singletons (CLIP image, CLIP text, DINO, VLM, TEXT). Safe for
// concurrent use; concurrent first-callers for the
// same singleton block on one underlying load via singleflight.
type Manager struct {
	newCLIP     CLIPFactory
	newCLIPText CLIPTextFactory
	newDINO     DINOFactory
	newVLM      VLMFactory
	newText     TextFactory

	mu       sync.RWMutex
	clip     ImageEmbedder
	clipText CLIPTextEmbedder
	dino     ImageEmbedder
	vlm      Captioner
	text     TextEmbedder

	sf singleflight.Group
}

func NewManager(clipF CLIPFactory, dinoF DINOFactory, vlmF VLMFactory, textF TextFactory, clipTextF CLIPTextFactory) *Manager {
	return &Manager{newCLIP: clipF, newDINO: dinoF, newVLM: vlmF, newText: textF, newCLIPText: clipTextF}
}

func (m *Manager) CLIP(ctx context.Context) (ImageEmbedder, error) {
	if c := m.peekCLIP(); c != nil {
		return c, nil
	}
	v, err, _ := m.sf.Do("clip", func() (any, error) {
		if c := m.peekCLIP(); c != nil {
			return c, nil
		}
		c, err := m.newCLIP()
		if err != nil {
			return nil, fmt.Errorf("encoders: load clip: %w", err)
		}
		m.mu.Lock()
		m.clip = c
		m.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ImageEmbedder), nil
}

func (m *Manager) DINO(ctx context.Context) (ImageEmbedder, error) {
	if c := m.peekDINO(); c != nil {
		return c, nil
	}
	v, err, _ := m.sf.Do("dino", func() (any, error) {
		if c := m.peekDINO(); c != nil {
			return c, nil
		}
		c, err := m.newDINO()
		if err != nil {
			return nil, fmt.Errorf("encoders: load dino: %w", err)
		}
		m.mu.Lock()
		m.dino = c
		m.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ImageEmbedder), nil
}

func (m *Manager) VLM(ctx context.Context) (Captioner, error) {
	if c := m.peekVLM(); c != nil {
		return c, nil
	}
	v, err, _ := m.sf.Do("vlm", func() (any, error) {
		if c := m.peekVLM(); c != nil {
			return c, nil
		}
		c, err := m.newVLM()
		if err != nil {
			return nil, fmt.Errorf("encoders: load vlm: %w", err)
		}
		m.mu.Lock()
		m.vlm = c
		m.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Captioner), nil
}

func (m *Manager) Text(ctx context.Context) (TextEmbedder, error) {
	if c := m.peekText(); c != nil {
		return c, nil
	}
	v, err, _ := m.sf.Do("text", func() (any, error) {
		if c := m.peekText(); c != nil {
			return c, nil
		}
		c, err := m.newText()
		if err != nil {
			return nil, fmt.Errorf("encoders: load text: %w", err)
		}
		m.mu.Lock()
		m.text = c
		m.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(TextEmbedder), nil
}

func (m *Manager) CLIPText(ctx context.Context) (CLIPTextEmbedder, error) {
	if c := m.peekCLIPText(); c != nil {
		return c, nil
	}
	v, err, _ := m.sf.Do("clip_text", func() (any, error) {
		if c := m.peekCLIPText(); c != nil {
			return c, nil
		}
		c, err := m.newCLIPText()
		if err != nil {
			return nil, fmt.Errorf("encoders: load clip text: %w", err)
		}
		m.mu.Lock()
		m.clipText = c
		m.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(CLIPTextEmbedder), nil
}

func (m *Manager) peekCLIPText() CLIPTextEmbedder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clipText
}

func (m *Manager) peekCLIP() ImageEmbedder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clip
}

func (m *Manager) peekDINO() ImageEmbedder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dino
}

func (m *Manager) peekVLM() Captioner {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vlm
}

func (m *Manager) peekText() TextEmbedder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text
}

// Warm pre-loads all four singletons concurrently, for deployments that
// want to eat the cold-start cost at boot instead of on first request.
func (m *Manager) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := m.CLIP(gctx); return err })
	g.Go(func() error { _, err := m.CLIPText(gctx); return err })
	g.Go(func() error { _, err := m.DINO(gctx); return err })
	g.Go(func() error { _, err := m.VLM(gctx); return err })
	g.Go(func() error { _, err := m.Text(gctx); return err })
	return g.Wait()
}
