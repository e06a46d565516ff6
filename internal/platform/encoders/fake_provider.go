package encoders

import (
	"context"
	"hash/fnv"
	"strings"
)

// FakeImageEmbedder produces a deterministic pseudo-embedding from the
// image bytes' hash, for tests and local development without a real model
// server. Not unit-normalized; callers normalize via vectorindex.Normalize
// like any other encoder output.
type FakeImageEmbedder struct {
	Dim int
}

func (f *FakeImageEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	return deterministicVector(image, f.Dim), nil
}

// FakeTextEmbedder mirrors FakeImageEmbedder for text input.
type FakeTextEmbedder struct {
	Dim int
}

func (f *FakeTextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return deterministicVector([]byte(text), f.Dim), nil
}

// FakeCLIPTextEmbedder mirrors FakeImageEmbedder for CLIP's text side.
type FakeCLIPTextEmbedder struct {
	Dim int
}

func (f *FakeCLIPTextEmbedder) EmbedCLIPText(ctx context.Context, text string) ([]float32, error) {
	return deterministicVector([]byte("clip:"+text), f.Dim), nil
}

// FakeCaptioner returns a fixed caption/tag string regardless of prompt,
// distinguishing caption-style prompts from tag-style ones by a simple
// substring check so pipeline tests can assert on both shapes.
type FakeCaptioner struct{}

func (f *FakeCaptioner) Generate(ctx context.Context, image []byte, prompt string) (string, error) {
	if strings.Contains(strings.ToLower(prompt), "tag") {
		return "outdoor, daytime, person", nil
	}
	return "a photo used in a test fixture", nil
}

func deterministicVector(seed []byte, dim int) []float32 {
	if dim <= 0 {
		dim = 8
	}
	out := make([]float32, dim)
	h := fnv.New64a()
	for i := 0; i < dim; i++ {
		h.Write(seed)
		h.Write([]byte{byte(i)})
		sum := h.Sum64()
		out[i] = float32(int64(sum%2000)-1000) / 1000.0
	}
	return out
}
