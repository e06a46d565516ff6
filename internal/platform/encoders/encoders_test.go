package encoders

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManager_CLIP_CollapsesConcurrentColdStart(t *testing.T) {
	var loads int32
	mgr := NewManager(
		func() (ImageEmbedder, error) {
			atomic.AddInt32(&loads, 1)
			return &FakeImageEmbedder{Dim: 512}, nil
		},
		func() (ImageEmbedder, error) { return &FakeImageEmbedder{Dim: 768}, nil },
		func() (Captioner, error) { return &FakeCaptioner{}, nil },
		func() (TextEmbedder, error) { return &FakeTextEmbedder{Dim: 384}, nil },
		func() (CLIPTextEmbedder, error) { return &FakeCLIPTextEmbedder{Dim: 512}, nil },
	)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.CLIP(context.Background())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, loads)
}

func TestManager_WarmLoadsAllFour(t *testing.T) {
	mgr := NewManager(
		func() (ImageEmbedder, error) { return &FakeImageEmbedder{Dim: 512}, nil },
		func() (ImageEmbedder, error) { return &FakeImageEmbedder{Dim: 768}, nil },
		func() (Captioner, error) { return &FakeCaptioner{}, nil },
		func() (TextEmbedder, error) { return &FakeTextEmbedder{Dim: 384}, nil },
		func() (CLIPTextEmbedder, error) { return &FakeCLIPTextEmbedder{Dim: 512}, nil },
	)
	require.NoError(t, mgr.Warm(context.Background()))

	clip, err := mgr.CLIP(context.Background())
	require.NoError(t, err)
	vec, err := clip.EmbedImage(context.Background(), []byte("fixture"))
	require.NoError(t, err)
	require.Len(t, vec, 512)
}

func TestFakeImageEmbedder_IsDeterministic(t *testing.T) {
	e := &FakeImageEmbedder{Dim: 16}
	a, err := e.EmbedImage(context.Background(), []byte("same-bytes"))
	require.NoError(t, err)
	b, err := e.EmbedImage(context.Background(), []byte("same-bytes"))
	require.NoError(t, err)
	require.Equal(t, a, b)
}
