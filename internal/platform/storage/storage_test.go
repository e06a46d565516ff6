package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathConventions(t *testing.T) {
	require.Equal(t, "t1/m1.jpg", MediaPath("t1", "m1", "jpg"))
	require.Equal(t, "t1/m1.jpg", MediaPath("t1", "m1", ".jpg"))
	require.Equal(t, "t1/m1_thumb.jpg", ThumbnailPath("t1", "m1"))
	require.Equal(t, "t1/d1/v1.zip", ExportPath("t1", "d1", "v1", "zip"))
}

func TestMemoryStore_PutGetDeleteIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	path, err := s.Put(ctx, "t1", "m1", ".png", strings.NewReader("hello"), "image/png")
	require.NoError(t, err)
	require.Equal(t, "t1/m1.png", path)

	rc, err := s.Get(ctx, path)
	require.NoError(t, err)
	defer rc.Close()

	require.NoError(t, s.Delete(ctx, path))
	require.NoError(t, s.Delete(ctx, path)) // idempotent

	_, err = s.Get(ctx, path)
	require.True(t, IsNotFound(err))
}
