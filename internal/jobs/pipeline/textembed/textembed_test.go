package textembed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := ChunkText("a short sentence.", 512)
	require.Equal(t, []string{"a short sentence."}, chunks)
}

func TestChunkText_CutsAtSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 10) + ". " + strings.Repeat("b", 600)
	chunks := ChunkText(text, 20)
	require.True(t, len(chunks) >= 2)
	require.True(t, strings.HasSuffix(chunks[0], "."))
}

func TestChunkText_HardCutWhenNoBoundary(t *testing.T) {
	text := strings.Repeat("x", 1000)
	chunks := ChunkText(text, 100)
	require.Equal(t, 10, len(chunks))
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 100)
	}
}

func TestChunkText_Empty(t *testing.T) {
	require.Nil(t, ChunkText("   ", 512))
}
