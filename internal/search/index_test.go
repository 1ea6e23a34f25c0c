package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_MatchIsCaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Put(ctx, KindMovie, "a", map[string]string{"title": "The Matrix", "director": "Wachowski"}))
	require.NoError(t, idx.Put(ctx, KindMovie, "b", map[string]string{"title": "Matrix Reloaded", "director": "Wachowski"}))
	require.NoError(t, idx.Put(ctx, KindMovie, "c", map[string]string{"title": "Alien", "director": "Scott"}))
	require.NoError(t, idx.Put(ctx, KindTrack, "t", map[string]string{"title": "Matrix theme"}))

	ids, err := idx.Match(ctx, KindMovie, "title", "MATRIX")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = idx.Match(ctx, KindMovie, "director", "scot")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids)
}

func TestMemoryIndex_PutReplacesAndRemoveDrops(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Put(ctx, KindMovie, "a", map[string]string{"title": "Old"}))
	require.NoError(t, idx.Put(ctx, KindMovie, "a", map[string]string{"title": "New"}))

	ids, _ := idx.Match(ctx, KindMovie, "title", "old")
	assert.Empty(t, ids)

	require.NoError(t, idx.Remove(ctx, KindMovie, "a"))
	ids, _ = idx.Match(ctx, KindMovie, "title", "new")
	assert.Empty(t, ids)
}

func TestDocIDAndEscaping(t *testing.T) {
	assert.Equal(t, "movie:42", docID(KindMovie, "42"))
	assert.Equal(t, `a\*b\?c`, wildcardEscaper.Replace("a*b?c"))
}
