package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBleveIndex_SearchRanksMatchingChunk(t *testing.T) {
	idx, err := NewBleveIndex("", DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	ctx := context.Background()
	require.NoError(t, idx.IndexChunks(ctx, []string{"c1", "c2"}, []string{
		"reciprocal rank fusion merges candidate lists from retrievers",
		"the weather in the valley was mild this week",
	}))

	hits, err := idx.Search(ctx, "reciprocal rank fusion", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "c1", hits[0].ChunkID)
}

func TestBleveIndex_EmptyQueryReturnsEmpty(t *testing.T) {
	idx, err := NewBleveIndex("", DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	hits, err := idx.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBleveIndex_DeleteRemovesFromResults(t *testing.T) {
	idx, err := NewBleveIndex("", DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	ctx := context.Background()
	require.NoError(t, idx.IndexChunks(ctx, []string{"c1"}, []string{"alpha beta gamma"}))
	require.NoError(t, idx.Delete(ctx, []string{"c1"}))

	hits, err := idx.Search(ctx, "alpha", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTokenize_SplitsCamelAndSnakeCase(t *testing.T) {
	tokens := Tokenize("getUserById fetch_all_items HTTPHandler")
	assert.Contains(t, tokens, "get")
	assert.Contains(t, tokens, "user")
	assert.Contains(t, tokens, "by")
	assert.Contains(t, tokens, "id")
	assert.Contains(t, tokens, "fetch")
	assert.Contains(t, tokens, "all")
	assert.Contains(t, tokens, "items")
	assert.Contains(t, tokens, "http")
	assert.Contains(t, tokens, "handler")
}
