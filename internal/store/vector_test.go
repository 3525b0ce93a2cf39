package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWIndex_SearchFindsNearestVector(t *testing.T) {
	idx := NewHNSWIndex(DefaultVectorStoreConfig(3))
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []string{"c1", "c2"}, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}))

	hits, err := idx.Search(ctx, []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
}

func TestHNSWIndex_SizeReflectsDeletes(t *testing.T) {
	idx := NewHNSWIndex(DefaultVectorStoreConfig(2))
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}}))
	assert.Equal(t, 2, idx.Size())

	require.NoError(t, idx.Delete(ctx, []string{"a"}))
	assert.Equal(t, 1, idx.Size())
}

func TestHNSWIndex_DimensionMismatchErrors(t *testing.T) {
	idx := NewHNSWIndex(DefaultVectorStoreConfig(4))
	err := idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 2}})
	require.Error(t, err)
	var dimErr ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
}

func TestHNSWIndex_EmptyGraphSearchReturnsEmpty(t *testing.T) {
	idx := NewHNSWIndex(DefaultVectorStoreConfig(3))
	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
