package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aineshm/searchlayer/internal/lexutil"
)

func TestStaticEmbedder_DeterministicAcrossCalls(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "reciprocal rank fusion merges candidate lists")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "reciprocal rank fusion merges candidate lists")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
}

func TestStaticEmbedder_UnitNorm(t *testing.T) {
	e := NewStaticEmbedder(32)
	v, err := e.Embed(context.Background(), "some chunk of text about verification gates")
	require.NoError(t, err)

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSquares, 1e-5)
}

func TestStaticEmbedder_EmptyTextReturnsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(16)
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, v, 16)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStaticEmbedder_DifferentTextDifferentVector(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "the quarterly budget review was postponed")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "photosynthesis converts light into chemical energy")
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
}

func TestStaticEmbedder_DimAndModelName(t *testing.T) {
	e := NewStaticEmbedder(128)
	assert.Equal(t, 128, e.Dim())
	assert.Equal(t, "static-128", e.ModelName())
}

func TestStaticEmbedder_ZeroDimFallsBackToDefault(t *testing.T) {
	e := NewStaticEmbedder(0)
	assert.Equal(t, DefaultDimensions, e.Dim())
}

func TestStaticEmbedder_EmbedBatchMatchesIndividualEmbed(t *testing.T) {
	e := NewStaticEmbedder(32)
	ctx := context.Background()
	texts := []string{"alpha beta gamma", "delta epsilon zeta"}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestSplitIdentifier_CamelAndSnakeCase(t *testing.T) {
	assert.Equal(t, []string{"get", "User", "By", "Id"}, lexutil.SplitIdentifier("getUserById"))
	assert.Equal(t, []string{"fetch", "all", "items"}, lexutil.SplitIdentifier("fetch_all_items"))
}
