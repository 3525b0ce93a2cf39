package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aineshm/searchlayer/internal/domain"
)

func TestTokenizeQuery_DedupesCapsAndLowercases(t *testing.T) {
	tokens := tokenizeQuery("Fusion fusion RRF rank Rank rank rank aa bb cc dd ee ff gg hh ii jj kk ll mm nn oo")
	assert.LessOrEqual(t, len(tokens), maxQueryTerms)
	assert.Equal(t, []string{"fusion", "rrf", "rank", "aa", "bb", "cc", "dd", "ee", "ff", "gg", "hh", "ii"}, tokens)
}

func TestTokenizeQuery_Empty(t *testing.T) {
	assert.Empty(t, tokenizeQuery("! ? ."))
}

type fakeLexicalIndex struct {
	hits []LexicalHit
}

func (f *fakeLexicalIndex) Search(ctx context.Context, expression string, topK int) ([]LexicalHit, error) {
	return f.hits, nil
}

type fakeChunkFetcher struct {
	rows map[string]ChunkRow
}

func (f *fakeChunkFetcher) ChunksByIDs(ctx context.Context, ids []string) ([]ChunkRow, error) {
	out := make([]ChunkRow, 0, len(ids))
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func TestLexicalRetriever_EmptyQueryShortCircuits(t *testing.T) {
	r := NewLexicalRetriever(&fakeLexicalIndex{}, &fakeChunkFetcher{})
	got, err := r.Retrieve(context.Background(), "???", 8)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLexicalRetriever_MapsHitsToScoredChunks(t *testing.T) {
	idx := &fakeLexicalIndex{hits: []LexicalHit{{ChunkID: "c1", Score: 1.5}}}
	fetcher := &fakeChunkFetcher{rows: map[string]ChunkRow{
		"c1": {ChunkID: "c1", DocID: "d1", ChunkText: "reciprocal rank fusion merges lists", SourcePath: "notes.md"},
	}}
	r := NewLexicalRetriever(idx, fetcher)
	got, err := r.Retrieve(context.Background(), "reciprocal rank fusion", 8)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ChunkID)
	assert.Equal(t, 1.5, got[0].Score)
	assert.Equal(t, "notes.md", got[0].SourcePath)
}

func TestFuser_PrefersInBothListsOnTie(t *testing.T) {
	f := NewFuser(60)
	lexical := []domain.ScoredChunk{{ChunkID: "a", Score: 2.0}, {ChunkID: "b", Score: 1.0}}
	vector := []domain.ScoredChunk{{ChunkID: "b", Score: 0.9}}
	fused := f.Fuse(lexical, vector, 0.5, 8)
	require.Len(t, fused, 2)
	assert.Equal(t, "b", fused[0].ChunkID)
}

func TestFuser_EmptyVectorFallsBackToLexicalOnly(t *testing.T) {
	f := NewFuser(60)
	lexical := []domain.ScoredChunk{{ChunkID: "a", Score: 2.0}}
	fused := f.Fuse(lexical, nil, 0.5, 8)
	require.Len(t, fused, 1)
	assert.Equal(t, "a", fused[0].ChunkID)
}

func TestFuser_ClampsWeightOutOfRange(t *testing.T) {
	f := NewFuser(60)
	lexical := []domain.ScoredChunk{{ChunkID: "a", Score: 1.0}}
	vector := []domain.ScoredChunk{{ChunkID: "b", Score: 1.0}}
	fused := f.Fuse(lexical, vector, 5.0, 8)
	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].ChunkID)
}

func TestFuser_TopKTruncates(t *testing.T) {
	f := NewFuser(60)
	lexical := []domain.ScoredChunk{{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}}
	fused := f.Fuse(lexical, nil, 1.0, 2)
	assert.Len(t, fused, 2)
}
