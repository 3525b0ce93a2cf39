package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/router"
)

func TestSynthesize_SingleSourceFactClaim(t *testing.T) {
	chunk := domain.ScoredChunk{
		ChunkID:    "c1",
		DocID:      "d1",
		Score:      1.0,
		ChunkText:  "Reciprocal rank fusion merges candidate lists from different retrievers. It was introduced for combining search engines.",
		SourcePath: "notes.md",
	}
	draft := Synthesize("what is reciprocal rank fusion", []domain.ScoredChunk{chunk}, router.IntentFact, DefaultThresholds())
	require.Len(t, draft.Claims, 1)
	claim := draft.Claims[0]
	assert.Equal(t, "c1", claim.ClaimID)
	assert.Contains(t, claim.Text, "Reciprocal rank fusion merges candidate lists")
	require.Len(t, claim.Citations, 1)
	assert.Equal(t, "notes.md", claim.Citations[0].SourcePath)
}

func TestSynthesize_MultiSourcePreferenceForSynthesis(t *testing.T) {
	sentence := "Reciprocal rank fusion merges candidate lists from multiple retrieval sources reliably."
	chunkA := domain.ScoredChunk{ChunkID: "a", DocID: "da", Score: 1.0, ChunkText: sentence, SourcePath: "a.md"}
	chunkB := domain.ScoredChunk{ChunkID: "b", DocID: "db", Score: 1.0, ChunkText: sentence, SourcePath: "b.md"}
	draft := Synthesize("reciprocal rank fusion sources", []domain.ScoredChunk{chunkA, chunkB}, router.IntentSynthesis, DefaultThresholds())
	require.NotEmpty(t, draft.Claims)
	assert.GreaterOrEqual(t, draft.Claims[0].SourceCount, 2)
}

func TestSynthesize_NoEvidenceFallsBackToPrefix(t *testing.T) {
	chunk := domain.ScoredChunk{ChunkID: "c1", DocID: "d1", Score: 0.1, ChunkText: "Completely unrelated filler content about gardening and soil composition for home vegetable beds.", SourcePath: "x.md"}
	draft := Synthesize("kepler 186f orbital period", []domain.ScoredChunk{chunk}, router.IntentFact, DefaultThresholds())
	require.Len(t, draft.Claims, 1)
	assert.Equal(t, 0.0, draft.Claims[0].OverlapScore)
}

func TestSynthesize_EmptyChunksYieldsNoClaims(t *testing.T) {
	draft := Synthesize("anything", nil, router.IntentFact, DefaultThresholds())
	assert.Empty(t, draft.Claims)
	assert.Equal(t, "", draft.AnswerText)
}

func TestSplitSentences_DropsShortFragments(t *testing.T) {
	sentences := splitSentences("Hi. This is a properly long sentence that should survive filtering.")
	require.Len(t, sentences, 1)
	assert.Contains(t, sentences[0], "properly long sentence")
}

func TestNormalizeToken_StemsSuffixes(t *testing.T) {
	assert.Equal(t, "dependency", normalizeToken("dependencies"))
	assert.Equal(t, "retriev", normalizeToken("retrieving"))
	assert.Equal(t, "merg", normalizeToken("merged"))
}

func TestClaimSignature_Deterministic(t *testing.T) {
	a := claimSignature("Reciprocal rank fusion merges candidate lists.")
	b := claimSignature("Reciprocal rank fusion merges candidate lists.")
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}
