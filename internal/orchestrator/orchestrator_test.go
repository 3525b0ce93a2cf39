package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/retrieval"
	"github.com/aineshm/searchlayer/internal/router"
)

type fakeLexicalIndex struct {
	hits []retrieval.LexicalHit
}

func (f *fakeLexicalIndex) Search(ctx context.Context, expression string, topK int) ([]retrieval.LexicalHit, error) {
	return f.hits, nil
}

type fakeChunkFetcher struct {
	rows map[string]retrieval.ChunkRow
}

func (f *fakeChunkFetcher) ChunksByIDs(ctx context.Context, ids []string) ([]retrieval.ChunkRow, error) {
	out := make([]retrieval.ChunkRow, 0, len(ids))
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeVectorIndex struct{}

func (f *fakeVectorIndex) Search(ctx context.Context, vector []float32, topK int) ([]retrieval.VectorHit, error) {
	return nil, nil
}
func (f *fakeVectorIndex) Size() int { return 0 }

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) { return nil, nil }
func (f *fakeEmbedder) Dim() int                                                  { return 8 }
func (f *fakeEmbedder) ModelName() string                                        { return "fake" }

type fakeManifestSource struct{}

func (f *fakeManifestSource) ActiveManifest(ctx context.Context) (*domain.IndexManifest, error) {
	return nil, nil
}
func (f *fakeManifestSource) EmbeddingCount(ctx context.Context, modelName string) (int, error) {
	return 0, nil
}
func (f *fakeManifestSource) CurrentChunkSnapshotHash(ctx context.Context) (string, error) {
	return "", nil
}

func newTestOrchestrator(hits []retrieval.LexicalHit, rows map[string]retrieval.ChunkRow) *Orchestrator {
	lexical := retrieval.NewLexicalRetriever(&fakeLexicalIndex{hits: hits}, &fakeChunkFetcher{rows: rows})
	vector := retrieval.NewVectorRetriever(&fakeVectorIndex{}, &fakeEmbedder{}, &fakeManifestSource{}, &fakeChunkFetcher{rows: rows})
	fuser := retrieval.NewFuser(60)
	r := router.New(router.DefaultPolicy())
	o := New(r, &HybridRetriever{Lexical: lexical, Vector: vector, Fuser: fuser})
	o.Now = func() time.Time { return time.Unix(0, 0) }
	return o
}

func TestOrchestrator_SearchModeSkipsSynthesis(t *testing.T) {
	rows := map[string]retrieval.ChunkRow{
		"c1": {ChunkID: "c1", DocID: "d1", ChunkText: "reciprocal rank fusion merges candidate lists from retrievers", SourcePath: "notes.md"},
	}
	o := newTestOrchestrator([]retrieval.LexicalHit{{ChunkID: "c1", Score: 2.0}}, rows)
	result, err := o.Run(context.Background(), "what is reciprocal rank fusion", ModeSearch, Options{})
	require.NoError(t, err)
	assert.Nil(t, result.DraftAnswer)
	assert.Nil(t, result.Verification)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "c1", result.Chunks[0].ChunkID)
}

func TestOrchestrator_AnswerModeProducesSupportedVerdict(t *testing.T) {
	rows := map[string]retrieval.ChunkRow{
		"c1": {ChunkID: "c1", DocID: "d1", ChunkText: "Reciprocal rank fusion merges candidate lists from different retrievers reliably.", SourcePath: "notes.md"},
	}
	o := newTestOrchestrator([]retrieval.LexicalHit{{ChunkID: "c1", Score: 2.0}}, rows)
	result, err := o.Run(context.Background(), "what is reciprocal rank fusion", ModeAnswer, Options{})
	require.NoError(t, err)
	require.NotNil(t, result.DraftAnswer)
	require.NotNil(t, result.Verification)
	assert.Equal(t, domain.VerdictSupported, result.Verification.VerdictCode)
	assert.NotEmpty(t, result.DraftAnswer.Claims)
	assert.Contains(t, result.ToolTrace, "verification")
}

func TestOrchestrator_TopKOverrideIsApplied(t *testing.T) {
	rows := map[string]retrieval.ChunkRow{
		"c1": {ChunkID: "c1", DocID: "d1", ChunkText: "alpha beta gamma delta", SourcePath: "a.md"},
	}
	o := newTestOrchestrator([]retrieval.LexicalHit{{ChunkID: "c1", Score: 1.0}}, rows)
	topK := 3
	result, err := o.Run(context.Background(), "alpha beta", ModeSearch, Options{TopK: &topK})
	require.NoError(t, err)
	trace := result.ToolTrace["retrieval"].(map[string]any)
	assert.Equal(t, 3, trace["top_k"])
}

func TestEnforcePipelineBounds_ClampsAndZeroesRepairWhenNoHop(t *testing.T) {
	got := enforcePipelineBounds(router.PipelineSettings{AllowMultihop: 5, MaxRepairPasses: 5})
	assert.Equal(t, MaxHops, got.AllowMultihop)
	assert.Equal(t, MaxRepairs, got.MaxRepairPasses)

	got = enforcePipelineBounds(router.PipelineSettings{AllowMultihop: 0, MaxRepairPasses: 1})
	assert.Equal(t, 0, got.AllowMultihop)
	assert.Equal(t, 0, got.MaxRepairPasses)

	got = enforcePipelineBounds(router.PipelineSettings{AllowMultihop: 1, MaxRepairPasses: 9})
	assert.Equal(t, 1, got.AllowMultihop)
	assert.Equal(t, MaxRepairs, got.MaxRepairPasses)
}

func TestMergeChunks_KeepsHigherScorePerID(t *testing.T) {
	primary := []domain.ScoredChunk{{ChunkID: "a", Score: 1.0}, {ChunkID: "b", Score: 0.5}}
	secondary := []domain.ScoredChunk{{ChunkID: "a", Score: 2.0}, {ChunkID: "c", Score: 3.0}}
	merged := mergeChunks(primary, secondary)
	require.Len(t, merged, 3)
	assert.Equal(t, "c", merged[0].ChunkID)
	byID := map[string]float64{}
	for _, c := range merged {
		byID[c.ChunkID] = c.Score
	}
	assert.Equal(t, 2.0, byID["a"])
}

func TestProposeFollowupQuery_AddsNewTokensOnly(t *testing.T) {
	draft := &domain.DraftAnswer{Claims: []domain.Claim{{ClaimID: "c1", Text: "kepler 186f orbital period data is unverified in this corpus"}}}
	followup, ok := proposeFollowupQuery("kepler 186f", draft, []string{"kepler 186f orbital period data is unverified in this corpus"})
	require.True(t, ok)
	assert.Equal(t, "kepler 186f orbital period data unverified this corpus", followup)
}

func TestProposeFollowupQuery_NoNewTokensReturnsFalse(t *testing.T) {
	_, ok := proposeFollowupQuery("alpha beta", nil, nil)
	assert.False(t, ok)
}

func TestRerank_BoostsOverlapAndSortsDescending(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{ChunkID: "low", Score: 1.0, ChunkText: "totally unrelated filler text"},
		{ChunkID: "high", Score: 1.0, ChunkText: "reciprocal rank fusion query overlap"},
	}
	reranked := rerank("reciprocal rank fusion", chunks)
	assert.Equal(t, "high", reranked[0].ChunkID)
}

func TestRerankEligible_OnlyMultiSourceIntents(t *testing.T) {
	assert.True(t, rerankEligible(router.IntentSynthesis))
	assert.True(t, rerankEligible(router.IntentCompare))
	assert.False(t, rerankEligible(router.IntentLookup))
	assert.False(t, rerankEligible(router.IntentFact))
}
