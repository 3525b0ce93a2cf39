package orchestrator

import (
	"sort"
	"strings"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/router"
)

// rerankEligible reports whether the given intent is one the spec's
// reranker stage runs for (§4.7: "synthesis, task, compare, timeline").
func rerankEligible(intent router.PrimaryIntent) bool {
	switch intent {
	case router.IntentSynthesis, router.IntentTask, router.IntentCompare, router.IntentTimeline:
		return true
	default:
		return false
	}
}

func wordSet(text string) map[string]bool {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// rerank applies the deterministic lexical-overlap boost from
// original_source/rerank.py, generalized to the spec's fixed coefficient
// (§4.7: "score += 0.2 * |query_tokens ∩ chunk_tokens|"), then re-sorts by
// the adjusted score with chunk id as the deterministic tiebreak.
func rerank(query string, chunks []domain.ScoredChunk) []domain.ScoredChunk {
	queryTokens := wordSet(query)
	out := make([]domain.ScoredChunk, len(chunks))
	copy(out, chunks)
	for i, c := range out {
		overlap := 0
		for tok := range wordSet(c.ChunkText) {
			if queryTokens[tok] {
				overlap++
			}
		}
		out[i].Score = c.Score + float64(overlap)*0.2
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}
