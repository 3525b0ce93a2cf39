package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/retrieval"
)

// HybridRetriever runs the lexical and vector retrievers concurrently and
// fuses their results, the unit the Orchestrator re-invokes once per
// searched query (initial query plus, at most, one follow-up hop).
type HybridRetriever struct {
	Lexical *retrieval.LexicalRetriever
	Vector  *retrieval.VectorRetriever
	Fuser   *retrieval.Fuser
}

// retrievalOutcome is one call's chunks plus the per-stage timings the
// orchestrator's tool trace reports (spec §6 tool_trace.retrieval).
type retrievalOutcome struct {
	Lexical          []domain.ScoredChunk
	Vector           []domain.ScoredChunk
	Hybrid           []domain.ScoredChunk
	LexicalLatencyMS float64
	VectorLatencyMS  float64
	HybridLatencyMS  float64
	SkippedVector    bool
}

// run executes lexical and (unless skipVector) vector retrieval concurrently
// via errgroup, then fuses; when vector retrieval is skipped the fused
// result is simply the lexical list, matching original_source's
// "hybrid = fuse_hybrid(...) if vector else lexical" fallback.
func (h *HybridRetriever) run(ctx context.Context, query string, topK int, skipVector bool, lexicalWeight float64) (retrievalOutcome, error) {
	out := retrievalOutcome{SkippedVector: skipVector}
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		start := time.Now()
		hits, err := h.Lexical.Retrieve(gctx, query, topK)
		out.LexicalLatencyMS = float64(time.Since(start).Microseconds()) / 1000
		if err != nil {
			return err
		}
		out.Lexical = hits
		return nil
	})

	if !skipVector {
		group.Go(func() error {
			start := time.Now()
			hits, err := h.Vector.Retrieve(gctx, query, topK)
			out.VectorLatencyMS = float64(time.Since(start).Microseconds()) / 1000
			if err != nil {
				return err
			}
			out.Vector = hits
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return retrievalOutcome{}, err
	}

	start := time.Now()
	if len(out.Vector) > 0 {
		out.Hybrid = h.Fuser.Fuse(out.Lexical, out.Vector, lexicalWeight, topK)
	} else {
		out.Hybrid = out.Lexical
	}
	out.HybridLatencyMS = float64(time.Since(start).Microseconds()) / 1000
	return out, nil
}

// mergeChunks unions two chunk lists by id, keeping the higher score for
// duplicates, and returns them sorted by descending score with chunk id as
// the deterministic tiebreak (spec §4.7 multi-hop merge;
// original_source/orchestration.py::_merge_chunks).
func mergeChunks(primary, secondary []domain.ScoredChunk) []domain.ScoredChunk {
	byID := make(map[string]domain.ScoredChunk, len(primary)+len(secondary))
	order := make([]string, 0, len(primary)+len(secondary))
	for _, c := range primary {
		byID[c.ChunkID] = c
		order = append(order, c.ChunkID)
	}
	for _, c := range secondary {
		existing, ok := byID[c.ChunkID]
		if !ok {
			order = append(order, c.ChunkID)
			byID[c.ChunkID] = c
			continue
		}
		if c.Score > existing.Score {
			byID[c.ChunkID] = c
		}
	}

	seen := make(map[string]bool, len(order))
	merged := make([]domain.ScoredChunk, 0, len(byID))
	for _, id := range order {
		if seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, byID[id])
	}
	sortChunksDescending(merged)
	return merged
}
