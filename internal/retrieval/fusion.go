package retrieval

import (
	"sort"

	"github.com/aineshm/searchlayer/internal/domain"
)

// DefaultRRFConstant is the standard RRF smoothing parameter (spec §4.4
// default, matching the teacher's DefaultRRFConstant).
const DefaultRRFConstant = 60

// Fuser combines lexical and vector results with Reciprocal Rank Fusion,
// generalizing the teacher's RRFFusion from a fixed BM25/Semantic weight
// pair to the single adjustable w_lex the spec names.
type Fuser struct {
	RRFConstant int
}

// NewFuser builds a Fuser with the given rrf_k, defaulting to 60 if k<=0.
func NewFuser(rrfK int) *Fuser {
	if rrfK <= 0 {
		rrfK = DefaultRRFConstant
	}
	return &Fuser{RRFConstant: rrfK}
}

type fusedEntry struct {
	chunk       domain.ScoredChunk
	rrfScore    float64
	lexicalRank int
	vectorRank  int
	inBoth      bool
}

// Fuse implements spec §4.4: score(c) = w_lex/(k+rank_lex) + (1-w_lex)/(k+rank_vec),
// with a missing rank contributing zero rather than a penalty term, and
// ties broken by (in-both-lists, lexical score, chunk id) for determinism.
// The lexical payload is preferred when a chunk appears in both lists.
func (f *Fuser) Fuse(lexical, vector []domain.ScoredChunk, lexicalWeight float64, topK int) []domain.ScoredChunk {
	if lexicalWeight < 0 {
		lexicalWeight = 0
	}
	if lexicalWeight > 1 {
		lexicalWeight = 1
	}
	vectorWeight := 1 - lexicalWeight

	entries := make(map[string]*fusedEntry, len(lexical)+len(vector))

	for rank, c := range lexical {
		e := entries[c.ChunkID]
		if e == nil {
			e = &fusedEntry{chunk: c}
			entries[c.ChunkID] = e
		}
		e.lexicalRank = rank + 1
		e.rrfScore += lexicalWeight / float64(f.RRFConstant+rank+1)
	}
	for rank, c := range vector {
		e := entries[c.ChunkID]
		if e == nil {
			e = &fusedEntry{chunk: c}
			entries[c.ChunkID] = e
		} else if e.lexicalRank > 0 {
			e.inBoth = true
		}
		e.vectorRank = rank + 1
		e.rrfScore += vectorWeight / float64(f.RRFConstant+rank+1)
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := entries[ids[i]], entries[ids[j]]
		if a.rrfScore != b.rrfScore {
			return a.rrfScore > b.rrfScore
		}
		if a.inBoth != b.inBoth {
			return a.inBoth
		}
		if a.chunk.Score != b.chunk.Score {
			return a.chunk.Score > b.chunk.Score
		}
		return ids[i] < ids[j]
	})
	if topK > 0 && len(ids) > topK {
		ids = ids[:topK]
	}

	result := make([]domain.ScoredChunk, 0, len(ids))
	for _, id := range ids {
		e := entries[id]
		chunk := e.chunk
		chunk.Score = e.rrfScore
		result = append(result, chunk)
	}
	return result
}
