// Package retrieval implements the Lexical Retriever, Vector Retriever, and
// Hybrid Fuser (spec §4.2-4.4): turning a query into ranked ScoredChunks,
// generalizing the teacher's internal/search engine away from a single
// bundled Engine into three composable stages the Orchestrator drives.
package retrieval

import (
	"context"

	"github.com/aineshm/searchlayer/internal/domain"
)

// LexicalHit is one row returned by a full-text index search, BM25 distance
// already negated so higher is better (spec §4.2: "report as positive
// scores, negate the index's BM25").
type LexicalHit struct {
	ChunkID string
	Score   float64
}

// LexicalIndex is the capability a full-text backend must expose.
type LexicalIndex interface {
	Search(ctx context.Context, expression string, topK int) ([]LexicalHit, error)
}

// VectorHit is one row returned by an ANN search over the vector index.
type VectorHit struct {
	ChunkID string
	Score   float32
}

// VectorIndex is the capability a dense ANN backend must expose.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, topK int) ([]VectorHit, error)
	Size() int
}

// Embedder is the pure text -> unit-norm vector capability (spec §6).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
	ModelName() string
}

// ManifestSource supplies what the Vector Retriever needs to decide whether
// the active manifest is safe to serve from (spec §4.3).
type ManifestSource interface {
	ActiveManifest(ctx context.Context) (*domain.IndexManifest, error)
	EmbeddingCount(ctx context.Context, modelName string) (int, error)
	CurrentChunkSnapshotHash(ctx context.Context) (string, error)
}

// ChunkRow is a Chunk joined with its parent Document's source path, the
// shape both retrievers need to materialize a ScoredChunk.
type ChunkRow struct {
	ChunkID    string
	DocID      string
	ChunkText  string
	SourcePath string
	Page       *int
}

// ChunkFetcher resolves chunk ids to their stored, document-joined rows,
// preserving caller order (spec §4.9 store contract: "fetch chunks by ids
// (preserving caller order)").
type ChunkFetcher interface {
	ChunksByIDs(ctx context.Context, ids []string) ([]ChunkRow, error)
}
