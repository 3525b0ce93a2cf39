package retrieval

import (
	"context"

	"github.com/aineshm/searchlayer/internal/domain"
)

// VectorRetriever is the spec §4.3 ANN retrieval stage. It refuses to serve
// whenever the active manifest does not provably match the current vector
// file and chunk set, degrading silently to an empty result so the Hybrid
// Fuser falls back to lexical-only (spec §8 "Manifest safety").
type VectorRetriever struct {
	index     VectorIndex
	embedder  Embedder
	manifests ManifestSource
	chunks    ChunkFetcher
}

// NewVectorRetriever builds a VectorRetriever over a vector index, embedder,
// manifest source, and chunk fetcher.
func NewVectorRetriever(index VectorIndex, embedder Embedder, manifests ManifestSource, chunks ChunkFetcher) *VectorRetriever {
	return &VectorRetriever{index: index, embedder: embedder, manifests: manifests, chunks: chunks}
}

// Retrieve embeds the query and searches the vector index, or returns an
// empty result if any of the manifest-safety preconditions from §4.3 fail.
func (v *VectorRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.ScoredChunk, error) {
	ok, err := v.safeToServe(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.ScoredChunk{}, nil
	}

	vec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := v.index.Search(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	ids := make([]string, 0, len(hits))
	scoreByID := make(map[string]float64, len(hits))
	for _, h := range hits {
		if h.ChunkID == "" {
			continue
		}
		ids = append(ids, h.ChunkID)
		scoreByID[h.ChunkID] = float64(h.Score)
	}
	if len(ids) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	rows, err := v.chunks.ChunksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]domain.ScoredChunk, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.ScoredChunk{
			ChunkID:    row.ChunkID,
			DocID:      row.DocID,
			Score:      scoreByID[row.ChunkID],
			ChunkText:  row.ChunkText,
			SourcePath: row.SourcePath,
			Page:       row.Page,
		})
	}
	return result, nil
}

// safeToServe implements the full precondition chain from §4.3: an active
// manifest must exist, must name this embedder's model and dim, and the
// embedding row count, index size, and manifest chunk count must all agree,
// and the live chunk snapshot hash must still equal the manifest's.
func (v *VectorRetriever) safeToServe(ctx context.Context) (bool, error) {
	manifest, err := v.manifests.ActiveManifest(ctx)
	if err != nil {
		return false, err
	}
	if manifest == nil || !manifest.Active {
		return false, nil
	}
	if manifest.ModelName != v.embedder.ModelName() || manifest.Dim != v.embedder.Dim() {
		return false, nil
	}

	embeddingCount, err := v.manifests.EmbeddingCount(ctx, v.embedder.ModelName())
	if err != nil {
		return false, err
	}
	if embeddingCount != manifest.ChunkCount || v.index.Size() != manifest.ChunkCount {
		return false, nil
	}

	snapshotHash, err := v.manifests.CurrentChunkSnapshotHash(ctx)
	if err != nil {
		return false, err
	}
	if snapshotHash != manifest.ChunkSnapshotHash {
		return false, nil
	}
	return true, nil
}
