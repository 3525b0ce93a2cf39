package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/output"
	"github.com/aineshm/searchlayer/internal/retrieval"
)

func newIndexCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the lexical and vector indices over ingested chunks",
		Long: `index rebuilds the full-text index and embeds every stored chunk
into the vector index, then activates a new manifest binding the vector
snapshot to the current chunk set (spec §4.9 Store, §3 Index Manifest).

Vector retrieval is disabled until an index has been built at least once,
and is disabled again whenever the chunk set changes underneath a stale
manifest (spec §8 "Manifest safety").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, rebuild)
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild_index", false, "rebuild the lexical index from scratch instead of incrementally")

	return cmd
}

func runIndex(cmd *cobra.Command, rebuild bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	chunks, err := a.store.AllChunksOrdered(ctx)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}

	if rebuild {
		ids, err := a.lex.AllIDs()
		if err != nil {
			return fmt.Errorf("list lexical index ids: %w", err)
		}
		if len(ids) > 0 {
			if err := a.lex.Delete(ctx, ids); err != nil {
				return fmt.Errorf("clear lexical index: %w", err)
			}
		}
	}

	chunkIDs := make([]string, len(chunks))
	chunkTexts := make([]string, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ChunkID
		chunkTexts[i] = c.ChunkText
	}
	if err := a.lex.IndexChunks(ctx, chunkIDs, chunkTexts); err != nil {
		return fmt.Errorf("index chunks lexically: %w", err)
	}

	embedder := a.embedder()
	batchSize := cfg.Embedding.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	embeddings := make([]domain.Embedding, 0, len(chunks))
	vectorIDs := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batchTexts := chunkTexts[start:end]
		batchVecs, err := embedBatch(ctx, embedder, batchTexts)
		if err != nil {
			return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		for i, vec := range batchVecs {
			chunk := chunks[start+i]
			embeddings = append(embeddings, domain.Embedding{
				VectorID:  start + i,
				ChunkID:   chunk.ChunkID,
				ModelName: embedder.ModelName(),
				Dim:       embedder.Dim(),
				Vector:    vec,
			})
			vectorIDs = append(vectorIDs, chunk.ChunkID)
			vectors = append(vectors, vec)
		}
	}

	if err := a.store.ReplaceEmbeddings(ctx, embedder.ModelName(), embeddings); err != nil {
		return fmt.Errorf("persist embeddings: %w", err)
	}

	if len(vectorIDs) > 0 {
		if err := a.vec.Add(ctx, vectorIDs, vectors); err != nil {
			return fmt.Errorf("build vector index: %w", err)
		}
	}
	if err := a.vec.Save(a.vecPath); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}

	snapshotHash, err := a.store.ChunkSnapshotHash(ctx)
	if err != nil {
		return fmt.Errorf("compute chunk snapshot hash: %w", err)
	}

	manifest, err := a.store.ActivateManifest(ctx, domain.IndexManifest{
		ModelName:         embedder.ModelName(),
		Dim:               embedder.Dim(),
		ChunkCount:        len(chunks),
		ChunkSnapshotHash: snapshotHash,
		IndexFilePath:     a.vecPath,
	})
	if err != nil {
		return fmt.Errorf("activate manifest: %w", err)
	}

	summary := domain.IndexSummary{
		ChunksIndexedLexical: len(chunks),
		ChunksEmbedded:       len(embeddings),
		VectorIndexSize:      a.vec.Size(),
		Manifest:             manifest,
	}

	out := output.New(cmd.OutOrStdout())
	out.Success(fmt.Sprintf("indexed %d chunk(s), vector index size %d", summary.ChunksIndexedLexical, summary.VectorIndexSize))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// embedBatch embeds one batch of chunk texts sequentially. The Embedder
// interface is one-text-at-a-time; runIndex collects every batch's vectors
// and persists them in a single ReplaceEmbeddings call after the last batch.
func embedBatch(ctx context.Context, embedder retrieval.Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := embedder.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
