package embed

import (
	"os"
	"strings"

	"github.com/aineshm/searchlayer/internal/retrieval"
)

// NewEmbedder constructs the configured retrieval.Embedder. dim is the
// embed_dim config value (spec §6); cacheSize sizes the LRU cache wrapper
// (a cacheSize <= 0 means DefaultEmbeddingCacheSize), and the wrapper is left
// out only when SEARCHLAYER_EMBED_CACHE turns the cache off. Grounded on the teacher's NewEmbedder factory, collapsed from a
// multi-provider fallback chain (Ollama/MLX/static) down to the single
// backend original_source/embeddings.py names "hash" — the spec's
// local-first, deterministic embedding requirement rules out the
// teacher's network-dependent backends entirely (see DESIGN.md).
func NewEmbedder(dim int, cacheSize int) retrieval.Embedder {
	var embedder retrieval.Embedder = NewStaticEmbedder(dim)

	if !isCacheDisabled() {
		embedder = NewCachedEmbedder(embedder, cacheSize)
	}

	return embedder
}

// isCacheDisabled checks the SEARCHLAYER_EMBED_CACHE environment override.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("SEARCHLAYER_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}
