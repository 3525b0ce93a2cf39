// Package store implements the content-addressed document/chunk store (spec
// §3, §4.9): a SQLite-backed relational layer for documents, chunks,
// embeddings, index manifests, and run records, plus the lexical (bleve)
// and vector (hnsw) index backends the retrievers search against.
package store

import "fmt"

// BM25Config configures the lexical index's scoring and tokenization.
type BM25Config struct {
	// K1 is the term frequency saturation parameter (default: 1.2).
	K1 float64

	// B is the length normalization parameter (default: 0.75).
	B float64

	// StopWords is a list of words excluded from indexing.
	StopWords []string

	// MinTokenLength is minimum token length to index (default: 2).
	MinTokenLength int
}

// DefaultBM25Config returns default lexical index configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultStopWords,
		MinTokenLength: 2,
	}
}

// DefaultStopWords is the default exclusion list for the lexical tokenizer.
var DefaultStopWords = []string{
	"the", "a", "an", "of", "to", "in", "on", "for", "and", "or",
	"is", "are", "was", "were", "be", "been", "it", "this", "that",
}

// VectorStoreConfig configures the vector index.
type VectorStoreConfig struct {
	// Dimensions is the embedding dimension the index was built for.
	Dimensions int

	// Metric is the distance metric: "cos" (cosine) or "l2" (euclidean).
	Metric string

	// M is HNSW max connections per layer.
	M int

	// EfSearch is HNSW query-time search width.
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for the vector index.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   20,
	}
}

// ErrDimensionMismatch indicates a vector dimension mismatch between the
// configured index and an inserted or queried vector.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (rebuild the index)", e.Expected, e.Got)
}
