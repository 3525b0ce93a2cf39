package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"

	"github.com/aineshm/searchlayer/internal/lexutil"
)

// Weights for vector generation: tokens dominate, character n-grams add a
// softer signal for near-misses on misspellings or partial matches.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// commonStopWords are excluded from the token pass only (n-grams still see
// the full normalized text), mirroring the teacher's split between a
// filtered token signal and an unfiltered character signal.
var commonStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true,
	"in": true, "on": true, "for": true, "and": true, "or": true,
	"is": true, "are": true, "was": true, "were": true, "this": true,
	"that": true, "it": true, "be": true, "been": true,
}

// StaticEmbedder produces deterministic, hash-based embeddings with no
// network access and no model download: tokens and character n-grams are
// hashed into fixed buckets of a vector of the configured dimension, then
// normalized to unit length. Grounded on original_source/embeddings.py's
// "hash" backend (a seeded deterministic vector per text) and the teacher's
// StaticEmbedder/StaticEmbedder768, consolidated here into one type
// parametrized by dimension instead of two near-duplicate structs.
type StaticEmbedder struct {
	dim       int
	modelName string
}

// NewStaticEmbedder creates a static embedder for the given dimension. A
// zero dim falls back to DefaultDimensions.
func NewStaticEmbedder(dim int) *StaticEmbedder {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &StaticEmbedder{dim: dim, modelName: fmt.Sprintf("static-%d", dim)}
}

// Embed implements retrieval.Embedder.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dim), nil
	}
	return normalizeVector(e.generateVector(trimmed)), nil
}

// EmbedBatch embeds each text independently; provided for ingestion-time
// callers that want one call per chunk batch rather than per chunk.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		results[i] = vec
	}
	return results, nil
}

// Dim implements retrieval.Embedder.
func (e *StaticEmbedder) Dim() int { return e.dim }

// ModelName implements retrieval.Embedder.
func (e *StaticEmbedder) ModelName() string { return e.modelName }

func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, e.dim)

	for _, token := range filterStopWords(tokenize(text)) {
		vector[hashToIndex(token, e.dim)] += tokenWeight
	}

	for _, ngram := range extractNgrams(normalizeForNgrams(text), ngramSize) {
		vector[hashToIndex(ngram, e.dim)] += ngramWeight
	}

	return vector
}

func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range lexutil.SplitIdentifier(word) {
			lower := strings.ToLower(t)
			if lower != "" {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

func filterStopWords(tokens []string) []string {
	var filtered []string
	for _, t := range tokens {
		if !commonStopWords[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}
