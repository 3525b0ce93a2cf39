package retrieval

import (
	"context"
	"regexp"
	"strings"

	"github.com/aineshm/searchlayer/internal/domain"
)

// maxQueryTerms bounds the rewritten query expression (spec §4.2: "cap at 12").
const maxQueryTerms = 12

var queryTokenRe = regexp.MustCompile(`[A-Za-z0-9]{2,}`)

// tokenizeQuery extracts word/digit tokens of at least 2 chars, dedupes
// while preserving first-seen order, and caps the result at 12 terms.
func tokenizeQuery(query string) []string {
	matches := queryTokenRe.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]bool, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, tok := range matches {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
		if len(tokens) == maxQueryTerms {
			break
		}
	}
	return tokens
}

// buildExpression renders tokens as an OR-of-quoted-terms full-text query.
func buildExpression(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + tok + `"`
	}
	return strings.Join(quoted, " OR ")
}

// LexicalRetriever is the spec §4.2 full-text retrieval stage.
type LexicalRetriever struct {
	index   LexicalIndex
	chunks  ChunkFetcher
}

// NewLexicalRetriever builds a LexicalRetriever over a full-text index and
// a chunk fetcher used to materialize hits into ScoredChunks.
func NewLexicalRetriever(index LexicalIndex, chunks ChunkFetcher) *LexicalRetriever {
	return &LexicalRetriever{index: index, chunks: chunks}
}

// Retrieve runs the query rewriter and full-text search, returning top-k
// chunks ordered by descending (already-negated) BM25 score. An empty
// token set yields an empty result without touching the index.
func (l *LexicalRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.ScoredChunk, error) {
	tokens := tokenizeQuery(query)
	if len(tokens) == 0 {
		return []domain.ScoredChunk{}, nil
	}
	expr := buildExpression(tokens)
	if expr == "" {
		return []domain.ScoredChunk{}, nil
	}

	hits, err := l.index.Search(ctx, expr, topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	ids := make([]string, len(hits))
	scoreByID := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
		scoreByID[h.ChunkID] = h.Score
	}

	rows, err := l.chunks.ChunksByIDs(ctx, ids)
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
