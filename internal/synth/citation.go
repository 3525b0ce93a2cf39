package synth

import (
	"strings"

	"github.com/aineshm/searchlayer/internal/domain"
)

// citationForSentence locates sentence within chunk.ChunkText and derives a
// Citation plus its span quality (spec §4.5 "Citation span derivation").
// When the sentence is not found verbatim, it falls back to a bounded
// prefix span with a reduced quality formula.
func citationForSentence(claimID, sentence string, chunk domain.ScoredChunk) (domain.Citation, float64) {
	haystack := strings.ToLower(chunk.ChunkText)
	needle := strings.ToLower(sentence)
	start := strings.Index(haystack, needle)

	if start < 0 {
		span := len(chunk.ChunkText)
		if want := maxInt(80, len(sentence)); want < span {
			span = want
		}
		spanText := strings.ToLower(safeSlice(chunk.ChunkText, 0, span))
		sentenceTokens := tokenize(sentence)
		overlap := float64(intersectionCount(sentenceTokens, tokenize(spanText))) / float64(maxInt(1, len(sentenceTokens)))
		ratio := minFloat(1.0, float64(span)/float64(maxInt(1, len(chunk.ChunkText))))
		quality := ratio*0.4 + overlap*0.4
		return domain.Citation{
			ClaimID:        claimID,
			ChunkID:        chunk.ChunkID,
			SourcePath:     chunk.SourcePath,
			Page:           chunk.Page,
			QuoteSpanStart: 0,
			QuoteSpanEnd:   span,
		}, quality
	}

	end := start + len(sentence)
	if end > len(chunk.ChunkText) {
		end = len(chunk.ChunkText)
	}
	spanLen := maxInt(1, end-start)
	spanText := strings.ToLower(safeSlice(chunk.ChunkText, start, end))
	sentenceTokens := tokenize(sentence)
	overlap := float64(intersectionCount(sentenceTokens, tokenize(spanText))) / float64(maxInt(1, len(sentenceTokens)))
	ratio := minFloat(1.0, float64(spanLen)/float64(maxInt(1, len(sentence))))
	quality := ratio*0.7 + overlap*0.3
	return domain.Citation{
		ClaimID:        claimID,
		ChunkID:        chunk.ChunkID,
		SourcePath:     chunk.SourcePath,
		Page:           chunk.Page,
		QuoteSpanStart: start,
		QuoteSpanEnd:   end,
	}, quality
}

func safeSlice(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		return ""
	}
	return s[start:end]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
