package store

import (
	"regexp"
	"strings"

	"github.com/aineshm/searchlayer/internal/lexutil"
)

// tokenRegex matches alphanumeric runs, the first split pass before
// camelCase/snake_case decomposition.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// Tokenize splits text into lowercased tokens, decomposing camelCase and
// snake_case identifiers so notes mixing prose and code symbols index
// consistently. Tokens shorter than 2 characters are dropped.
func Tokenize(text string) []string {
	var tokens []string

	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range lexutil.SplitIdentifier(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}

	return tokens
}

// buildStopWordSet converts a stop word list to a lookup set.
func buildStopWordSet(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
