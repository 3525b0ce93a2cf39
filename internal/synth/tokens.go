package synth

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const minSentenceLen = 24

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "how": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "to": true, "was": true, "what": true, "when": true,
	"where": true, "which": true, "with": true,
}

// tokenize extracts the case-folded [a-z0-9]+ token set from text.
func tokenize(text string) map[string]bool {
	matches := tokenRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(matches))
	for _, m := range matches {
		set[m] = true
	}
	return set
}

// splitSentences splits on terminal punctuation followed by whitespace or
// on newline runs, dropping fragments shorter than 24 chars — a
// lookbehind-free rendition of `(?<=[.!?])\s+|\n+` (Go's regexp has no
// lookbehind support).
func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder
	runes := []rune(text)
	n := len(runes)

	flush := func() {
		s := strings.TrimSpace(sb.String())
		sb.Reset()
		if len([]rune(s)) >= minSentenceLen {
			sentences = append(sentences, s)
		}
	}

	for i := 0; i < n; i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		sb.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= n || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return sentences
}

// normalizeToken applies the stemmed-prefix normalization used to derive
// claim signatures: short tokens pass through, plurals/gerunds/past-tense
// suffixes are stripped, and anything still long is truncated to 6 chars.
func normalizeToken(token string) string {
	if len(token) <= 4 {
		return token
	}
	if strings.HasSuffix(token, "ies") && len(token) > 5 {
		return token[:len(token)-3] + "y"
	}
	if strings.HasSuffix(token, "ing") && len(token) > 6 {
		return token[:len(token)-3]
	}
	if strings.HasSuffix(token, "ed") && len(token) > 5 {
		return token[:len(token)-2]
	}
	if strings.HasSuffix(token, "s") && len(token) > 4 {
		return token[:len(token)-1]
	}
	if len(token) > 6 {
		return token[:6]
	}
	return token
}

// semanticTokens returns the normalized, non-stopword tokens of length >= 3,
// used for both claim signatures and candidate grouping.
func semanticTokens(sentence string) map[string]bool {
	matches := tokenRe.FindAllString(strings.ToLower(sentence), -1)
	set := make(map[string]bool, len(matches))
	for _, m := range matches {
		if stopwords[m] || len(m) < 3 {
			continue
		}
		set[normalizeToken(m)] = true
	}
	return set
}

// claimSignature derives a stable grouping key from a sentence's semantic
// tokens: each token truncated to 5 chars, deduped, sorted, capped at 12.
func claimSignature(sentence string) string {
	tokens := semanticTokens(sentence)
	if len(tokens) == 0 {
		return ""
	}
	deduped := make(map[string]bool, len(tokens))
	for tok := range tokens {
		short := tok
		if len(tok) > 5 {
			short = tok[:5]
		}
		deduped[short] = true
	}
	sorted := make([]string, 0, len(deduped))
	for tok := range deduped {
		sorted = append(sorted, tok)
	}
	sort.Strings(sorted)
	if len(sorted) > 12 {
		sorted = sorted[:12]
	}
	return strings.Join(sorted, " ")
}

func intersectionCount(a, b map[string]bool) int {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	count := 0
	for tok := range small {
		if large[tok] {
			count++
		}
	}
	return count
}

func unionCount(a, b map[string]bool) int {
	union := make(map[string]bool, len(a)+len(b))
	for tok := range a {
		union[tok] = true
	}
	for tok := range b {
		union[tok] = true
	}
	return len(union)
}
