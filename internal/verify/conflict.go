package verify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aineshm/searchlayer/internal/domain"
)

// numberFactRe is the exact conflict-detection pattern from
// original_source/verification.py::_NUMBER_FACT_RE, which spec §4.6 gate 5
// only gives the shape of ("subject (is|are|was|were|has|have) NUMBER").
var numberFactRe = regexp.MustCompile(`(?i)\b([a-z][a-z0-9\s_-]{2,40})\s+(?:is|are|was|were|has|have)\s+([0-9]{1,4})\b`)

// detectConflicts scans chunk text for subject/number facts and reports any
// subject mapped to two or more distinct numbers across the corpus (spec
// §4.6 gate 5, §8 "Conflict symmetry").
func detectConflicts(chunks []domain.ScoredChunk) []string {
	facts := make(map[string]map[string]map[string]bool)
	for _, chunk := range chunks {
		for _, m := range numberFactRe.FindAllStringSubmatch(chunk.ChunkText, -1) {
			subject := strings.Join(strings.Fields(strings.ToLower(m[1])), " ")
			value := m[2]
			if facts[subject] == nil {
				facts[subject] = make(map[string]map[string]bool)
			}
			if facts[subject][value] == nil {
				facts[subject][value] = make(map[string]bool)
			}
			facts[subject][value][chunk.SourcePath] = true
		}
	}

	subjects := make([]string, 0, len(facts))
	for subject := range facts {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	var conflicts []string
	for _, subject := range subjects {
		values := facts[subject]
		if len(values) <= 1 {
			continue
		}
		valueKeys := make([]string, 0, len(values))
		for v := range values {
			valueKeys = append(valueKeys, v)
		}
		sort.Strings(valueKeys)

		parts := make([]string, 0, len(valueKeys))
		for _, v := range valueKeys {
			sources := make([]string, 0, len(values[v]))
			for src := range values[v] {
				sources = append(sources, src)
			}
			sort.Strings(sources)
			parts = append(parts, fmt.Sprintf("%s (%s)", v, strings.Join(sources, ", ")))
		}
		conflicts = append(conflicts, fmt.Sprintf("Conflict for '%s': %s", subject, strings.Join(parts, " vs ")))
	}
	return conflicts
}

var claimTokenRe = regexp.MustCompile(`[a-z0-9]+`)

// claimSupportScore implements spec §4.6 gate 3's claim-support metric: the
// best significant-token overlap ratio over the claim's citations, with a
// critical-token all-or-nothing rule — any token >=6 chars or fully numeric
// that is absent from the supporting chunk zeroes that citation's support.
func claimSupportScore(claimText string, chunkByID map[string]domain.ScoredChunk, citations []domain.Citation) float64 {
	tokens := claimTokenRe.FindAllString(strings.ToLower(claimText), -1)
	var significant []string
	for _, tok := range tokens {
		if len(tok) > 2 {
			significant = append(significant, tok)
		}
	}
	if len(significant) == 0 {
		return 0
	}

	best := 0.0
	for _, citation := range citations {
		chunk, ok := chunkByID[citation.ChunkID]
		if !ok {
			continue
		}
		chunkLower := strings.ToLower(chunk.ChunkText)

		hasCriticalGap := false
		overlap := 0
		for _, tok := range significant {
			present := strings.Contains(chunkLower, tok)
			if present {
				overlap++
			}
			if isCriticalToken(tok) && !present {
				hasCriticalGap = true
			}
		}
		if hasCriticalGap {
			continue
		}
		ratio := float64(overlap) / float64(len(significant))
		if ratio > best {
			best = ratio
		}
	}
	return best
}

func isCriticalToken(token string) bool {
	if len(token) >= 6 {
		return true
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(token) > 0
}
