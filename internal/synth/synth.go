// Package synth implements the Extractive Synthesizer (spec §4.5): a pure,
// deterministic function from (query, chunks, intent) to a DraftAnswer of
// claims with citations, grounded on original_source/answering.py and
// carried into the teacher's idiom (explicit structs, no exceptions).
package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/router"
)

// Thresholds are the answering-stage floors from spec §6 "Answering
// thresholds", defaulted to original_source/config.py's values.
type Thresholds struct {
	MinTopicOverlap        int
	MinSupportability       float64
	MinCitationSpanQuality  float64
}

// DefaultThresholds returns the spec's documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTopicOverlap:       1,
		MinSupportability:      0.35,
		MinCitationSpanQuality: 0.40,
	}
}

// Synthesize runs the four-stage extractive pipeline from spec §4.5.
func Synthesize(query string, chunks []domain.ScoredChunk, intent router.PrimaryIntent, th Thresholds) domain.DraftAnswer {
	queryTokens := tokenize(query)
	topicalFloor := th.MinTopicOverlap
	if intent == router.IntentFact || intent == router.IntentOther || intent == router.IntentTask {
		if topicalFloor < 2 {
			topicalFloor = 2
		}
	}

	// Stage 1: candidate generation.
	var candidates []candidate
	for _, chunk := range chunks {
		for _, sentence := range splitSentences(chunk.ChunkText) {
			candidates = append(candidates, candidateStage(sentence, chunk, queryTokens))
		}
	}

	// Stage 2: topical alignment filter.
	topical := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if intersectionCount(c.sentenceTokens, queryTokens) >= topicalFloor {
			topical = append(topical, c)
		}
	}

	// Stage 3: supportability filter.
	supportable := make([]candidate, 0, len(topical))
	for _, c := range topical {
		if c.supportabilityScore >= th.MinSupportability {
			supportable = append(supportable, c)
		}
	}

	groups := groupCandidates(supportable)
	sort.SliceStable(groups, func(i, j int) bool {
		return groupLess(groups[j], groups[i])
	})

	claimCap := claimLimit(intent)
	orderedGroups := groups
	if prefersMultiSource(intent) {
		var multi, single [][]candidate
		for _, g := range groups {
			if distinctSourceCount(g) >= 2 {
				multi = append(multi, g)
			} else {
				single = append(single, g)
			}
		}
		orderedGroups = append(multi, single...)
	}

	// Stage 4: final claim selection with dedupe and citation gating.
	var selected []domain.Claim
	seenSignatures := make(map[string]bool)

	for _, group := range orderedGroups {
		if len(selected) >= claimCap {
			break
		}
		best := representativeCandidate(group, th.MinCitationSpanQuality)
		if best.signature == "" || seenSignatures[best.signature] {
			continue
		}

		claimID := fmt.Sprintf("c%d", len(selected)+1)
		ordered := append([]candidate(nil), group...)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].stageScore > ordered[j].stageScore })

		uniqueSources := make(map[string]bool)
		var citations []domain.Citation
		var citationQualities []float64
		var maxOverlap, maxSupport float64
		for _, cand := range ordered {
			maxOverlap = maxFloat(maxOverlap, cand.overlapScore)
			maxSupport = maxFloat(maxSupport, cand.supportabilityScore)
			if uniqueSources[cand.chunk.SourcePath] {
				continue
			}
			citation, quality := citationForSentence(claimID, best.sentence, cand.chunk)
			if quality < th.MinCitationSpanQuality {
				continue
			}
			citations = append(citations, citation)
			citationQualities = append(citationQualities, quality)
			uniqueSources[cand.chunk.SourcePath] = true
			if len(citations) >= 2 {
				break
			}
		}
		if len(citations) == 0 {
			continue
		}

		selected = append(selected, domain.Claim{
			ClaimID:             claimID,
			Text:                best.sentence,
			Citations:           citations,
			OverlapScore:        maxOverlap,
			CitationSpanQuality: maxFloat64Slice(citationQualities),
			SourceCount:         len(uniqueSources),
			SupportabilityScore: maxSupport,
		})
		seenSignatures[best.signature] = true
	}

	if len(selected) == 0 && len(chunks) > 0 {
		selected = []domain.Claim{fallbackClaim(chunks[0])}
	}

	lines := make([]string, len(selected))
	for i, claim := range selected {
		lines[i] = "- " + claim.Text
	}
	return domain.DraftAnswer{AnswerText: strings.Join(lines, "\n"), Claims: selected}
}

// fallbackClaim emits a single low-confidence claim from the first chunk's
// 200-char prefix when no group yields an acceptable claim but chunks exist.
func fallbackClaim(chunk domain.ScoredChunk) domain.Claim {
	text := strings.TrimSpace(chunk.ChunkText)
	if len(text) > 200 {
		text = text[:200]
	}
	claimID := "c1"
	citation, quality := citationForSentence(claimID, text, chunk)
	return domain.Claim{
		ClaimID:             claimID,
		Text:                text,
		Citations:           []domain.Citation{citation},
		OverlapScore:        0,
		CitationSpanQuality: quality,
		SourceCount:         1,
		SupportabilityScore: 0,
	}
}

// groupStats computes the (distinct sources, max stage score, mean stage
// score) tuple groups are ranked by (spec §4.5 stage 4).
func groupStats(group []candidate) (sources int, max, mean float64) {
	sources = distinctSourceCount(group)
	var sum float64
	for _, c := range group {
		if c.stageScore > max {
			max = c.stageScore
		}
		sum += c.stageScore
	}
	mean = sum / float64(maxInt(1, len(group)))
	return sources, max, mean
}

// groupLess reports whether a ranks strictly before b under the
// lexicographic (sources, max, mean) ordering.
func groupLess(a, b []candidate) bool {
	aSources, aMax, aMean := groupStats(a)
	bSources, bMax, bMean := groupStats(b)
	if aSources != bSources {
		return aSources < bSources
	}
	if aMax != bMax {
		return aMax < bMax
	}
	return aMean < bMean
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxFloat64Slice(values []float64) float64 {
	var max float64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}
