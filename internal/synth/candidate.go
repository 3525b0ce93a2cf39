package synth

import (
	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/router"
)

// candidate is one sentence/chunk pairing scored during stage 1.
type candidate struct {
	sentence            string
	chunk               domain.ScoredChunk
	overlapScore        float64
	supportabilityScore float64
	citationSpanQuality float64
	stageScore          float64
	signature           string
	sentenceTokens      map[string]bool
	semanticTokens      map[string]bool
}

func supportability(sentenceTokens, chunkTokens map[string]bool) float64 {
	if len(sentenceTokens) == 0 {
		return 0
	}
	return float64(intersectionCount(sentenceTokens, chunkTokens)) / float64(len(sentenceTokens))
}

// candidateStage computes stage 1 scoring for one sentence against its
// source chunk (spec §4.5 stage 1).
func candidateStage(sentence string, chunk domain.ScoredChunk, queryTokens map[string]bool) candidate {
	sentenceTokens := tokenize(sentence)
	chunkTokens := tokenize(chunk.ChunkText)
	overlapCount := intersectionCount(sentenceTokens, queryTokens)
	overlapScore := float64(overlapCount) / float64(maxInt(1, len(queryTokens)))
	supportScore := supportability(sentenceTokens, chunkTokens)
	spanQuality := minFloat(1.0, float64(len(sentence))/float64(maxInt(1, len(chunk.ChunkText))))
	stageScore := chunk.Score + overlapScore*1.2 + supportScore*1.0 + spanQuality*0.6

	return candidate{
		sentence:            sentence,
		chunk:               chunk,
		overlapScore:        overlapScore,
		supportabilityScore: supportScore,
		citationSpanQuality: spanQuality,
		stageScore:          stageScore,
		signature:           claimSignature(sentence),
		sentenceTokens:      sentenceTokens,
		semanticTokens:      semanticTokens(sentence),
	}
}

// groupCandidates groups by exact signature match, or by Jaccard >= 0.6 /
// containment >= 0.7 over semantic tokens against the group's first member
// (spec §4.5 stage 4).
func groupCandidates(candidates []candidate) [][]candidate {
	var groups [][]candidate
	for _, cand := range candidates {
		attached := false
		for gi, group := range groups {
			rep := group[0]
			if cand.signature != "" && cand.signature == rep.signature {
				groups[gi] = append(groups[gi], cand)
				attached = true
				break
			}
			overlap := intersectionCount(cand.semanticTokens, rep.semanticTokens)
			union := unionCount(cand.semanticTokens, rep.semanticTokens)
			if union == 0 {
				continue
			}
			jaccard := float64(overlap) / float64(union)
			containment := float64(overlap) / float64(maxInt(1, minInt(len(cand.semanticTokens), len(rep.semanticTokens))))
			if jaccard >= 0.6 || containment >= 0.7 {
				groups[gi] = append(groups[gi], cand)
				attached = true
				break
			}
		}
		if !attached {
			groups = append(groups, []candidate{cand})
		}
	}
	return groups
}

// representativeCandidate picks the group member maximizing (supported
// source count, average citation quality, stage score, brevity).
func representativeCandidate(group []candidate, minCitationSpanQuality float64) candidate {
	if len(group) == 1 {
		return group[0]
	}

	scoreOf := func(cand candidate) repScore {
		sourceBest := make(map[string]float64)
		for _, peer := range group {
			_, quality := citationForSentence("tmp", cand.sentence, peer.chunk)
			if existing, ok := sourceBest[peer.chunk.SourcePath]; !ok || quality > existing {
				sourceBest[peer.chunk.SourcePath] = quality
			}
		}
		supported := 0
		sum := 0.0
		for _, q := range sourceBest {
			sum += q
			if q >= minCitationSpanQuality {
				supported++
			}
		}
		avg := 0.0
		if len(sourceBest) > 0 {
			avg = sum / float64(len(sourceBest))
		}
		return repScore{supportedSources: supported, avgQuality: avg, stageScore: cand.stageScore, negLen: -len(cand.sentence)}
	}

	best := group[0]
	bestScore := scoreOf(best)
	for _, cand := range group[1:] {
		s := scoreOf(cand)
		if better(s, bestScore) {
			best = cand
			bestScore = s
		}
	}
	return best
}

type repScore struct {
	supportedSources int
	avgQuality       float64
	stageScore       float64
	negLen           int
}

func better(a, b repScore) bool {
	if a.supportedSources != b.supportedSources {
		return a.supportedSources > b.supportedSources
	}
	if a.avgQuality != b.avgQuality {
		return a.avgQuality > b.avgQuality
	}
	if a.stageScore != b.stageScore {
		return a.stageScore > b.stageScore
	}
	return a.negLen > b.negLen
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func distinctSourceCount(group []candidate) int {
	seen := make(map[string]bool, len(group))
	for _, c := range group {
		seen[c.chunk.SourcePath] = true
	}
	return len(seen)
}

func claimLimit(intent router.PrimaryIntent) int {
	switch intent {
	case router.IntentSynthesis, router.IntentCompare, router.IntentTimeline:
		return 5
	case router.IntentTask:
		return 4
	default:
		return 3
	}
}

func prefersMultiSource(intent router.PrimaryIntent) bool {
	return intent == router.IntentSynthesis || intent == router.IntentCompare || intent == router.IntentTimeline
}
