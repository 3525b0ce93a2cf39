// Package verify implements the Verifier (spec §4.6): an 11-gate state
// machine that turns a draft answer plus its evidence chunks into a
// verdict, confidence, and decision path. Gate mechanics (conflict regex,
// claim-support all-or-nothing rule) are grounded on
// original_source/verification.py; the newer citation_gap verdict
// taxonomy and the full gate chain follow spec.md verbatim, per the
// spec's own Open Question decision to prefer it over the older
// missing_citation taxonomy.
package verify

import (
	"fmt"
	"strings"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/router"
)

// Verify runs the full gate chain for one draft answer.
func Verify(query string, draft domain.DraftAnswer, chunks []domain.ScoredChunk, mode router.VerifierMode, intent router.PrimaryIntent, th Thresholds) domain.VerificationResult {
	if mode == router.VerifierOff {
		return domain.VerificationResult{
			Passed:       true,
			VerdictCode:  domain.VerdictSupported,
			Confidence:   1.0,
			Abstain:      false,
			DecisionPath: []string{"supported"},
		}
	}

	queryTokensAll := claimTokenRe.FindAllString(strings.ToLower(query), -1)

	// Gate 1: prompt-injection guard. Applies regardless of claims.
	for _, tok := range queryTokensAll {
		if denyList[tok] {
			return domain.VerificationResult{
				Passed:        false,
				VerdictCode:   domain.VerdictQueryMismatch,
				Confidence:    0,
				Abstain:       true,
				AbstainReason: "Query contains a disallowed instruction-override signal.",
				DecisionPath:  []string{"prompt_injection_signal"},
			}
		}
	}

	// Gate 2: empty-claims guard.
	if len(draft.Claims) == 0 {
		return domain.VerificationResult{
			Passed:        false,
			VerdictCode:   domain.VerdictInsufficientEvid,
			Confidence:    0,
			Abstain:       true,
			AbstainReason: "No grounded claims could be extracted from retrieved evidence.",
			DecisionPath:  []string{"no_claims"},
		}
	}

	decisionPath := []string{}
	chunkByID := make(map[string]domain.ScoredChunk, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ChunkID] = c
	}

	alignmentTokens := significantQueryTokens(queryTokensAll)
	// "Short query" reuses the router's own short-lookup cutoff (spec
	// §4.1/§9), measured the same way the router measures it: raw
	// whitespace word count on the query, not the stopword-stripped
	// alignment token set.
	requiredOverlap := 2
	if len(strings.Fields(strings.TrimSpace(query))) <= 4 || multiSourceIntent(intent) {
		requiredOverlap = 1
	}

	n := float64(len(draft.Claims))
	alignedClaims := 0
	citationOKClaims := 0
	supportedClaims := 0
	var issues []domain.VerificationIssue
	claimCoversToken := make(map[string]bool)

	for _, claim := range draft.Claims {
		claimTokens := claimTokenRe.FindAllString(strings.ToLower(claim.Text), -1)
		if matchesCount(alignmentTokens, claimTokens) >= requiredOverlap {
			alignedClaims++
		}
		for _, tok := range queryTokensAll {
			if claimContainsToken(claim.Text, tok) {
				claimCoversToken[tok] = true
			}
		}

		if claim.CitationSpanQuality >= th.CitationSpanQualityMin && len(claim.Citations) > 0 {
			citationOKClaims++
		} else {
			issues = append(issues, domain.VerificationIssue{Type: "citation_gap", ClaimID: claim.ClaimID, Detail: "citation span quality below floor"})
		}

		support := claimSupportScore(claim.Text, chunkByID, claim.Citations)
		if support >= th.ClaimSupportMin {
			supportedClaims++
		} else {
			issues = append(issues, domain.VerificationIssue{Type: "unsupported_claim", ClaimID: claim.ClaimID, Detail: claim.Text})
		}
	}
	decisionPath = append(decisionPath, "claims_scored")

	// Gate 4: query-alignment gate.
	if float64(alignedClaims)/n < th.QueryAlignmentMin {
		decisionPath = append(decisionPath, "query_alignment_failed")
		return domain.VerificationResult{
			Passed:        false,
			VerdictCode:   domain.VerdictQueryMismatch,
			Confidence:    float64(alignedClaims) / n,
			Abstain:       true,
			AbstainReason: "Retrieved evidence did not match the query topic.",
			DecisionPath:  decisionPath,
		}
	}
	decisionPath = append(decisionPath, "query_alignment_ok")

	// Gate 5: conflict gate (modes strict/strict_conflict only).
	var conflicts []string
	if mode == router.VerifierStrict || mode == router.VerifierStrictConflict {
		conflicts = detectConflicts(chunks)
	}
	if len(conflicts) > 0 {
		decisionPath = append(decisionPath, "conflict_detected")
		return domain.VerificationResult{
			Passed:        false,
			VerdictCode:   domain.VerdictConflictDetected,
			Confidence:    float64(alignedClaims) / n,
			Abstain:       true,
			AbstainReason: "Conflicting evidence detected in retrieved sources.",
			Conflicts:     conflicts,
			Issues:        issues,
			DecisionPath:  decisionPath,
		}
	}
	decisionPath = append(decisionPath, "conflict_clear")

	// Gate 6: hard-required-token gate.
	for _, tok := range alignmentTokens {
		if hardRequiredTokens[tok] && !claimCoversToken[tok] {
			decisionPath = append(decisionPath, "hard_required_token_missing")
			return domain.VerificationResult{
				Passed:        false,
				VerdictCode:   domain.VerdictInsufficientEvid,
				Confidence:    float64(alignedClaims) / n,
				Abstain:       true,
				AbstainReason: fmt.Sprintf("Required term %q is not covered by any claim.", tok),
				Issues:        issues,
				DecisionPath:  decisionPath,
			}
		}
	}
	decisionPath = append(decisionPath, "hard_required_ok")

	// Gate 7: critical-coverage gate.
	criticalTokens := criticalCoverageTokens(queryTokensAll)
	coverageThreshold := th.CriticalCoverageDefault
	if intent == router.IntentFact {
		coverageThreshold = th.CriticalCoverageMinFact
	} else if multiSourceIntent(intent) {
		coverageThreshold = th.CriticalCoverageMinSynthesis
	}
	if len(criticalTokens) > 0 {
		covered := 0
		for _, tok := range criticalTokens {
			if claimCoversToken[tok] {
				covered++
			}
		}
		coverageRatio := float64(covered) / float64(len(criticalTokens))
		if coverageRatio < coverageThreshold {
			decisionPath = append(decisionPath, "critical_coverage_failed")
			return domain.VerificationResult{
				Passed:        false,
				VerdictCode:   domain.VerdictInsufficientEvid,
				Confidence:    coverageRatio,
				Abstain:       true,
				AbstainReason: "Retrieved evidence does not cover the query's critical terms.",
				Issues:        issues,
				DecisionPath:  decisionPath,
			}
		}
	}
	decisionPath = append(decisionPath, "critical_coverage_ok")

	// Gate 8: citation-gap gate.
	if citationOKClaims < len(draft.Claims) {
		decisionPath = append(decisionPath, "citation_gap_detected")
		return domain.VerificationResult{
			Passed:        false,
			VerdictCode:   domain.VerdictCitationGap,
			Confidence:    float64(citationOKClaims) / n,
			Abstain:       true,
			AbstainReason: "One or more claims lack a sufficiently precise citation.",
			Issues:        issues,
			DecisionPath:  decisionPath,
		}
	}
	decisionPath = append(decisionPath, "citation_gap_clear")

	// Gate 9: support gate.
	if float64(supportedClaims)/n < th.ClaimSupportMin {
		decisionPath = append(decisionPath, "unsupported_claim_detected")
		return domain.VerificationResult{
			Passed:        false,
			VerdictCode:   domain.VerdictUnsupportedClaim,
			Confidence:    float64(supportedClaims) / n,
			Abstain:       true,
			AbstainReason: "One or more claims are not adequately supported by their citations.",
			Issues:        issues,
			DecisionPath:  decisionPath,
		}
	}
	decisionPath = append(decisionPath, "claim_support_ok")

	// Gate 10: aggregate gate.
	alignment := float64(alignedClaims) / n
	support := float64(supportedClaims) / n
	citationQuality := float64(citationOKClaims) / n
	agreement := 1.0
	if len(conflicts) > 0 {
		agreement = 0.0
	}
	agg := 0.35*alignment + 0.35*support + 0.20*citationQuality + 0.10*agreement
	if agg < th.AggregateMin {
		decisionPath = append(decisionPath, "aggregate_below_threshold")
		return domain.VerificationResult{
			Passed:        false,
			VerdictCode:   domain.VerdictInsufficientEvid,
			Confidence:    agg,
			Abstain:       true,
			AbstainReason: "Aggregate evidence strength fell below the acceptance threshold.",
			Issues:        issues,
			Conflicts:     conflicts,
			DecisionPath:  decisionPath,
		}
	}

	// Gate 11: supported.
	decisionPath = append(decisionPath, "supported")
	return domain.VerificationResult{
		Passed:       true,
		VerdictCode:  domain.VerdictSupported,
		Confidence:   agg,
		Abstain:      false,
		Issues:       issues,
		Conflicts:    conflicts,
		DecisionPath: decisionPath,
	}
}

func multiSourceIntent(intent router.PrimaryIntent) bool {
	return intent == router.IntentSynthesis || intent == router.IntentCompare || intent == router.IntentTimeline
}

// significantQueryTokens keeps query tokens of length >=4, excluding a
// small stopword list, matching original_source/verification.py's
// query_tokens filter.
func significantQueryTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, tok := range tokens {
		if len(tok) < 4 || shortQueryStopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// criticalCoverageTokens keeps query tokens of length >=6 or fully numeric,
// minus the non-critical list (spec §4.6 gate 7).
func criticalCoverageTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, tok := range tokens {
		if !isCriticalToken(tok) || nonCriticalTokens[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// matchesCount counts how many queryTokens are matched by token or prefix
// against claimTokens (spec §4.6 gate 3: "count of critical query tokens
// matched by token or prefix").
func matchesCount(queryTokens, claimTokens []string) int {
	count := 0
	for _, qt := range queryTokens {
		for _, ct := range claimTokens {
			if ct == qt || strings.HasPrefix(ct, qt) || strings.HasPrefix(qt, ct) {
				count++
				break
			}
		}
	}
	return count
}

// claimContainsToken reports whether token appears verbatim in claim text.
func claimContainsToken(claimText, token string) bool {
	return strings.Contains(strings.ToLower(claimText), token)
}
