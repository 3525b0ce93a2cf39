package orchestrator

import (
	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/router"
	"github.com/aineshm/searchlayer/internal/synth"
	"github.com/aineshm/searchlayer/internal/verify"
)

// hasRepairableIssue reports whether a verification carries an issue this
// bounded repair pass can address: a citation gap or an unsupported claim.
func hasRepairableIssue(result domain.VerificationResult) bool {
	for _, issue := range result.Issues {
		if issue.Type == "citation_gap" || issue.Type == "unsupported_claim" {
			return true
		}
	}
	return false
}

// repairAnswer attempts a single deterministic repair by re-synthesizing
// from the same evidence chunks (spec §4.8), grounded on
// original_source/verification.py::repair_answer. It returns the repaired
// draft only if the repair actually changes the outcome to passing, and nil
// (signaling the caller to mark the attempt unsuccessful) when the
// re-synthesized draft still fails. When the current verification carries
// no citation_gap or unsupported_claim issue, no re-synthesis happens and it
// returns the original draft unchanged together with that verification.
func repairAnswer(
	query string,
	draft domain.DraftAnswer,
	chunks []domain.ScoredChunk,
	mode router.VerifierMode,
	intent router.PrimaryIntent,
	synthTh synth.Thresholds,
	verifyTh verify.Thresholds,
) (*domain.DraftAnswer, domain.VerificationResult) {
	current := verify.Verify(query, draft, chunks, mode, intent, verifyTh)
	if !hasRepairableIssue(current) {
		return &draft, current
	}

	repaired := synth.Synthesize(query, chunks, intent, synthTh)
	repaired.SearchedQueries = append([]string(nil), draft.SearchedQueries...)
	repairedResult := verify.Verify(query, repaired, chunks, mode, intent, verifyTh)
	if repairedResult.Passed {
		return &repaired, repairedResult
	}
	return nil, repairedResult
}
