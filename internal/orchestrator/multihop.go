package orchestrator

import (
	"regexp"
	"strings"

	"github.com/aineshm/searchlayer/internal/domain"
)

var followupTokenRe = regexp.MustCompile(`[a-z0-9]+`)

func tokenizeFollowup(text string) []string {
	return followupTokenRe.FindAllString(strings.ToLower(text), -1)
}

// missingClaimTexts collects the text of every claim the verifier flagged
// as citation_gap or unsupported_claim, the seed evidence for a follow-up
// query (spec §4.7 multi-hop trigger).
func missingClaimTexts(draft domain.DraftAnswer, verification domain.VerificationResult) []string {
	bad := make(map[string]bool, len(verification.Issues))
	for _, issue := range verification.Issues {
		if issue.ClaimID == "" {
			continue
		}
		if issue.Type == "unsupported_claim" || issue.Type == "citation_gap" {
			bad[issue.ClaimID] = true
		}
	}
	var missing []string
	for _, claim := range draft.Claims {
		if bad[claim.ClaimID] {
			missing = append(missing, claim.Text)
		}
	}
	return missing
}

// proposeFollowupQuery builds one deterministic follow-up query by
// appending up to six new, 4+-char tokens drawn from the missing evidence
// (spec §4.7, grounded on original_source/multihop.py::propose_followup_query).
func proposeFollowupQuery(query string, draft *domain.DraftAnswer, missingClaims []string) (string, bool) {
	if len(missingClaims) == 0 && draft == nil {
		return "", false
	}

	seedText := strings.Join(missingClaims, " ")
	if strings.TrimSpace(seedText) == "" && draft != nil {
		limit := 2
		if len(draft.Claims) < limit {
			limit = len(draft.Claims)
		}
		texts := make([]string, 0, limit)
		for _, c := range draft.Claims[:limit] {
			texts = append(texts, c.Text)
		}
		seedText = strings.Join(texts, " ")
	}
	if strings.TrimSpace(seedText) == "" {
		return "", false
	}

	original := make(map[string]bool)
	for _, tok := range tokenizeFollowup(query) {
		original[tok] = true
	}

	seen := make(map[string]bool)
	var additions []string
	for _, tok := range tokenizeFollowup(seedText) {
		if len(tok) < 4 || original[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		additions = append(additions, tok)
		if len(additions) >= 6 {
			break
		}
	}

	if len(additions) == 0 {
		return "", false
	}
	return query + " " + strings.Join(additions, " "), true
}
