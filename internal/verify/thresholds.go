package verify

// Thresholds are the Verifier's gate floors (spec §6 "Verifier thresholds"),
// defaulted to original_source/config.py's values.
type Thresholds struct {
	QueryAlignmentMin            float64
	CriticalCoverageMinFact      float64
	CriticalCoverageMinSynthesis float64
	CriticalCoverageDefault      float64
	ClaimSupportMin              float64
	CitationSpanQualityMin       float64
	AggregateMin                 float64
}

// DefaultThresholds returns the spec's documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		QueryAlignmentMin:            0.30,
		CriticalCoverageMinFact:      0.50,
		CriticalCoverageMinSynthesis: 0.20,
		CriticalCoverageDefault:      0.50,
		ClaimSupportMin:              0.60,
		CitationSpanQualityMin:       0.45,
		AggregateMin:                 0.55,
	}
}

// denyList triggers the prompt-injection guard (gate 1) regardless of
// claims, matching spec §4.6 gate 1's fixed list.
var denyList = map[string]bool{
	"ignore": true, "bypass": true, "safeguard": true, "safeguards": true,
	"environment": true, "variables": true, "unrestricted": true,
	"reveal": true, "password": true, "secret": true, "secrets": true,
	"exfil": true, "exfiltrate": true, "instructions": true,
}

// hardRequiredTokens are critical query tokens whose absence from every
// claim is always fatal (gate 6), regardless of aggregate coverage.
var hardRequiredTokens = map[string]bool{
	"retention": true, "policy": true, "encryption": true, "algorithm": true,
	"backup": true, "cadence": true, "database": true, "endpoint": true,
	"api": true,
}

// nonCriticalTokens are excluded from the critical-coverage gate's token
// set (gate 7) even though they may be long enough to otherwise qualify.
var nonCriticalTokens = map[string]bool{
	"mentioned": true, "says": true, "describe": true, "explain": true,
	"summarize": true, "summary": true, "compare": true, "overview": true,
}

// shortQueryStopwords are excluded from the per-claim query-alignment
// token set (gate 3/4), matching original_source/verification.py's
// query_tokens filter.
var shortQueryStopwords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true,
	"with": true, "that": true,
}
