// Package evalreport defines the report schema the evaluation harness emits
// (spec §6: "emits a report JSON containing schema_version, metrics,
// metrics_by_intent, metrics_by_case_family, gates{hard,soft,*_pass,
// overall_pass}, cases_detail, metrics_delta?"). The harness itself is an
// external collaborator (spec §1); this package only names the contract it
// writes to and reads back for regression comparison.
package evalreport

// SchemaVersion is the report schema this package describes, grounded on
// original_source/eval/run_answer_eval.py's SCHEMA_VERSION constant.
const SchemaVersion = "3.0"

// Metrics are the harness's per-run aggregate scores (original_source's
// citation_coverage/abstain_correctness/conflict_correctness/repair_rate
// family), keyed by metric name so new metrics don't require a schema
// change.
type Metrics map[string]float64

// Rollup is Metrics aggregated over a subset of cases (one intent, one case
// family), alongside how many cases contributed to the average.
type Rollup struct {
	Metrics Metrics `json:"metrics"`
	Count   int     `json:"count"`
}

// GateSet is one named boolean check against a metric threshold.
type GateSet map[string]bool

// Gates is the hard/soft gate verdict for one report (spec §6 "gates{hard,
// soft,*_pass,overall_pass}"). Hard gates are release blockers; soft gates
// are trend/watch signals that don't fail the run on their own.
type Gates struct {
	Hard        GateSet `json:"hard"`
	Soft        GateSet `json:"soft"`
	HardPass    bool    `json:"hard_pass"`
	SoftPass    bool    `json:"soft_pass"`
	OverallPass bool    `json:"overall_pass"`
}

// CaseDetail is one evaluated case's expected-vs-actual outcome, grounded on
// run_answer_eval.py's per-case `details` record.
type CaseDetail struct {
	ID                     string   `json:"id"`
	Query                  string   `json:"query"`
	Intent                 string   `json:"intent"`
	CaseFamily             string   `json:"case_family,omitempty"`
	RiskLevel              string   `json:"risk_level,omitempty"`
	ExpectedAbstain        *bool    `json:"expected_abstain,omitempty"`
	ActualAbstain          bool     `json:"actual_abstain"`
	ExpectedVerdict        string   `json:"expected_verdict,omitempty"`
	ActualVerdict          string   `json:"actual_verdict"`
	ExpectConflict         *bool    `json:"expect_conflict,omitempty"`
	ActualConflict         bool     `json:"actual_conflict"`
	CitationCoverage       float64  `json:"citation_coverage"`
	CitationPrecisionProxy float64  `json:"citation_precision_proxy"`
	RepairCount            int      `json:"repair_count"`
	RepairOutcome          string   `json:"repair_outcome"`
	DecisionPath           []string `json:"decision_path,omitempty"`
	Confidence             float64  `json:"confidence"`
}

// MetricsDelta is one metric's change versus a baseline report, present only
// when the harness was run with an explicit or locked baseline.
type MetricsDelta map[string]float64

// Report is the complete evaluation harness output (spec §6 command
// surface: "an optional evaluation harness ... emits a report JSON").
type Report struct {
	SchemaVersion      string                  `json:"schema_version"`
	Cases              int                     `json:"cases"`
	Metrics            Metrics                 `json:"metrics"`
	MetricsByIntent    map[string]Rollup       `json:"metrics_by_intent"`
	MetricsByCaseFamily map[string]Rollup      `json:"metrics_by_case_family"`
	Gates              Gates                   `json:"gates"`
	CasesDetail        []CaseDetail            `json:"cases_detail"`
	MetricsDelta       MetricsDelta            `json:"metrics_delta,omitempty"`
}

// EvalCase is one line of the harness's input case file (spec §6: "case
// files (one JSON object per line) with fields query, intent?,
// expected_sources?, must_contain?, top_k?, synthetic_chunks?,
// expected_abstain?, expect_conflict?, expected_verdict?, case_family?,
// risk_level?").
type EvalCase struct {
	ID               string   `json:"id,omitempty"`
	Query            string   `json:"query"`
	Intent           string   `json:"intent,omitempty"`
	ExpectedSources  []string `json:"expected_sources,omitempty"`
	MustContain      []string `json:"must_contain,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	SyntheticChunks  []string `json:"synthetic_chunks,omitempty"`
	ExpectedAbstain  *bool    `json:"expected_abstain,omitempty"`
	ExpectConflict   *bool    `json:"expect_conflict,omitempty"`
	ExpectedVerdict  string   `json:"expected_verdict,omitempty"`
	CaseFamily       string   `json:"case_family,omitempty"`
	RiskLevel        string   `json:"risk_level,omitempty"`
}
