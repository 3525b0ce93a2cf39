// Package router classifies a raw query into a PrimaryIntent and a
// recommended PipelineSettings policy, deterministically and without any
// network call — a generalization of the teacher's HybridClassifier down
// to its PatternClassifier half, since this spec has no LLM collaborator.
package router

// PrimaryIntent is the router's terminal classification of a query.
type PrimaryIntent string

const (
	IntentLookup    PrimaryIntent = "lookup"
	IntentFact      PrimaryIntent = "fact"
	IntentSynthesis PrimaryIntent = "synthesis"
	IntentCompare   PrimaryIntent = "compare"
	IntentTimeline  PrimaryIntent = "timeline"
	IntentTask      PrimaryIntent = "task"
	IntentOther     PrimaryIntent = "other"
)

// VerifierMode selects how strict the Verifier's gate chain runs.
type VerifierMode string

const (
	VerifierOff            VerifierMode = "off"
	VerifierMinimal        VerifierMode = "minimal"
	VerifierStrict         VerifierMode = "strict"
	VerifierStrictConflict VerifierMode = "strict_conflict"
)

// IntentFlags are independent, additive signals detected alongside the
// primary intent.
type IntentFlags struct {
	WantsDefinition bool
	WantsSteps      bool
	WantsSummary    bool
}

// PipelineSettings is the policy the Orchestrator applies for one query.
type PipelineSettings struct {
	K                int
	LexicalWeight    float64
	AllowMultihop    int
	UseRerank        bool
	GenerateAnswer   bool
	VerifierMode     VerifierMode
	MaxRepairPasses  int
}

// RouteDecision is the Router's full output for one query.
type RouteDecision struct {
	PrimaryIntent           PrimaryIntent
	Flags                   IntentFlags
	RecommendedPipelineSettings PipelineSettings
	Signals                 []string
}
