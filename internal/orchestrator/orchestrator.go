// Package orchestrator implements the query-time state machine (spec §4.7):
// route, retrieve, optionally rerank, and — in answer mode — synthesize,
// verify, and walk the bounded multi-hop/repair branches before returning.
// Grounded on original_source/orchestration.py::run_query, adapted from one
// long function into an Orchestrator with injected collaborators so each
// stage can be replaced independently (store-backed retrievers in
// production, fakes in tests).
package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/router"
	"github.com/aineshm/searchlayer/internal/synth"
	"github.com/aineshm/searchlayer/internal/verify"
)

// MaxHops and MaxRepairs are hard ceilings the orchestrator enforces no
// matter what a policy requests (spec §4.7/§4.8: "at most one hop", "at
// most one repair pass").
const (
	MaxHops    = 1
	MaxRepairs = 1
)

// Mode selects whether a run stops after retrieval or proceeds through
// synthesis and verification.
type Mode string

const (
	ModeSearch Mode = "search"
	ModeAnswer Mode = "answer"
)

// Orchestrator wires the Router, HybridRetriever, Synthesizer, and Verifier
// into the full query-time pipeline.
type Orchestrator struct {
	Router           *router.Router
	Retriever        *HybridRetriever
	SynthThresholds  synth.Thresholds
	VerifyThresholds verify.Thresholds
	Now              func() time.Time
}

// New builds an Orchestrator with the spec's default synthesis and
// verification thresholds.
func New(r *router.Router, retriever *HybridRetriever) *Orchestrator {
	return &Orchestrator{
		Router:           r,
		Retriever:        retriever,
		SynthThresholds:  synth.DefaultThresholds(),
		VerifyThresholds: verify.DefaultThresholds(),
		Now:              time.Now,
	}
}

// enforcePipelineBounds clamps a policy's multihop/repair allowances to the
// orchestrator's hard ceilings, and forces repair passes to zero whenever
// multi-hop is disabled (spec §4.7: repair only ever follows a hop
// attempt in this design's bounded-resource budget).
func enforcePipelineBounds(settings router.PipelineSettings) router.PipelineSettings {
	if settings.AllowMultihop > MaxHops {
		settings.AllowMultihop = MaxHops
	}
	if settings.AllowMultihop < 0 {
		settings.AllowMultihop = 0
	}
	if settings.MaxRepairPasses > MaxRepairs {
		settings.MaxRepairPasses = MaxRepairs
	}
	if settings.MaxRepairPasses < 0 {
		settings.MaxRepairPasses = 0
	}
	if settings.AllowMultihop == 0 {
		settings.MaxRepairPasses = 0
	}
	return settings
}

func sortChunksDescending(chunks []domain.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
}

// Options overrides the pipeline settings the router recommends for one
// query; a nil pointer field means "use the router's recommendation".
type Options struct {
	TopK       *int
	SkipVector *bool
}

// Run drives one query through the full pipeline and returns the terminal
// OrchestrationResult, including a tool_trace suitable for the CLI's
// --verbose output (spec §6).
func (o *Orchestrator) Run(ctx context.Context, query string, mode Mode, opts Options) (domain.OrchestrationResult, error) {
	start := o.Now()

	decision := o.Router.Route(query)
	settings := enforcePipelineBounds(decision.RecommendedPipelineSettings)

	effectiveTopK := settings.K
	if opts.TopK != nil {
		effectiveTopK = *opts.TopK
	}
	effectiveSkipVector := decision.PrimaryIntent == router.IntentLookup
	if opts.SkipVector != nil {
		effectiveSkipVector = *opts.SkipVector
	}
	useRerank := settings.UseRerank && rerankEligible(decision.PrimaryIntent)

	searchedQueries := []string{query}
	hopCount := 0
	repairCount := 0
	repairOutcome := domain.RepairNone
	verifierTimingMS := map[string]float64{}

	outcome, err := o.Retriever.run(ctx, query, effectiveTopK, effectiveSkipVector, settings.LexicalWeight)
	if err != nil {
		return domain.OrchestrationResult{}, err
	}
	chunks := outcome.Hybrid
	if useRerank {
		chunks = rerank(query, chunks)
	}

	var draftAnswer *domain.DraftAnswer
	var verification *domain.VerificationResult

	if mode == ModeAnswer {
		draft := synth.Synthesize(query, chunks, decision.PrimaryIntent, o.SynthThresholds)
		draft.SearchedQueries = append([]string(nil), searchedQueries...)

		verifyStart := o.Now()
		result := verify.Verify(query, draft, chunks, settings.VerifierMode, decision.PrimaryIntent, o.VerifyThresholds)
		verifierTimingMS["initial_verify"] = float64(o.Now().Sub(verifyStart).Microseconds()) / 1000
		result.SearchedQueries = append([]string(nil), searchedQueries...)
		draftAnswer, verification = &draft, &result

		if result.Abstain && settings.AllowMultihop == 1 && hopCount < MaxHops {
			missing := missingClaimTexts(draft, result)
			if followup, ok := proposeFollowupQuery(query, draftAnswer, missing); ok && !containsString(searchedQueries, followup) {
				searchedQueries = append(searchedQueries, followup)
				hopCount++

				hopOutcome, err := o.Retriever.run(ctx, followup, effectiveTopK, effectiveSkipVector, settings.LexicalWeight)
				if err != nil {
					return domain.OrchestrationResult{}, err
				}
				chunks = mergeChunks(chunks, hopOutcome.Hybrid)
				if useRerank {
					chunks = rerank(query, chunks)
				}

				hopDraft := synth.Synthesize(query, chunks, decision.PrimaryIntent, o.SynthThresholds)
				hopDraft.SearchedQueries = append([]string(nil), searchedQueries...)

				verifyStart = o.Now()
				hopResult := verify.Verify(query, hopDraft, chunks, settings.VerifierMode, decision.PrimaryIntent, o.VerifyThresholds)
				verifierTimingMS["post_hop_verify"] = float64(o.Now().Sub(verifyStart).Microseconds()) / 1000
				hopResult.SearchedQueries = append([]string(nil), searchedQueries...)
				draftAnswer, verification = &hopDraft, &hopResult
			}
		}

		if verification.Abstain && settings.MaxRepairPasses > 0 && repairCount < MaxRepairs {
			switch verification.VerdictCode {
			case domain.VerdictQueryMismatch, domain.VerdictConflictDetected, domain.VerdictInsufficientEvid:
				repairOutcome = domain.RepairSkippedIneligible
			default:
				repairOutcome = domain.RepairNoop
			}

			if repairOutcome == domain.RepairNoop {
				repaired, repairedResult := repairAnswer(query, *draftAnswer, chunks, settings.VerifierMode, decision.PrimaryIntent, o.SynthThresholds, o.VerifyThresholds)
				repairCount++
				if repaired != nil {
					repaired.SearchedQueries = append([]string(nil), searchedQueries...)
					draftAnswer = repaired

					verifyStart = o.Now()
					finalResult := verify.Verify(query, *draftAnswer, chunks, settings.VerifierMode, decision.PrimaryIntent, o.VerifyThresholds)
					verifierTimingMS["post_repair_verify"] = float64(o.Now().Sub(verifyStart).Microseconds()) / 1000
					finalResult.SearchedQueries = append([]string(nil), searchedQueries...)
					verification = &finalResult
					if !verification.Abstain {
						repairOutcome = domain.RepairSuccessful
					} else {
						repairOutcome = domain.RepairHarmful
					}
				} else {
					repairOutcome = domain.RepairUnsuccessful
					verification = &repairedResult
					verification.SearchedQueries = append([]string(nil), searchedQueries...)
				}
			}
		}
	}

	elapsedMS := float64(o.Now().Sub(start).Microseconds()) / 1000

	toolTrace := map[string]any{
		"router": map[string]any{
			"primary_intent": string(decision.PrimaryIntent),
			"signals":        decision.Signals,
			"settings": map[string]any{
				"k":                  settings.K,
				"lexical_weight":     settings.LexicalWeight,
				"allow_multihop":     settings.AllowMultihop,
				"use_rerank":         settings.UseRerank,
				"generate_answer":    settings.GenerateAnswer,
				"verifier_mode":      string(settings.VerifierMode),
				"max_repair_passes":  settings.MaxRepairPasses,
			},
		},
		"retrieval": map[string]any{
			"top_k":               effectiveTopK,
			"skip_vector":         effectiveSkipVector,
			"lexical_latency_ms":  outcome.LexicalLatencyMS,
			"vector_latency_ms":   outcome.VectorLatencyMS,
			"hybrid_latency_ms":   outcome.HybridLatencyMS,
			"result_count":        len(chunks),
		},
		"orchestration": map[string]any{
			"mode":             string(mode),
			"hop_count":        hopCount,
			"repair_count":     repairCount,
			"repair_outcome":   string(repairOutcome),
			"searched_queries": searchedQueries,
		},
	}
	if verification != nil {
		issueTypes := make([]string, 0, len(verification.Issues))
		for _, issue := range verification.Issues {
			issueTypes = append(issueTypes, issue.Type)
		}
		toolTrace["verification"] = map[string]any{
			"abstain":         verification.Abstain,
			"verdict_code":    string(verification.VerdictCode),
			"confidence":      verification.Confidence,
			"decision_path":   verification.DecisionPath,
			"issues":          issueTypes,
			"conflicts":       verification.Conflicts,
			"stage_timing_ms": verifierTimingMS,
		}
	}

	verdictCode := ""
	if verification != nil {
		verdictCode = string(verification.VerdictCode)
	}
	slog.Info("query",
		slog.String("query", query),
		slog.String("intent", string(decision.PrimaryIntent)),
		slog.String("verdict_code", verdictCode),
		slog.Float64("latency_ms", elapsedMS),
	)

	return domain.OrchestrationResult{
		Mode:         string(mode),
		Intent:       string(decision.PrimaryIntent),
		Chunks:       chunks,
		DraftAnswer:  draftAnswer,
		Verification: verification,
		ToolTrace:    toolTrace,
		LatencyMS:    elapsedMS,
	}, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
