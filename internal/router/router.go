package router

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the router's decision cache, grounded on the
// teacher classifier's cache (scaled down: router decisions are cheap to
// recompute, the cache only saves the substring-rule scan).
const DefaultCacheSize = 2048

// Router classifies queries against a Policy. Decisions are cached by
// normalized query text, matching the teacher's HybridClassifier pattern.
type Router struct {
	policy *Policy
	cache  *lru.Cache[string, RouteDecision]
}

// New builds a Router over policy. A nil policy falls back to DefaultPolicy.
func New(policy *Policy) *Router {
	if policy == nil {
		policy = DefaultPolicy()
	}
	cache, _ := lru.New[string, RouteDecision](DefaultCacheSize)
	return &Router{policy: policy, cache: cache}
}

// Route classifies a raw query and returns its RouteDecision.
func (r *Router) Route(query string) RouteDecision {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := r.cache.Get(normalized); ok {
		return cached
	}

	var signals []string
	flags := r.detectFlags(normalized, &signals)
	intent := r.classifyPrimaryIntent(normalized, flags, &signals)
	settings := r.pipelineSettings(intent)

	decision := RouteDecision{
		PrimaryIntent:               intent,
		Flags:                       flags,
		RecommendedPipelineSettings: settings,
		Signals:                     signals,
	}
	r.cache.Add(normalized, decision)
	return decision
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func (r *Router) detectFlags(normalized string, signals *[]string) IntentFlags {
	policy := r.policy.Flags
	flags := IntentFlags{
		WantsDefinition: containsAny(normalized, policy.Definition),
		WantsSteps:      containsAny(normalized, policy.Steps),
		WantsSummary:    containsAny(normalized, policy.Summary),
	}
	if flags.WantsDefinition {
		*signals = append(*signals, "definition_phrase")
	}
	if flags.WantsSteps {
		*signals = append(*signals, "steps_phrase")
	}
	if flags.WantsSummary {
		*signals = append(*signals, "summary_phrase")
	}
	return flags
}

// classifyPrimaryIntent applies the fixed priority order from §4.1:
// explicit-lookup -> compare -> timeline -> task -> synthesis -> fact ->
// short-query lookup -> other.
func (r *Router) classifyPrimaryIntent(normalized string, flags IntentFlags, signals *[]string) PrimaryIntent {
	c := r.policy.Classification
	if normalized == "" {
		return IntentOther
	}
	if strings.Contains(normalized, `"`) || containsAny(normalized, c.LookupExplicit) {
		*signals = append(*signals, "explicit_lookup")
		return IntentLookup
	}
	if containsAny(normalized, c.Compare) {
		*signals = append(*signals, "compare_phrase")
		return IntentCompare
	}
	if containsAny(normalized, c.Timeline) {
		*signals = append(*signals, "timeline_phrase")
		return IntentTimeline
	}
	if flags.WantsSteps || containsAny(normalized, c.Task) {
		*signals = append(*signals, "task_phrase")
		return IntentTask
	}
	if flags.WantsSummary || containsAny(normalized, c.Synthesis) {
		*signals = append(*signals, "synthesis_phrase")
		return IntentSynthesis
	}
	if flags.WantsDefinition ||
		(c.QuestionMarkIsFact && strings.HasSuffix(normalized, "?")) ||
		containsAny(normalized, c.FactWords) {
		*signals = append(*signals, "fact_phrase")
		return IntentFact
	}
	cutoff := c.ShortLookupWordCount
	if cutoff <= 0 {
		cutoff = 4
	}
	if len(strings.Fields(normalized)) <= cutoff {
		*signals = append(*signals, "short_query")
		return IntentLookup
	}
	return IntentOther
}

func (r *Router) pipelineSettings(intent PrimaryIntent) PipelineSettings {
	row := r.policy.settingsFor(intent)
	return PipelineSettings{
		K:               row.K,
		LexicalWeight:   row.LexicalWeight,
		AllowMultihop:   row.AllowMultihop,
		UseRerank:       row.UseRerank,
		GenerateAnswer:  row.GenerateAnswer,
		VerifierMode:    VerifierMode(row.VerifierMode),
		MaxRepairPasses: row.MaxRepairPasses,
	}
}
