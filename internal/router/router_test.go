package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_ExplicitLookupOnQuote(t *testing.T) {
	r := New(nil)
	d := r.Route(`find "reciprocal rank fusion"`)
	assert.Equal(t, IntentLookup, d.PrimaryIntent)
	assert.Contains(t, d.Signals, "explicit_lookup")
}

func TestRoute_Compare(t *testing.T) {
	r := New(nil)
	d := r.Route("compare the two approaches")
	assert.Equal(t, IntentCompare, d.PrimaryIntent)
}

func TestRoute_Timeline(t *testing.T) {
	r := New(nil)
	d := r.Route("give me the timeline of events")
	assert.Equal(t, IntentTimeline, d.PrimaryIntent)
}

func TestRoute_TaskFromStepsFlag(t *testing.T) {
	r := New(nil)
	d := r.Route("how do i configure the server")
	assert.Equal(t, IntentTask, d.PrimaryIntent)
	assert.True(t, d.Flags.WantsSteps)
}

func TestRoute_SynthesisFromSummaryFlag(t *testing.T) {
	r := New(nil)
	d := r.Route("summarize the onboarding docs")
	assert.Equal(t, IntentSynthesis, d.PrimaryIntent)
	assert.True(t, d.Flags.WantsSummary)
}

func TestRoute_FactOnQuestionMark(t *testing.T) {
	r := New(nil)
	d := r.Route("what is reciprocal rank fusion?")
	assert.Equal(t, IntentFact, d.PrimaryIntent)
}

func TestRoute_ShortQueryFallsBackToLookup(t *testing.T) {
	r := New(nil)
	d := r.Route("rrf constant")
	assert.Equal(t, IntentLookup, d.PrimaryIntent)
	assert.Contains(t, d.Signals, "short_query")
}

func TestRoute_Other(t *testing.T) {
	r := New(nil)
	d := r.Route("a moderately long query without any trigger phrase here")
	assert.Equal(t, IntentOther, d.PrimaryIntent)
}

func TestRoute_SettingsMatchIntent(t *testing.T) {
	r := New(nil)
	d := r.Route("compare the two approaches")
	require.Equal(t, IntentCompare, d.PrimaryIntent)
	settings := d.RecommendedPipelineSettings
	assert.Equal(t, 20, settings.K)
	assert.Equal(t, 1, settings.AllowMultihop)
	assert.True(t, settings.UseRerank)
	assert.Equal(t, VerifierStrict, settings.VerifierMode)
}

func TestRoute_CachesDecision(t *testing.T) {
	r := New(nil)
	first := r.Route("What Is Reciprocal Rank Fusion?")
	second := r.Route("what is reciprocal rank fusion?")
	assert.Equal(t, first, second)
}

func TestDefaultPolicy_HasAllIntentRows(t *testing.T) {
	p := DefaultPolicy()
	for _, intent := range []PrimaryIntent{IntentLookup, IntentFact, IntentSynthesis, IntentCompare, IntentTimeline, IntentTask, IntentOther} {
		_, ok := p.PipelineSettings[string(intent)]
		require.True(t, ok, "missing settings row for %s", intent)
	}
}
