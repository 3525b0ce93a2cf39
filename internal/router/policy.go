package router

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the declarative, loadable-from-an-external-table classification
// and settings policy. Its shape mirrors the original router_policy.json's
// three sections (flags/classification/pipeline_settings); this port loads
// it as YAML to match the rest of the config stack.
type Policy struct {
	Flags          PolicyFlags                    `yaml:"flags"`
	Classification PolicyClassification           `yaml:"classification"`
	PipelineSettings map[string]PolicySettingsRow `yaml:"pipeline_settings"`
}

// PolicyFlags lists the substrings that set each independent intent flag.
type PolicyFlags struct {
	Definition []string `yaml:"definition"`
	Steps      []string `yaml:"steps"`
	Summary    []string `yaml:"summary"`
}

// PolicyClassification lists the substring rules applied in the fixed
// priority order fixed by the gate chain in §4.1.
type PolicyClassification struct {
	LookupExplicit        []string `yaml:"lookup_explicit"`
	Compare               []string `yaml:"compare"`
	Timeline              []string `yaml:"timeline"`
	Task                  []string `yaml:"task"`
	Synthesis             []string `yaml:"synthesis"`
	FactWords             []string `yaml:"fact_words"`
	QuestionMarkIsFact    bool     `yaml:"question_mark_is_fact"`
	ShortLookupWordCount  int      `yaml:"short_lookup_word_count"`
}

// PolicySettingsRow is one row of the per-intent recommended settings.
type PolicySettingsRow struct {
	K               int     `yaml:"k"`
	LexicalWeight   float64 `yaml:"lexical_weight"`
	AllowMultihop   int     `yaml:"allow_multihop"`
	UseRerank       bool    `yaml:"use_rerank"`
	GenerateAnswer  bool    `yaml:"generate_answer"`
	VerifierMode    string  `yaml:"verifier_mode"`
	MaxRepairPasses int     `yaml:"max_repair_passes"`
}

// DefaultPolicy is the representative policy from §4.1, used when no
// external policy file is configured.
func DefaultPolicy() *Policy {
	return &Policy{
		Flags: PolicyFlags{
			Definition: []string{"what is", "what's", "define", "definition of", "meaning of"},
			Steps:      []string{"how do i", "how to", "steps to", "step by step"},
			Summary:    []string{"summarize", "summary of", "overview of", "tl;dr"},
		},
		Classification: PolicyClassification{
			LookupExplicit:       []string{"exact", "verbatim", "quote"},
			Compare:              []string{"compare", "difference", " vs ", " versus "},
			Timeline:             []string{"timeline", "chronology", "milestones", "dates"},
			Task:                 []string{"checklist", "plan", "todo"},
			Synthesis:            []string{"combine", "synthesize", "across sources", "overall", "merge"},
			FactWords:            []string{"who", "what", "when", "where", "why", "how", "which"},
			QuestionMarkIsFact:   true,
			ShortLookupWordCount: 4,
		},
		PipelineSettings: map[string]PolicySettingsRow{
			"lookup":    {K: 8, LexicalWeight: 0.8, AllowMultihop: 0, UseRerank: false, GenerateAnswer: false, VerifierMode: "minimal", MaxRepairPasses: 0},
			"fact":      {K: 10, LexicalWeight: 0.5, AllowMultihop: 0, UseRerank: false, GenerateAnswer: true, VerifierMode: "strict", MaxRepairPasses: 1},
			"synthesis": {K: 24, LexicalWeight: 0.4, AllowMultihop: 1, UseRerank: true, GenerateAnswer: true, VerifierMode: "strict_conflict", MaxRepairPasses: 1},
			"compare":   {K: 20, LexicalWeight: 0.5, AllowMultihop: 1, UseRerank: true, GenerateAnswer: true, VerifierMode: "strict", MaxRepairPasses: 1},
			"timeline":  {K: 20, LexicalWeight: 0.6, AllowMultihop: 1, UseRerank: true, GenerateAnswer: true, VerifierMode: "strict_conflict", MaxRepairPasses: 1},
			"task":      {K: 20, LexicalWeight: 0.4, AllowMultihop: 1, UseRerank: true, GenerateAnswer: true, VerifierMode: "strict", MaxRepairPasses: 1},
			"other":     {K: 12, LexicalWeight: 0.5, AllowMultihop: 0, UseRerank: false, GenerateAnswer: true, VerifierMode: "strict", MaxRepairPasses: 1},
		},
	}
}

// LoadPolicy reads a Policy from a YAML file at path, matching §4.1's
// "loadable from an external table" requirement. Unknown top-level keys
// are rejected to keep the policy sealed.
func LoadPolicy(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("router: read policy file: %w", err)
	}
	var p Policy
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("router: decode policy file: %w", err)
	}
	return &p, nil
}

func (p *Policy) settingsFor(intent PrimaryIntent) PolicySettingsRow {
	row, ok := p.PipelineSettings[string(intent)]
	if !ok {
		row = p.PipelineSettings["other"]
	}
	return row
}
