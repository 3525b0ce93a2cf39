package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aineshm/searchlayer/internal/config"
	"github.com/aineshm/searchlayer/internal/embed"
	"github.com/aineshm/searchlayer/internal/orchestrator"
	"github.com/aineshm/searchlayer/internal/retrieval"
	"github.com/aineshm/searchlayer/internal/router"
	"github.com/aineshm/searchlayer/internal/store"
)

// app bundles the wired collaborators one CLI invocation needs: the
// content store, the two index backends, and (for query) the fully
// assembled Orchestrator. Built fresh per command, matching the
// teacher's per-command wiring rather than a long-lived daemon process.
type app struct {
	cfg    *config.Config
	store  *store.SQLiteStore
	lex    *store.BleveIndex
	vec    *store.HNSWIndex
	vecPath string
}

func openApp(cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := resolvePath(cfg.Storage.DataDir, cfg.Storage.DBPath)
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	lexPath := filepath.Join(cfg.Storage.DataDir, cfg.Storage.IndexDir, "lexical.bleve")
	lex, err := store.NewBleveIndex(lexPath, store.DefaultBM25Config())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	vecPath := resolvePath(cfg.Storage.DataDir, cfg.Storage.IndexFilePath)
	vec := store.NewHNSWIndex(store.DefaultVectorStoreConfig(cfg.Embedding.EmbedDim))
	if _, err := os.Stat(vecPath); err == nil {
		if err := vec.Load(vecPath); err != nil {
			// A corrupt or dimension-mismatched vector file degrades to an
			// empty index rather than failing the command; the Vector
			// Retriever's manifest-safety check will then serve
			// lexical-only (spec §4.3/§8 manifest safety).
			vec = store.NewHNSWIndex(store.DefaultVectorStoreConfig(cfg.Embedding.EmbedDim))
		}
	}

	return &app{cfg: cfg, store: st, lex: lex, vec: vec, vecPath: vecPath}, nil
}

func resolvePath(dataDir, configured string) string {
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(dataDir, configured)
}

func (a *app) close() {
	a.lex.Close()
	a.vec.Close()
	a.store.Close()
}

func (a *app) embedder() retrieval.Embedder {
	return embed.NewEmbedder(a.cfg.Embedding.EmbedDim, embed.DefaultEmbeddingCacheSize)
}

func (a *app) buildRouter() (*router.Router, error) {
	if a.cfg.Router.PolicyFile == "" {
		return router.New(nil), nil
	}
	policy, err := router.LoadPolicy(a.cfg.Router.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("load router policy: %w", err)
	}
	return router.New(policy), nil
}

// buildOrchestrator wires the Router, Lexical/Vector retrievers, Fuser, and
// the answer/verify thresholds derived from config into one Orchestrator
// (spec §6 configuration surface -> spec §4.7 Orchestrator).
func (a *app) buildOrchestrator() (*orchestrator.Orchestrator, error) {
	rtr, err := a.buildRouter()
	if err != nil {
		return nil, err
	}

	lexical := retrieval.NewLexicalRetriever(a.lex, a.store)
	vector := retrieval.NewVectorRetriever(a.vec, a.embedder(), a.store, a.store)
	fuser := retrieval.NewFuser(a.cfg.Retrieval.RRFK)
	hybrid := &orchestrator.HybridRetriever{Lexical: lexical, Vector: vector, Fuser: fuser}

	orch := orchestrator.New(rtr, hybrid)

	orch.SynthThresholds.MinTopicOverlap = a.cfg.Answer.MinTopicOverlap
	orch.SynthThresholds.MinSupportability = a.cfg.Answer.MinSupportability
	orch.SynthThresholds.MinCitationSpanQuality = a.cfg.Answer.MinCitationSpanQuality

	// config.VerifierConfig exposes a single critical_coverage_min knob
	// (spec §6) that drives the fact/default floor; synthesis-family
	// stays at verify.DefaultThresholds()'s 0.2 (gate 7: "0.5 for fact;
	// 0.2 for synthesis-family; else default 0.5") and is left
	// untouched here.
	orch.VerifyThresholds.QueryAlignmentMin = a.cfg.Verifier.QueryAlignmentMin
	orch.VerifyThresholds.CriticalCoverageMinFact = a.cfg.Verifier.CriticalCoverageMin
	orch.VerifyThresholds.CriticalCoverageDefault = a.cfg.Verifier.CriticalCoverageMin
	orch.VerifyThresholds.ClaimSupportMin = a.cfg.Verifier.ClaimSupportMin
	orch.VerifyThresholds.CitationSpanQualityMin = a.cfg.Verifier.CitationSpanQualityMin
	orch.VerifyThresholds.AggregateMin = a.cfg.Verifier.AggregateMin

	return orch, nil
}
