package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/orchestrator"
	"github.com/aineshm/searchlayer/internal/output"
)

type queryOptions struct {
	mode       string
	topK       int
	skipVector bool
	format     string
	verbose    bool
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question against the indexed corpus",
		Long: `query routes the question, retrieves hybrid-fused chunks, and in
"answer" mode synthesizes a citation-backed draft and runs it through the
verifier before returning (spec §4.7 Orchestrator).

search mode returns ranked chunks only; answer mode also returns a draft
answer and its verification result, abstaining rather than returning an
unsupported claim.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "answer", "query mode: search or answer")
	cmd.Flags().IntVar(&opts.topK, "top_k", 0, "override the router's recommended result count (0 = use router default)")
	cmd.Flags().BoolVar(&opts.skipVector, "skip_vector", false, "force lexical-only retrieval, skipping the vector index")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text or json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "include the tool_trace in text output")

	return cmd
}

func runQuery(cmd *cobra.Command, query string, opts queryOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var mode orchestrator.Mode
	switch opts.mode {
	case "search":
		mode = orchestrator.ModeSearch
	case "answer":
		mode = orchestrator.ModeAnswer
	default:
		return fmt.Errorf("invalid --mode %q: must be \"search\" or \"answer\"", opts.mode)
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	orch, err := a.buildOrchestrator()
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	runOpts := orchestrator.Options{}
	if cmd.Flags().Changed("top_k") {
		runOpts.TopK = &opts.topK
	}
	if cmd.Flags().Changed("skip_vector") {
		runOpts.SkipVector = &opts.skipVector
	}

	ctx := cmd.Context()
	result, err := orch.Run(ctx, query, mode, runOpts)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	if err := a.logRun(ctx, query, result); err != nil {
		return fmt.Errorf("log run: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printQueryResult(cmd, result, opts.verbose)
}

func printQueryResult(cmd *cobra.Command, result domain.OrchestrationResult, verbose bool) error {
	out := output.New(cmd.OutOrStdout())

	out.Statusf("", "intent: %s | mode: %s | %.1fms", result.Intent, result.Mode, result.LatencyMS)
	out.Newline()

	if result.DraftAnswer != nil {
		if result.Verification != nil && result.Verification.Abstain {
			out.Warning(fmt.Sprintf("abstained: %s", result.Verification.AbstainReason))
		} else {
			out.Success("answer:")
			out.Status("", result.DraftAnswer.AnswerText)
			out.Newline()
			for _, claim := range result.DraftAnswer.Claims {
				out.Status("", "- "+claim.Text)
				for _, c := range claim.Citations {
					loc := c.SourcePath
					if c.Page != nil {
						loc = fmt.Sprintf("%s (page %d)", loc, *c.Page)
					}
					out.Status("", fmt.Sprintf("    [%s %d:%d]", loc, c.QuoteSpanStart, c.QuoteSpanEnd))
				}
			}
		}
		if result.Verification != nil {
			out.Newline()
			out.Status("", fmt.Sprintf("verdict: %s (confidence %.2f)", result.Verification.VerdictCode, result.Verification.Confidence))
		}
	} else {
		out.Statusf("", "found %d chunk(s):", len(result.Chunks))
		for i, c := range result.Chunks {
			loc := c.SourcePath
			if c.Page != nil {
				loc = fmt.Sprintf("%s (page %d)", loc, *c.Page)
			}
			out.Statusf("", "%d. %s (score %.3f)", i+1, loc, c.Score)
			out.Code(snippet(c.ChunkText, 200))
		}
	}

	if verbose {
		out.Newline()
		out.Status("", "tool_trace:")
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.ToolTrace); err != nil {
			return err
		}
	}
	return nil
}

func snippet(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n] + "..."
}

// logRun persists the completed run as an append-only record (spec §3
// "runs" in the persisted layout), keyed by a fresh run id and carrying
// the tool_trace verbatim for later inspection.
func (a *app) logRun(ctx context.Context, query string, result domain.OrchestrationResult) error {
	trace, err := json.Marshal(result.ToolTrace)
	if err != nil {
		return fmt.Errorf("marshal tool trace: %w", err)
	}
	return a.store.LogRun(ctx, domain.RunRecord{
		RunID:     uuid.NewString(),
		Query:     query,
		Intent:    result.Intent,
		ToolTrace: trace,
		LatencyMS: result.LatencyMS,
	})
}
