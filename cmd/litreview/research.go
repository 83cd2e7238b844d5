// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/paperstore"
	"github.com/pdiddy/litreview/internal/pipeline"
	"github.com/pdiddy/litreview/internal/progress"
	"github.com/pdiddy/litreview/internal/ratelimit"
	"github.com/pdiddy/litreview/internal/sources"
	"github.com/pdiddy/litreview/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [topic]",
	Short: "Run a full literature research pipeline on a topic",
	Long: `Research plans a section structure for the topic, queries the enabled
bibliographic backends per section, filters and deduplicates the
results, summarizes each relevant paper, and synthesizes a literature
review with validated, densely numbered citations.

The report is written as Markdown to stdout or to --output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("context", "", "clinical or situational context appended to the topic")
	researchCmd.Flags().Int("sections", 0, "number of body sections (default 5)")
	researchCmd.Flags().Int("top-k", 0, "papers per section (default 10)")
	researchCmd.Flags().String("sources", "", "comma-separated backends: pubmed,crossref,semantic_scholar,openalex,web (default all but web)")
	researchCmd.Flags().String("output", "", "write the Markdown report to this file instead of stdout")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	sourceList, _ := cmd.Flags().GetString("sources")
	sel, err := parseSources(sourceList)
	if err != nil {
		return err
	}
	if sel.Web && cfg.Sources.TavilyAPIKey == "" {
		return fmt.Errorf("web source requires a Tavily API key")
	}

	clinicalContext, _ := cmd.Flags().GetString("context")
	nSections, _ := cmd.Flags().GetInt("sections")
	topK, _ := cmd.Flags().GetInt("top-k")

	rc := types.ResearchConfig{
		Topic:     strings.Join(args, " "),
		Context:   clinicalContext,
		TopK:      topK,
		NSections: nSections,
		Sources:   sel,
	}

	p, store, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	onProgress := func(u progress.Update) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", u.Percent, u.Message)
	}

	report, err := p.Run(context.Background(), rc, onProgress)
	if err != nil {
		return err
	}

	md := pipeline.RenderMarkdown(report)
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		fmt.Print(md)
		return nil
	}
	if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Report written to %s (%d words, %d references)\n",
		output, report.Metadata.WordCount, report.Metadata.PaperCount)
	return nil
}

// buildPipeline wires the pipeline collaborators from the assembled
// configuration. The retrieval cache is best effort; a broken cache
// directory disables caching rather than failing the run.
func buildPipeline(cfg types.PipelineConfig) (*pipeline.Pipeline, *paperstore.Store, error) {
	orch, err := llm.NewOrchestrator(cfg.LLM, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring language model providers: %w", err)
	}

	limiter := ratelimit.New(ratelimit.DefaultBudgets(cfg.Sources.NCBIAPIKey != ""))
	agg := sources.NewAggregator(cfg.Sources, limiter, logger)

	var store *paperstore.Store
	if cfg.Store.Dir != "" {
		store, err = paperstore.Open(cfg.Store.Dir)
		if err != nil {
			logger.Warn("retrieval cache unavailable", zap.Error(err))
			store = nil
		}
	}

	return pipeline.New(cfg, agg, orch, store, logger), store, nil
}
