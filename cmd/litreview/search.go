// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/ratelimit"
	"github.com/pdiddy/litreview/internal/sources"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run one aggregated query against the bibliographic backends",
	Long: `Search issues a single query to the enabled backends and prints the
normalized results. No relevance filtering or deduplication is applied;
this is the raw aggregator output, useful for inspecting what the
research pipeline would see.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("sources", "", "comma-separated backends (default all but web)")
	searchCmd.Flags().Int("limit", 0, "results per backend (default 10)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	sourceList, _ := cmd.Flags().GetString("sources")
	sel, err := parseSources(sourceList)
	if err != nil {
		return err
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		cfg.Sources.PerSourceLimit = limit
	}

	limiter := ratelimit.New(ratelimit.DefaultBudgets(cfg.Sources.NCBIAPIKey != ""))
	agg := sources.NewAggregator(cfg.Sources, limiter, logger)

	papers := agg.SearchAll(context.Background(), strings.Join(args, " "), sel, cfg.Sources.PerSourceLimit)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return sources.FormatJSON(papers, os.Stdout)
	}
	sources.FormatTable(papers, os.Stdout)
	return nil
}
