// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/internal/paperstore"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the retrieval metadata cache",
	Long: `Cache manages the local SQLite cache of retrieved paper metadata.
Every paper the research pipeline retrieves is recorded there; reports
themselves are never stored.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats()
		if err != nil {
			return err
		}
		return yaml.NewEncoder(os.Stdout).Encode(stats)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached paper metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Cache cleared.")
		return nil
	},
}

var cacheExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cached papers as YAML to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		return store.Export(os.Stdout)
	},
}

func openStore() (*paperstore.Store, error) {
	cfg := pipelineConfig()
	store, err := paperstore.Open(cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening retrieval cache: %w", err)
	}
	return store, nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheExportCmd)
	rootCmd.AddCommand(cacheCmd)
}
