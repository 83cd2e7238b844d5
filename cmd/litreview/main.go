// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litreview CLI. It wires the
// research pipeline behind subcommands: research runs a full
// multi-source literature review, search issues one aggregated query,
// cache inspects the retrieval cache, and version prints the build
// version.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/secrets"
	"github.com/pdiddy/litreview/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is the process-wide logger, configured in the pre-run hook.
var logger *zap.Logger

// secretDefault returns fallback when set, then the .secrets/ value,
// then the environment variable named envKey.
func secretDefault(key, fallback, envKey string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return os.Getenv(envKey)
}

// rootCmd is the base command for the litreview CLI.
var rootCmd = &cobra.Command{
	Use:   "litreview",
	Short: "Multi-source literature research and review generation",
	Long: `litreview researches a free-text topic across bibliographic backends
(PubMed, CrossRef, Semantic Scholar, OpenAlex, optional web search),
filters and deduplicates the results, and drives a language model to
synthesize an evidence-based literature review with validated citations.

The research subcommand runs the full pipeline. search issues a single
aggregated query for inspection, and cache manages the local retrieval
metadata cache.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional local convenience, same keys as the process
		// environment.
		_ = godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		logger, err = newLogger(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litreview.yaml or ~/.config/litreview/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litreview")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litreview"))
		}
	}

	viper.SetEnvPrefix("LITREVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	}
	return cfg.Build()
}

// pipelineConfig assembles the stage configuration from defaults, the
// config file/environment, and the secrets directory.
func pipelineConfig() types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()

	if d := viper.GetDuration("http.timeout"); d > 0 {
		cfg.Sources.Timeout = d
	}
	if ua := viper.GetString("http.user_agent"); ua != "" {
		cfg.Sources.UserAgent = ua
	}
	if n := viper.GetInt("sources.per_source_limit"); n > 0 {
		cfg.Sources.PerSourceLimit = n
	}
	cfg.Sources.NCBIAPIKey = secretDefault("ncbi-api-key",
		viper.GetString("sources.ncbi_api_key"), "NCBI_API_KEY")
	cfg.Sources.SemanticScholarAPIKey = secretDefault("semantic-scholar-api-key",
		viper.GetString("sources.semantic_scholar_api_key"), "SEMANTIC_SCHOLAR_API_KEY")
	cfg.Sources.CrossRefEmail = secretDefault("crossref-email",
		viper.GetString("sources.crossref_email"), "CROSSREF_EMAIL")
	cfg.Sources.OpenAlexEmail = secretDefault("openalex-email",
		viper.GetString("sources.openalex_email"), "OPENALEX_EMAIL")
	cfg.Sources.TavilyAPIKey = secretDefault("tavily-api-key",
		viper.GetString("sources.tavily_api_key"), "TAVILY_API_KEY")

	if m := viper.GetString("llm.primary_model"); m != "" {
		cfg.LLM.PrimaryModel = m
	}
	if m := viper.GetString("llm.fallback_model"); m != "" {
		cfg.LLM.FallbackModel = m
	}
	cfg.LLM.AnthropicAPIKey = secretDefault("anthropic-api-key",
		viper.GetString("llm.anthropic_api_key"), "ANTHROPIC_API_KEY")
	cfg.LLM.GeminiAPIKey = secretDefault("gemini-api-key",
		viper.GetString("llm.gemini_api_key"), "GEMINI_API_KEY")
	if n := viper.GetInt("llm.max_tokens"); n > 0 {
		cfg.LLM.MaxTokens = n
	}
	if n := viper.GetInt("llm.prompt_char_budget"); n > 0 {
		cfg.LLM.PromptCharBudget = n
	}

	cfg.Store.Dir = viper.GetString("store.dir")
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = ".litreview"
	}
	return cfg
}

// parseSources turns a comma-separated source list into a selection.
// Empty input yields the default selection.
func parseSources(list string) (types.SourceSelection, error) {
	if strings.TrimSpace(list) == "" {
		return types.DefaultSourceSelection(), nil
	}
	var sel types.SourceSelection
	for _, name := range strings.Split(list, ",") {
		switch types.Source(strings.TrimSpace(name)) {
		case types.SourcePubMed:
			sel.PubMed = true
		case types.SourceCrossRef:
			sel.CrossRef = true
		case types.SourceSemanticScholar:
			sel.SemanticScholar = true
		case types.SourceOpenAlex:
			sel.OpenAlex = true
		case types.SourceWeb:
			sel.Web = true
		default:
			return types.SourceSelection{}, fmt.Errorf("unknown source %q", name)
		}
	}
	return sel, nil
}

func main() {
	start := time.Now()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error after %s: %v\n", time.Since(start).Round(time.Second), err)
		os.Exit(1)
	}
}
