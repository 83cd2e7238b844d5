// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litreview/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourcesConfig holds settings for the source connectors.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// PerSourceLimit is the maximum number of results requested from
	// each backend per query (default 10).
	PerSourceLimit int `json:"per_source_limit" yaml:"per_source_limit"`

	// NCBIAPIKey unlocks the elevated PubMed request quota. Absence
	// degrades politeness, not correctness.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`

	// SemanticScholarAPIKey is an optional key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// CrossRefEmail is sent as the mailto parameter for polite pool access.
	CrossRefEmail string `json:"crossref_email,omitempty" yaml:"crossref_email,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// TavilyAPIKey enables the web fallback connector.
	TavilyAPIKey string `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty"`
}

// LLMConfig holds settings for the language-model orchestrator.
type LLMConfig struct {
	// PrimaryModel is the Anthropic model identifier used first.
	PrimaryModel string `json:"primary_model" yaml:"primary_model"`

	// AnthropicAPIKey authenticates the primary provider.
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty"`

	// FallbackModel is the Gemini model used when the primary provider
	// signals transient failure. Empty disables fallback.
	FallbackModel string `json:"fallback_model" yaml:"fallback_model"`

	// GeminiAPIKey authenticates the fallback provider.
	GeminiAPIKey string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`

	// MaxTokens caps the response length per completion (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// PromptCharBudget caps the prompt size in characters, reserving
	// headroom for the response (default 60000). Longer prompts are
	// truncated with a marker.
	PromptCharBudget int `json:"prompt_char_budget" yaml:"prompt_char_budget"`
}

// StoreConfig holds settings for the retrieval cache.
type StoreConfig struct {
	// Dir is the directory holding litreview.db. Empty disables the cache.
	Dir string `json:"dir" yaml:"dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Sources SourcesConfig `json:"sources" yaml:"sources"`
	LLM     LLMConfig     `json:"llm" yaml:"llm"`
	Store   StoreConfig   `json:"store" yaml:"store"`
}

// DefaultPipelineConfig returns the built-in defaults, later overlaid
// by the config file and environment.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Sources: SourcesConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "litreview/0.1",
			},
			PerSourceLimit: 10,
		},
		LLM: LLMConfig{
			PrimaryModel:     "claude-sonnet-4-5-20250929",
			FallbackModel:    "gemini-2.0-flash",
			MaxTokens:        4096,
			PromptCharBudget: 60000,
		},
	}
}

// ResearchConfig is the caller-facing request for one research run.
type ResearchConfig struct {
	// Topic is the free-text research topic.
	Topic string `json:"topic" yaml:"topic"`

	// Context is optional clinical or situational framing appended to
	// the topic for query construction.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`

	// TopK is the number of papers requested per section (default 10).
	TopK int `json:"top_k" yaml:"top_k"`

	// NSections is the number of body sections to plan (default 5).
	NSections int `json:"n_sections" yaml:"n_sections"`

	// Sources selects the backends to query.
	Sources SourceSelection `json:"sources" yaml:"sources"`
}

// Normalize fills defaulted fields in place.
func (c *ResearchConfig) Normalize() {
	if c.TopK <= 0 {
		c.TopK = 10
	}
	if c.NSections <= 0 {
		c.NSections = 5
	}
	if c.Sources.Count() == 0 {
		c.Sources = DefaultSourceSelection()
	}
}
