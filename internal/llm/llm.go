// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides text-generation providers and the fallback
// orchestration between them. The primary provider is the Anthropic
// Messages API; when it fails, the same request is replayed against
// the Gemini API before giving up.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/pkg/types"
)

// ErrAllProvidersFailed reports that every configured provider
// rejected a request. It is the only non-recoverable failure in the
// analysis stages.
var ErrAllProvidersFailed = errors.New("all language model providers failed")

// Provider generates a completion for one prompt.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// Complete sends the system and user prompts and returns the
	// generated text.
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// truncationMarker is appended when a prompt is cut to fit the
// character budget.
const truncationMarker = "\n\n[content truncated]"

// Orchestrator runs requests against the primary provider and falls
// back to the secondary on any error.
type Orchestrator struct {
	providers []Provider
	log       *zap.Logger
	maxTokens int
	charLimit int
}

// NewOrchestrator builds the provider chain from the configuration.
// Providers without credentials are skipped.
func NewOrchestrator(cfg types.LLMConfig, log *zap.Logger) (*Orchestrator, error) {
	var providers []Provider
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.PrimaryModel, nil))
	}
	if cfg.GeminiAPIKey != "" {
		providers = append(providers, NewGeminiProvider(cfg.GeminiAPIKey, cfg.FallbackModel))
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no language model provider configured")
	}
	return NewOrchestratorWith(cfg, log, providers...), nil
}

// NewOrchestratorWith builds an orchestrator over an explicit provider
// chain. Used by tests and by callers that construct providers
// themselves.
func NewOrchestratorWith(cfg types.LLMConfig, log *zap.Logger, providers ...Provider) *Orchestrator {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	charLimit := cfg.PromptCharBudget
	if charLimit <= 0 {
		charLimit = 60000
	}
	return &Orchestrator{
		providers: providers,
		log:       log.Named("llm"),
		maxTokens: maxTokens,
		charLimit: charLimit,
	}
}

// Complete tries each provider in order until one succeeds. The prompt
// is truncated to the character budget before any provider sees it, so
// a fallback replays exactly the same request.
func (o *Orchestrator) Complete(ctx context.Context, system, prompt string) (string, error) {
	prompt = o.truncate(prompt)

	var errs []error
	for _, p := range o.providers {
		text, err := p.Complete(ctx, system, prompt, o.maxTokens)
		if err == nil {
			return text, nil
		}
		o.log.Warn("provider failed",
			zap.String("provider", p.Name()),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

// truncate cuts the prompt at the character budget and appends the
// truncation marker so the model knows the content is incomplete.
func (o *Orchestrator) truncate(prompt string) string {
	if len(prompt) <= o.charLimit {
		return prompt
	}
	return prompt[:o.charLimit] + truncationMarker
}
