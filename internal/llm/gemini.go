// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the Google GenAI SDK.
// It is the fallback in the provider chain.
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider builds the fallback provider. The client is
// created lazily on first use so construction never fails.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{apiKey: apiKey, model: model}
}

// Name identifies the provider in logs.
func (p *GeminiProvider) Name() string { return "gemini" }

// Complete sends the prompt and returns the generated text.
func (p *GeminiProvider) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: p.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("creating Gemini client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("Gemini returned no text content")
	}
	return text, nil
}
