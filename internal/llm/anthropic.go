// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// anthropicAPIURL is the Anthropic Messages endpoint. Package-level
// var for test substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey string
	model  string
	client *http.Client
}

// NewAnthropicProvider builds the primary provider. A nil client uses
// http.DefaultClient.
func NewAnthropicProvider(apiKey, model string, client *http.Client) *AnthropicProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &AnthropicProvider{apiKey: apiKey, model: model, client: client}
}

// Name identifies the provider in logs.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// anthropicRequest is the request body for the Messages API.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

// anthropicMessage is a single message in the conversation.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response body from the Messages API.
type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

// anthropicContent is a content block in the response.
type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends one user message and returns the concatenated text
// blocks of the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	reqBody := anthropicRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Anthropic API returned %d: %s", resp.StatusCode, string(body))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return "", fmt.Errorf("decoding Anthropic response: %w", err)
	}

	var b strings.Builder
	for _, block := range aResp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("Anthropic API returned no text content")
	}
	return b.String(), nil
}
