// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/ratelimit"
	"github.com/pdiddy/litreview/pkg/types"
)

// tavilyAPIBase is the Tavily search endpoint. Declared as a var so
// tests can substitute an httptest server.
var tavilyAPIBase = "https://api.tavily.com/search"

// webDomains restricts web results to scholarly and clinical sources.
var webDomains = []string{
	"pubmed.ncbi.nlm.nih.gov",
	"ncbi.nlm.nih.gov",
	"arxiv.org",
	"medrxiv.org",
	"biorxiv.org",
	"who.int",
	"cdc.gov",
}

// WebConnector is the generic web/preprint fallback. Results lack
// native identifiers, so each gets a synthesized fallback ID and
// deduplicates by normalized title downstream.
type WebConnector struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	log       *zap.Logger
	apiKey    string
	userAgent string
}

// NewWebConnector builds the web fallback connector.
func NewWebConnector(cfg types.SourcesConfig, client *http.Client, limiter *ratelimit.Limiter, log *zap.Logger) *WebConnector {
	return &WebConnector{
		client:    client,
		limiter:   limiter,
		log:       log.Named("web"),
		apiKey:    cfg.TavilyAPIKey,
		userAgent: cfg.UserAgent,
	}
}

// Name returns the connector identifier.
func (c *WebConnector) Name() types.Source { return types.SourceWeb }

// Search queries the web search API and returns normalized results,
// failing soft.
func (c *WebConnector) Search(ctx context.Context, query string, maxResults int) []types.UnifiedPaper {
	papers, err := c.search(ctx, query, maxResults)
	if err != nil {
		c.log.Warn("search failed", zap.Error(err))
		return nil
	}
	return papers
}

func (c *WebConnector) search(ctx context.Context, query string, maxResults int) ([]types.UnifiedPaper, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	payload := tavilyRequest{
		APIKey:         c.apiKey,
		Query:          query,
		SearchDepth:    "advanced",
		IncludeDomains: webDomains,
		MaxResults:     maxResults,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIBase, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	var tr tavilyResponse
	err = c.limiter.Do(ctx, ratelimit.KeyWeb, func() error {
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("web search request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("web search returned HTTP %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return fmt.Errorf("parsing web search response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var papers []types.UnifiedPaper
	for i, r := range tr.Results {
		if r.Title == "" {
			continue
		}
		p := types.UnifiedPaper{
			ID:       fallbackID(types.SourceWeb, i),
			Title:    r.Title,
			Abstract: r.Content,
			Journal:  r.URL,
			Source:   types.SourceWeb,
		}
		if y, err := strconv.Atoi(r.PublishedDate); err == nil {
			p.Year = y
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// Tavily API JSON structures.
type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	MaxResults     int      `json:"max_results"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	PublishedDate string `json:"published_date"`
}
