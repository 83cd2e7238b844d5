// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/internal/ratelimit"
	"github.com/pdiddy/litreview/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint.
// Declared as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,venue"

// SemanticScholarConnector queries the Semantic Scholar citation graph.
type SemanticScholarConnector struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	log       *zap.Logger
	apiKey    string
	userAgent string
}

// NewSemanticScholarConnector builds the semantic citation-graph
// connector. The API key is optional.
func NewSemanticScholarConnector(cfg types.SourcesConfig, client *http.Client, limiter *ratelimit.Limiter, log *zap.Logger) *SemanticScholarConnector {
	return &SemanticScholarConnector{
		client:    client,
		limiter:   limiter,
		log:       log.Named("semantic_scholar"),
		apiKey:    cfg.SemanticScholarAPIKey,
		userAgent: cfg.UserAgent,
	}
}

// Name returns the connector identifier.
func (c *SemanticScholarConnector) Name() types.Source { return types.SourceSemanticScholar }

// Search queries Semantic Scholar and returns normalized results,
// failing soft.
func (c *SemanticScholarConnector) Search(ctx context.Context, query string, maxResults int) []types.UnifiedPaper {
	papers, err := c.search(ctx, query, maxResults)
	if err != nil {
		c.log.Warn("search failed", zap.Error(err))
		return nil
	}
	return papers
}

func (c *SemanticScholarConnector) search(ctx context.Context, query string, maxResults int) ([]types.UnifiedPaper, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	var sr semanticResponse
	err = c.limiter.Do(ctx, ratelimit.KeyScholarly, func() error {
		resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
		if err != nil {
			return fmt.Errorf("Semantic Scholar API request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return fmt.Errorf("parsing Semantic Scholar response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var papers []types.UnifiedPaper
	for i, paper := range sr.Data {
		if paper.Title == "" {
			continue
		}
		p := types.UnifiedPaper{
			Title:    paper.Title,
			Abstract: paper.Abstract,
			Journal:  paper.Venue,
			Year:     paper.Year,
			DOI:      paper.ExternalIDs.DOI,
			Source:   types.SourceSemanticScholar,
		}
		for _, a := range paper.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		switch {
		case paper.PaperID != "":
			p.ID = paper.PaperID
		case paper.ExternalIDs.DOI != "":
			p.ID = paper.ExternalIDs.DOI
		default:
			p.ID = fallbackID(types.SourceSemanticScholar, i)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string              `json:"paperId"`
	Title       string              `json:"title"`
	Abstract    string              `json:"abstract"`
	Year        int                 `json:"year"`
	Venue       string              `json:"venue"`
	Authors     []semanticAuthor    `json:"authors"`
	ExternalIDs semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI string `json:"DOI"`
}
