// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/ratelimit"
	"github.com/pdiddy/litreview/pkg/types"
)

// crossRefAPIBase is the CrossRef works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossRefAPIBase = "https://api.crossref.org/works"

// CrossRefConnector queries the CrossRef DOI registry.
type CrossRefConnector struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	log       *zap.Logger
	email     string
	userAgent string
}

// NewCrossRefConnector builds the cross-reference connector. The email
// is sent as the mailto parameter for polite pool access.
func NewCrossRefConnector(cfg types.SourcesConfig, client *http.Client, limiter *ratelimit.Limiter, log *zap.Logger) *CrossRefConnector {
	return &CrossRefConnector{
		client:    client,
		limiter:   limiter,
		log:       log.Named("crossref"),
		email:     cfg.CrossRefEmail,
		userAgent: cfg.UserAgent,
	}
}

// Name returns the connector identifier.
func (c *CrossRefConnector) Name() types.Source { return types.SourceCrossRef }

// Search queries CrossRef and returns normalized results, failing soft.
func (c *CrossRefConnector) Search(ctx context.Context, query string, maxResults int) []types.UnifiedPaper {
	papers, err := c.search(ctx, query, maxResults)
	if err != nil {
		c.log.Warn("search failed", zap.Error(err))
		return nil
	}
	return papers
}

func (c *CrossRefConnector) search(ctx context.Context, query string, maxResults int) ([]types.UnifiedPaper, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{
		"query": {query},
		"rows":  {strconv.Itoa(maxResults)},
	}
	if c.email != "" {
		params.Set("mailto", c.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossRefAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	var cr crossRefResponse
	err = c.limiter.Do(ctx, ratelimit.KeyScholarly, func() error {
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("CrossRef API request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("CrossRef API returned HTTP %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return fmt.Errorf("parsing CrossRef response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var papers []types.UnifiedPaper
	for i, item := range cr.Message.Items {
		p := types.UnifiedPaper{
			Abstract: stripJATS(item.Abstract),
			DOI:      item.DOI,
			Source:   types.SourceCrossRef,
		}
		if len(item.Title) > 0 {
			p.Title = strings.TrimSpace(item.Title[0])
		}
		if p.Title == "" {
			continue
		}
		if len(item.ContainerTitle) > 0 {
			p.Journal = item.ContainerTitle[0]
		}
		for _, a := range item.Authors {
			name := strings.TrimSpace(a.Given + " " + a.Family)
			if name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		if len(item.Published.DateParts) > 0 && len(item.Published.DateParts[0]) > 0 {
			p.Year = item.Published.DateParts[0][0]
		}
		if item.DOI != "" {
			p.ID = item.DOI
		} else {
			p.ID = fallbackID(types.SourceCrossRef, i)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// stripJATS removes the JATS XML tags CrossRef wraps abstracts in.
func stripJATS(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}

// CrossRef API JSON structures.
type crossRefResponse struct {
	Message struct {
		Items []crossRefItem `json:"items"`
	} `json:"message"`
}

type crossRefItem struct {
	DOI            string           `json:"DOI"`
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Abstract       string           `json:"abstract"`
	Authors        []crossRefAuthor `json:"author"`
	Published      crossRefDate     `json:"published"`
}

type crossRefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossRefDate struct {
	DateParts [][]int `json:"date-parts"`
}
