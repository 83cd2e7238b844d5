// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/ratelimit"
	"github.com/pdiddy/litreview/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlexConnector queries the OpenAlex open scholarly graph.
type OpenAlexConnector struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	log       *zap.Logger
	email     string
	userAgent string
}

// NewOpenAlexConnector builds the open-graph connector. The email is
// sent as the mailto parameter for polite pool access.
func NewOpenAlexConnector(cfg types.SourcesConfig, client *http.Client, limiter *ratelimit.Limiter, log *zap.Logger) *OpenAlexConnector {
	return &OpenAlexConnector{
		client:    client,
		limiter:   limiter,
		log:       log.Named("openalex"),
		email:     cfg.OpenAlexEmail,
		userAgent: cfg.UserAgent,
	}
}

// Name returns the connector identifier.
func (c *OpenAlexConnector) Name() types.Source { return types.SourceOpenAlex }

// Search queries OpenAlex and returns normalized results, failing soft.
func (c *OpenAlexConnector) Search(ctx context.Context, query string, maxResults int) []types.UnifiedPaper {
	papers, err := c.search(ctx, query, maxResults)
	if err != nil {
		c.log.Warn("search failed", zap.Error(err))
		return nil
	}
	return papers
}

func (c *OpenAlexConnector) search(ctx context.Context, query string, maxResults int) ([]types.UnifiedPaper, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(maxResults)},
		"page":     {"1"},
	}
	if c.email != "" {
		params.Set("mailto", c.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	var oar openAlexResponse
	err = c.limiter.Do(ctx, ratelimit.KeyScholarly, func() error {
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("OpenAlex API request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
			return fmt.Errorf("parsing OpenAlex response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var papers []types.UnifiedPaper
	for i, work := range oar.Results {
		if work.Title == "" {
			continue
		}
		p := types.UnifiedPaper{
			Title:    work.Title,
			Abstract: reconstructAbstract(work.AbstractInvertedIndex),
			Year:     work.PublicationYear,
			Journal:  work.PrimaryLocation.Source.DisplayName,
			Source:   types.SourceOpenAlex,
		}
		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				p.Authors = append(p.Authors, authorship.Author.DisplayName)
			}
		}
		// OpenAlex is DOI-centric; strip the resolver prefix.
		if work.DOI != "" {
			p.DOI = strings.TrimPrefix(work.DOI, "https://doi.org/")
		}
		switch {
		case work.ID != "":
			p.ID = strings.TrimPrefix(work.ID, "https://openalex.org/")
		case p.DOI != "":
			p.ID = p.DOI
		default:
			p.ID = fallbackID(types.SourceOpenAlex, i)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back
// to plain text. The inverted index maps each word to the positions
// where it appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}
