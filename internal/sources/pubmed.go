// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/internal/ratelimit"
	"github.com/pdiddy/litreview/pkg/types"
)

// NCBI E-utilities endpoints. Declared as vars so tests can substitute
// an httptest server.
var (
	pubmedESearchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedESummaryBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
	pubmedEFetchBase   = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// pubmedBatchSize caps IDs per metadata call.
const pubmedBatchSize = 10

// pubmedRateRetries gives three attempts per batch (1s, 2s backoff) on
// rate-limit responses; other failures abort the batch without retry.
const pubmedRateRetries = 2

// PubMedConnector queries the NCBI E-utilities in two stages: esearch
// for PMIDs, then esummary/efetch for metadata in capped batches. When
// the staged JSON path degrades it falls back to a raw text-protocol
// scrape as a last resort.
type PubMedConnector struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	log       *zap.Logger
	apiKey    string
	userAgent string
}

// NewPubMedConnector builds the primary biomedical connector. The API
// key is optional and only affects quota.
func NewPubMedConnector(cfg types.SourcesConfig, client *http.Client, limiter *ratelimit.Limiter, log *zap.Logger) *PubMedConnector {
	return &PubMedConnector{
		client:    client,
		limiter:   limiter,
		log:       log.Named("pubmed"),
		apiKey:    cfg.NCBIAPIKey,
		userAgent: cfg.UserAgent,
	}
}

// Name returns the connector identifier.
func (c *PubMedConnector) Name() types.Source { return types.SourcePubMed }

// Search runs the staged ID→metadata flow and, if that path fails
// entirely, the raw-protocol fallback. Failures degrade to an empty
// slice.
func (c *PubMedConnector) Search(ctx context.Context, query string, maxResults int) []types.UnifiedPaper {
	papers, err := c.stagedSearch(ctx, query, maxResults)
	if err == nil {
		return papers
	}
	c.log.Warn("staged search failed, trying raw protocol", zap.Error(err))

	papers, err = c.rawSearch(ctx, query, maxResults)
	if err != nil {
		c.log.Warn("raw protocol search failed", zap.Error(err))
		return nil
	}
	return papers
}

func (c *PubMedConnector) stagedSearch(ctx context.Context, query string, maxResults int) ([]types.UnifiedPaper, error) {
	ids, err := c.SearchIDs(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	summaries, err := c.FetchMetadata(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Assemble in esearch relevance order.
	var papers []types.UnifiedPaper
	for _, id := range ids {
		s, ok := summaries[id]
		if !ok {
			continue
		}
		papers = append(papers, types.UnifiedPaper{
			ID:       id,
			Title:    s.Title,
			Abstract: s.Abstract,
			Authors:  s.Authors,
			Journal:  s.Journal,
			Year:     s.Year,
			DOI:      s.DOI,
			Source:   types.SourcePubMed,
		})
	}
	return papers, nil
}

// Summary is the per-PMID metadata collected by FetchMetadata.
type Summary struct {
	Title    string
	Abstract string
	Authors  []string
	Journal  string
	Year     int
	DOI      string
}

// SearchIDs runs esearch and returns PMIDs in relevance order.
func (c *PubMedConnector) SearchIDs(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {strconv.Itoa(maxResults)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	var parsed esearchResponse
	err := c.getJSON(ctx, pubmedESearchBase+"?"+params.Encode(), &parsed)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	return parsed.ESearchResult.IDList, nil
}

// FetchMetadata collects summaries for the given PMIDs in batches of at
// most ten IDs. A failing batch is logged and skipped; the call errors
// only when every batch failed.
func (c *PubMedConnector) FetchMetadata(ctx context.Context, ids []string) (map[string]Summary, error) {
	out := make(map[string]Summary)
	var lastErr error

	for start := 0; start < len(ids); start += pubmedBatchSize {
		end := start + pubmedBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		if err := c.fetchBatch(ctx, batch, out); err != nil {
			lastErr = err
			c.log.Warn("metadata batch failed", zap.Strings("ids", batch), zap.Error(err))
		}
	}

	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (c *PubMedConnector) fetchBatch(ctx context.Context, batch []string, out map[string]Summary) error {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(batch, ",")},
		"retmode": {"json"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	var parsed esummaryResponse
	if err := c.getJSON(ctx, pubmedESummaryBase+"?"+params.Encode(), &parsed); err != nil {
		return fmt.Errorf("esummary: %w", err)
	}

	for id, raw := range parsed.Result {
		if id == "uids" {
			continue
		}
		var doc esummaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		s := Summary{
			Title:   strings.TrimSpace(doc.Title),
			Journal: doc.FullJournalName,
			Year:    yearFrom(doc.PubDate),
		}
		for _, a := range doc.Authors {
			if a.Name != "" {
				s.Authors = append(s.Authors, a.Name)
			}
		}
		for _, aid := range doc.ArticleIDs {
			if aid.IDType == "doi" {
				s.DOI = aid.Value
			}
		}
		out[id] = s
	}

	// Abstracts come from efetch XML; their absence never fails a batch.
	c.attachAbstracts(ctx, batch, out)
	return nil
}

// attachAbstracts fetches abstracts for a batch and fills them into the
// summaries. Degrades silently to empty abstracts.
func (c *PubMedConnector) attachAbstracts(ctx context.Context, batch []string, out map[string]Summary) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(batch, ",")},
		"retmode": {"xml"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.get(ctx, pubmedEFetchBase+"?"+params.Encode())
	if err != nil {
		c.log.Debug("abstract fetch failed", zap.Error(err))
		return
	}

	var set efetchArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		c.log.Debug("abstract parse failed", zap.Error(err))
		return
	}

	for _, art := range set.Articles {
		s, ok := out[art.MedlineCitation.PMID]
		if !ok {
			continue
		}
		s.Abstract = strings.TrimSpace(strings.Join(art.MedlineCitation.Article.Abstract.Texts, " "))
		out[art.MedlineCitation.PMID] = s
	}
}

// rawSearch is the last-resort path: esearch XML for IDs, then an
// efetch plain-text scrape. The text format is a human-readable record
// list; parsing is best effort.
func (c *PubMedConnector) rawSearch(ctx context.Context, query string, maxResults int) ([]types.UnifiedPaper, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{
		"db":     {"pubmed"},
		"term":   {query},
		"retmax": {strconv.Itoa(maxResults)},
		"sort":   {"relevance"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.get(ctx, pubmedESearchBase+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("raw esearch: %w", err)
	}
	var idResp esearchXMLResponse
	if err := xml.Unmarshal(body, &idResp); err != nil {
		return nil, fmt.Errorf("parsing raw esearch: %w", err)
	}
	if len(idResp.IDs) == 0 {
		return nil, nil
	}

	fetchParams := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(idResp.IDs, ",")},
		"rettype": {"abstract"},
		"retmode": {"text"},
	}
	if c.apiKey != "" {
		fetchParams.Set("api_key", c.apiKey)
	}

	text, err := c.get(ctx, pubmedEFetchBase+"?"+fetchParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("raw efetch: %w", err)
	}

	papers := parseAbstractText(string(text))
	if len(papers) == 0 {
		return nil, fmt.Errorf("raw efetch returned no parseable records")
	}
	return papers, nil
}

// getJSON performs a rate-limited GET with 429 retries and decodes the
// JSON body into v.
func (c *PubMedConnector) getJSON(ctx context.Context, reqURL string, v any) error {
	body, err := c.get(ctx, reqURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func (c *PubMedConnector) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	var body []byte
	err = c.limiter.Do(ctx, ratelimit.KeyPubMed, func() error {
		resp, err := httputil.DoWithRetry(ctx, c.client, req, pubmedRateRetries)
		if err != nil {
			return fmt.Errorf("eutils request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("eutils returned HTTP %d", resp.StatusCode)
		}
		body, err = readAll(resp.Body)
		return err
	})
	return body, err
}

// yearFrom extracts the first four-digit year from a pubdate string
// like "2023 Jan 15".
func yearFrom(pubdate string) int {
	for _, f := range strings.Fields(pubdate) {
		if len(f) == 4 {
			if y, err := strconv.Atoi(f); err == nil && y > 1500 {
				return y
			}
		}
	}
	return 0
}

// recordStart matches the "N. Journal..." line opening each text record.
var recordStart = regexp.MustCompile(`(?m)^\d+\. `)

var pmidPattern = regexp.MustCompile(`PMID: (\d+)`)
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// parseAbstractText scrapes efetch's plain-text abstract format. Each
// record is paragraph-structured: journal line, title, authors, then
// body paragraphs with the abstract as the longest one.
func parseAbstractText(text string) []types.UnifiedPaper {
	var papers []types.UnifiedPaper
	for _, record := range recordStart.Split(text, -1) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		m := pmidPattern.FindStringSubmatch(record)
		if m == nil {
			continue
		}

		paras := splitParagraphs(record)
		if len(paras) < 2 {
			continue
		}

		p := types.UnifiedPaper{
			ID:      m[1],
			Journal: firstLine(paras[0]),
			Title:   strings.TrimSuffix(collapseWhitespace(paras[1]), "."),
			Source:  types.SourcePubMed,
		}
		if ym := yearPattern.FindString(paras[0]); ym != "" {
			p.Year, _ = strconv.Atoi(ym)
		}
		if len(paras) > 2 {
			p.Authors = splitAuthors(paras[2])
		}

		// Abstract: the longest paragraph past the header block.
		for _, para := range paras[3:] {
			flat := collapseWhitespace(para)
			if strings.Contains(flat, "PMID:") || strings.HasPrefix(flat, "DOI:") {
				continue
			}
			if len(flat) > len(p.Abstract) {
				p.Abstract = flat
			}
		}
		papers = append(papers, p)
	}
	return papers
}

func splitParagraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

func splitAuthors(para string) []string {
	flat := collapseWhitespace(para)
	// Author paragraphs read "Smith J(1), Jones K(2)." with optional
	// affiliation markers.
	flat = strings.TrimSuffix(flat, ".")
	var authors []string
	for _, a := range strings.Split(flat, ",") {
		a = strings.TrimSpace(a)
		if i := strings.IndexByte(a, '('); i > 0 {
			a = strings.TrimSpace(a[:i])
		}
		if a != "" {
			authors = append(authors, a)
		}
	}
	return authors
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	// Trim the trailing citation details after the journal name.
	if i := strings.IndexByte(s, ';'); i > 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ". "); i > 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// E-utilities response shapes.
type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esearchXMLResponse struct {
	XMLName xml.Name `xml:"eSearchResult"`
	IDs     []string `xml:"IdList>Id"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryDoc struct {
	UID             string            `json:"uid"`
	Title           string            `json:"title"`
	FullJournalName string            `json:"fulljournalname"`
	PubDate         string            `json:"pubdate"`
	Authors         []esummaryAuthor  `json:"authors"`
	ArticleIDs      []esummaryArticle `json:"articleids"`
}

type esummaryAuthor struct {
	Name string `json:"name"`
}

type esummaryArticle struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}

type efetchArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []efetchArticle `xml:"PubmedArticle"`
}

type efetchArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Abstract struct {
				Texts []string `xml:"AbstractText"`
			} `xml:"Abstract"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}
