// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/pkg/types"
)

func swapEndpoint(t *testing.T, v *string, url string) {
	t.Helper()
	old := *v
	*v = url
	t.Cleanup(func() { *v = old })
}

func TestCrossRefSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mailto") != "dev@example.com" {
			t.Error("missing mailto parameter")
		}
		fmt.Fprint(w, `{"message":{"items":[
			{"DOI":"10.1000/a","title":["Paper A"],"container-title":["J One"],
			 "abstract":"<jats:p>Plain <jats:italic>text</jats:italic> here.</jats:p>",
			 "author":[{"given":"Ana","family":"Silva"}],
			 "published":{"date-parts":[[2021,6,1]]}},
			{"title":["No DOI Paper"],"published":{"date-parts":[[2019]]}}
		]}}`)
	}))
	defer ts.Close()
	swapEndpoint(t, &crossRefAPIBase, ts.URL)

	cfg := testSourcesCfg()
	cfg.CrossRefEmail = "dev@example.com"
	c := NewCrossRefConnector(cfg, ts.Client(), testLimiter(), zap.NewNop())

	papers := c.Search(context.Background(), "q", 10)
	if len(papers) != 2 {
		t.Fatalf("len = %d, want 2", len(papers))
	}
	a := papers[0]
	if a.ID != "10.1000/a" || a.DOI != "10.1000/a" || a.Year != 2021 {
		t.Errorf("paper = %+v", a)
	}
	if a.Abstract != "Plain text here." {
		t.Errorf("Abstract = %q, want JATS tags stripped", a.Abstract)
	}
	if len(a.Authors) != 1 || a.Authors[0] != "Ana Silva" {
		t.Errorf("Authors = %v", a.Authors)
	}
	if papers[1].ID != "fallback_crossref_1" {
		t.Errorf("fallback ID = %q", papers[1].ID)
	}
}

func TestSemanticScholarSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sk" {
			t.Error("missing x-api-key header")
		}
		fmt.Fprint(w, `{"total":1,"data":[
			{"paperId":"abc123","title":"Graph Paper","abstract":"An abstract.",
			 "year":2020,"venue":"NeurIPS",
			 "authors":[{"name":"Kim Doe"}],"externalIds":{"DOI":"10.1/s2"}}
		]}`)
	}))
	defer ts.Close()
	swapEndpoint(t, &semanticAPIBase, ts.URL)

	cfg := testSourcesCfg()
	cfg.SemanticScholarAPIKey = "sk"
	c := NewSemanticScholarConnector(cfg, ts.Client(), testLimiter(), zap.NewNop())

	papers := c.Search(context.Background(), "q", 10)
	if len(papers) != 1 {
		t.Fatalf("len = %d, want 1", len(papers))
	}
	p := papers[0]
	if p.ID != "abc123" || p.DOI != "10.1/s2" || p.Journal != "NeurIPS" || p.Source != types.SourceSemanticScholar {
		t.Errorf("paper = %+v", p)
	}
}

func TestOpenAlexSearch(t *testing.T) {
	inverted := map[string][]int{"management": {2}, "Diabetes": {0}, "requires": {1}}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"results": []map[string]any{{
				"id":                      "https://openalex.org/W123",
				"title":                   "Alex Paper",
				"doi":                     "https://doi.org/10.1/oa",
				"publication_year":        2022,
				"authorships":             []map[string]any{{"author": map[string]any{"display_name": "Lee Park"}}},
				"abstract_inverted_index": inverted,
				"primary_location":        map[string]any{"source": map[string]any{"display_name": "J Open"}},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()
	swapEndpoint(t, &openAlexAPIBase, ts.URL)

	c := NewOpenAlexConnector(testSourcesCfg(), ts.Client(), testLimiter(), zap.NewNop())

	papers := c.Search(context.Background(), "q", 10)
	if len(papers) != 1 {
		t.Fatalf("len = %d, want 1", len(papers))
	}
	p := papers[0]
	if p.ID != "W123" {
		t.Errorf("ID = %q, want bare OpenAlex ID", p.ID)
	}
	if p.DOI != "10.1/oa" {
		t.Errorf("DOI = %q, want resolver prefix stripped", p.DOI)
	}
	if p.Abstract != "Diabetes requires management" {
		t.Errorf("Abstract = %q, want inverted index reconstructed", p.Abstract)
	}
	if p.Journal != "J Open" {
		t.Errorf("Journal = %q", p.Journal)
	}
}

func TestReconstructAbstractEmpty(t *testing.T) {
	if got := reconstructAbstract(nil); got != "" {
		t.Errorf("reconstructAbstract(nil) = %q, want empty", got)
	}
}

func TestWebSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.APIKey != "tk" {
			t.Errorf("api key = %q", req.APIKey)
		}
		if len(req.IncludeDomains) == 0 {
			t.Error("expected scholarly domain restriction")
		}
		fmt.Fprint(w, `{"results":[
			{"title":"Guideline Update","url":"https://cdc.gov/x","content":"Summary text.","published_date":"2023"},
			{"title":"","url":"https://skip.me","content":"no title"}
		]}`)
	}))
	defer ts.Close()
	swapEndpoint(t, &tavilyAPIBase, ts.URL)

	cfg := testSourcesCfg()
	cfg.TavilyAPIKey = "tk"
	c := NewWebConnector(cfg, ts.Client(), testLimiter(), zap.NewNop())

	papers := c.Search(context.Background(), "q", 5)
	if len(papers) != 1 {
		t.Fatalf("len = %d, want 1 (untitled results skipped)", len(papers))
	}
	p := papers[0]
	if p.ID != "fallback_web_0" || p.Source != types.SourceWeb || p.Year != 2023 {
		t.Errorf("paper = %+v", p)
	}
}

func TestConnectorsFailSoft(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()
	swapEndpoint(t, &crossRefAPIBase, ts.URL)
	swapEndpoint(t, &semanticAPIBase, ts.URL)
	swapEndpoint(t, &openAlexAPIBase, ts.URL)
	swapEndpoint(t, &tavilyAPIBase, ts.URL)

	cfg := testSourcesCfg()
	cfg.TavilyAPIKey = "tk"
	lim := testLimiter()
	log := zap.NewNop()

	conns := []Connector{
		NewCrossRefConnector(cfg, ts.Client(), lim, log),
		NewSemanticScholarConnector(cfg, ts.Client(), lim, log),
		NewOpenAlexConnector(cfg, ts.Client(), lim, log),
		NewWebConnector(cfg, ts.Client(), lim, log),
	}
	for _, c := range conns {
		if got := c.Search(context.Background(), "q", 5); got != nil {
			t.Errorf("%s: Search on failing backend = %v, want nil", c.Name(), got)
		}
	}
}

func TestStripJATS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<jats:p>Hello  world</jats:p>", "Hello world"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripJATS(tt.in); got != tt.want {
			t.Errorf("stripJATS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
