// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/ratelimit"
	"github.com/pdiddy/litreview/pkg/types"
)

// stubConnector returns fixed results, or nothing when failing.
type stubConnector struct {
	name    types.Source
	results []types.UnifiedPaper
	failing bool
	calls   int
}

func (s *stubConnector) Name() types.Source { return s.name }

func (s *stubConnector) Search(_ context.Context, _ string, _ int) []types.UnifiedPaper {
	s.calls++
	if s.failing {
		return nil
	}
	return s.results
}

func paper(id string, src types.Source) types.UnifiedPaper {
	return types.UnifiedPaper{ID: id, Title: "Paper " + id, Source: src}
}

func testLimiter() *ratelimit.Limiter { return ratelimit.New(nil) }

func testSourcesCfg() types.SourcesConfig {
	return types.SourcesConfig{
		HTTPConfig:     types.HTTPConfig{UserAgent: "litreview-test/0.1"},
		PerSourceLimit: 10,
	}
}

func TestSearchAllSingleSourceDelegates(t *testing.T) {
	pm := &stubConnector{name: types.SourcePubMed, results: []types.UnifiedPaper{paper("1", types.SourcePubMed)}}
	cr := &stubConnector{name: types.SourceCrossRef, results: []types.UnifiedPaper{paper("x", types.SourceCrossRef)}}
	agg := NewAggregatorWith(zap.NewNop(), pm, cr)

	got := agg.SearchAll(context.Background(), "q", types.SourceSelection{PubMed: true}, 10)

	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("SearchAll = %v, want only the pubmed paper", got)
	}
	if cr.calls != 0 {
		t.Error("disabled connector was called")
	}
}

func TestSearchAllConcatenatesWithoutDedup(t *testing.T) {
	// The same title from two sources must appear twice: inter-source
	// dedup belongs to the dedup layer, not the aggregator.
	shared := types.UnifiedPaper{ID: "10.1/x", Title: "Shared", Source: types.SourceCrossRef}
	pm := &stubConnector{name: types.SourcePubMed, results: []types.UnifiedPaper{
		{ID: "1", Title: "Shared", Source: types.SourcePubMed},
	}}
	cr := &stubConnector{name: types.SourceCrossRef, results: []types.UnifiedPaper{shared}}
	agg := NewAggregatorWith(zap.NewNop(), pm, cr)

	got := agg.SearchAll(context.Background(), "q", types.SourceSelection{PubMed: true, CrossRef: true}, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (no aggregator dedup)", len(got))
	}
}

func TestSearchAllIsolatesFailures(t *testing.T) {
	pm := &stubConnector{name: types.SourcePubMed, failing: true}
	oa := &stubConnector{name: types.SourceOpenAlex, results: []types.UnifiedPaper{paper("W1", types.SourceOpenAlex)}}
	agg := NewAggregatorWith(zap.NewNop(), pm, oa)

	got := agg.SearchAll(context.Background(), "q", types.SourceSelection{PubMed: true, OpenAlex: true}, 10)
	if len(got) != 1 || got[0].ID != "W1" {
		t.Fatalf("SearchAll = %v, want the surviving backend's paper", got)
	}
}

func TestSearchAllFixedSourceOrder(t *testing.T) {
	pm := &stubConnector{name: types.SourcePubMed, results: []types.UnifiedPaper{paper("pm", types.SourcePubMed)}}
	cr := &stubConnector{name: types.SourceCrossRef, results: []types.UnifiedPaper{paper("cr", types.SourceCrossRef)}}
	oa := &stubConnector{name: types.SourceOpenAlex, results: []types.UnifiedPaper{paper("oa", types.SourceOpenAlex)}}
	agg := NewAggregatorWith(zap.NewNop(), pm, cr, oa)
	sel := types.SourceSelection{PubMed: true, CrossRef: true, OpenAlex: true}

	for run := 0; run < 5; run++ {
		got := agg.SearchAll(context.Background(), "q", sel, 10)
		if len(got) != 3 || got[0].ID != "pm" || got[1].ID != "cr" || got[2].ID != "oa" {
			t.Fatalf("run %d: order = %v, want [pm cr oa]", run, got)
		}
	}
}

func TestSearchAllNoConnectors(t *testing.T) {
	agg := NewAggregatorWith(zap.NewNop())
	if got := agg.SearchAll(context.Background(), "q", types.DefaultSourceSelection(), 10); got != nil {
		t.Errorf("SearchAll with no connectors = %v, want nil", got)
	}
}

func TestNewAggregatorSkipsWebWithoutKey(t *testing.T) {
	agg := NewAggregator(testSourcesCfg(), testLimiter(), zap.NewNop())
	if _, ok := agg.connectors[types.SourceWeb]; ok {
		t.Error("web connector should require an API key")
	}

	cfg := testSourcesCfg()
	cfg.TavilyAPIKey = "tk"
	agg = NewAggregator(cfg, testLimiter(), zap.NewNop())
	if _, ok := agg.connectors[types.SourceWeb]; !ok {
		t.Error("web connector missing despite API key")
	}
}
