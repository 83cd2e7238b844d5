// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources queries the bibliographic backends and normalizes
// every payload into types.UnifiedPaper at the connector boundary.
//
// Connectors fail soft: a network error, malformed payload, or
// non-success status yields an empty slice and a warning log, never an
// error to the caller. Every outbound request passes through the shared
// rate limiter, which is the pipeline's only admission-control point.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/ratelimit"
	"github.com/pdiddy/litreview/pkg/types"
)

// Connector searches a single backend. Implementations log failures
// and return what they have; an empty slice is a valid answer.
type Connector interface {
	Name() types.Source
	Search(ctx context.Context, query string, maxResults int) []types.UnifiedPaper
}

// Aggregator fans a query out to the enabled connectors.
type Aggregator struct {
	connectors map[types.Source]Connector
	log        *zap.Logger
}

// NewAggregator builds the connector set for the given configuration.
// Connectors whose credentials are absent are still constructed (keys
// improve quota, not correctness), except the web fallback which needs
// its API key to function at all.
func NewAggregator(cfg types.SourcesConfig, limiter *ratelimit.Limiter, log *zap.Logger) *Aggregator {
	client := &http.Client{Timeout: cfg.Timeout}
	conns := map[types.Source]Connector{
		types.SourcePubMed:          NewPubMedConnector(cfg, client, limiter, log),
		types.SourceCrossRef:        NewCrossRefConnector(cfg, client, limiter, log),
		types.SourceSemanticScholar: NewSemanticScholarConnector(cfg, client, limiter, log),
		types.SourceOpenAlex:        NewOpenAlexConnector(cfg, client, limiter, log),
	}
	if cfg.TavilyAPIKey != "" {
		conns[types.SourceWeb] = NewWebConnector(cfg, client, limiter, log)
	}
	return &Aggregator{connectors: conns, log: log}
}

// NewAggregatorWith builds an aggregator from explicit connectors.
// Tests and the pipeline's deterministic replays use this.
func NewAggregatorWith(log *zap.Logger, conns ...Connector) *Aggregator {
	m := make(map[types.Source]Connector, len(conns))
	for _, c := range conns {
		m[c.Name()] = c
	}
	return &Aggregator{connectors: m, log: log}
}

// SearchAll queries the selected backends and concatenates their
// results. A single enabled backend is called directly; multiple run
// concurrently with failures isolated per backend. No inter-source
// deduplication happens here; that is the dedup layer's job.
func (a *Aggregator) SearchAll(ctx context.Context, query string, sel types.SourceSelection, perSource int) []types.UnifiedPaper {
	var enabled []Connector
	for _, src := range sel.Enabled() {
		if c, ok := a.connectors[src]; ok {
			enabled = append(enabled, c)
		}
	}

	switch len(enabled) {
	case 0:
		a.log.Warn("no connectors enabled for search", zap.String("query", query))
		return nil
	case 1:
		return enabled[0].Search(ctx, query, perSource)
	}

	results := make([][]types.UnifiedPaper, len(enabled))
	done := make(chan int, len(enabled))
	for i, c := range enabled {
		go func(i int, c Connector) {
			results[i] = c.Search(ctx, query, perSource)
			done <- i
		}(i, c)
	}
	for range enabled {
		<-done
	}

	// Concatenate in the fixed source order so output is reproducible.
	var all []types.UnifiedPaper
	for _, rs := range results {
		all = append(all, rs...)
	}
	return all
}

// fallbackID synthesizes an identifier for sources that provide none.
func fallbackID(src types.Source, index int) string {
	return fmt.Sprintf("fallback_%s_%d", src, index)
}

func readAll(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}
