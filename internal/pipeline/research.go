// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a full research run: section planning,
// multi-source retrieval, relevance filtering, model-driven analysis
// and synthesis, and report assembly with globally renumbered
// citations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/dedup"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/paperstore"
	"github.com/pdiddy/litreview/internal/progress"
	"github.com/pdiddy/litreview/internal/sources"
	"github.com/pdiddy/litreview/pkg/types"
)

// Pipeline owns the collaborators of one research engine instance. It
// is safe for concurrent runs; all per-run state lives in the Run
// call.
type Pipeline struct {
	cfg   types.PipelineConfig
	agg   *sources.Aggregator
	llm   *llm.Orchestrator
	store *paperstore.Store
	log   *zap.Logger
}

// New wires a pipeline from its collaborators. store may be nil to
// disable the retrieval cache.
func New(cfg types.PipelineConfig, agg *sources.Aggregator, orch *llm.Orchestrator, store *paperstore.Store, log *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		agg:   agg,
		llm:   orch,
		store: store,
		log:   log.Named("pipeline"),
	}
}

// Run executes one research invocation. Sections are processed
// strictly sequentially so that each section's dedup commitments are
// visible to the next. Only provider exhaustion aborts the run; in
// that case partial results are discarded rather than returned, since
// a report without framing sections would be misleading.
func (p *Pipeline) Run(ctx context.Context, rc types.ResearchConfig, onProgress progress.Func) (*types.ResearchReport, error) {
	if strings.TrimSpace(rc.Topic) == "" {
		return nil, errors.New("research topic is empty")
	}
	rc.Normalize()

	rep := progress.NewReporter(onProgress)
	rep.Report("planning", "Planning report structure", 5)

	headings, err := p.planSections(ctx, rc.Topic, rc.Context, rc.NSections)
	if err != nil {
		return nil, fmt.Errorf("planning sections: %w", err)
	}
	p.log.Info("sections planned", zap.Strings("headings", headings))

	session := dedup.NewSession()
	sections := make([]types.SectionResult, 0, len(headings))
	nextCitation := 1

	for i, heading := range headings {
		percent := 15 + (70*i)/len(headings)
		rep.Report("section", fmt.Sprintf("Researching %q (%d of %d)", heading, i+1, len(headings)), percent)

		result, next, err := p.processSection(ctx, rc, heading, session, nextCitation)
		if err != nil {
			return nil, fmt.Errorf("processing section %q: %w", heading, err)
		}
		sections = append(sections, result)
		nextCitation = next
	}

	rep.Report("assembly", "Assembling report", 90)
	report, err := p.assemble(ctx, rc.Topic, sections)
	if err != nil {
		return nil, fmt.Errorf("assembling report: %w", err)
	}

	rep.Report("done", "Research complete", 100)
	p.log.Info("research run complete",
		zap.Int("papers", report.Metadata.PaperCount),
		zap.Int("words", report.Metadata.WordCount))
	return report, nil
}

// backfillFromCache fills gaps in freshly retrieved records from the
// retrieval cache. Some backends omit abstracts a previous run fetched
// elsewhere; the cached copy supplies only the fields the live
// response left empty. Must run before cachePapers so the upsert does
// not clobber a cached abstract with a blank one.
func (p *Pipeline) backfillFromCache(papers []types.UnifiedPaper) {
	if p.store == nil {
		return
	}
	for i := range papers {
		if papers[i].Abstract != "" {
			continue
		}
		cached, ok, err := p.store.Get(papers[i].ID)
		if err != nil || !ok {
			continue
		}
		papers[i].Abstract = cached.Abstract
		if papers[i].Journal == "" {
			papers[i].Journal = cached.Journal
		}
		if papers[i].Year == 0 {
			papers[i].Year = cached.Year
		}
	}
}

// cachePapers upserts retrieved papers into the retrieval cache,
// best effort.
func (p *Pipeline) cachePapers(papers []types.UnifiedPaper) {
	if p.store == nil || len(papers) == 0 {
		return
	}
	if err := p.store.PutAll(papers); err != nil {
		p.log.Warn("caching retrieved papers failed", zap.Error(err))
	}
}
