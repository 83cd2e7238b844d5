// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/litreview/internal/dedup"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/query"
	"github.com/pdiddy/litreview/internal/relevance"
	"github.com/pdiddy/litreview/pkg/types"
)

// analysisConcurrency bounds concurrent per-paper model calls within
// one section. Papers are independent; the rate limiter is not
// involved for provider calls, so the bound lives here.
const analysisConcurrency = 4

// noEvidenceContent is the fixed placeholder body used when no paper
// survives relevance filtering for a section.
const noEvidenceContent = "No relevant peer-reviewed research was found for this section topic. This may reflect limited published evidence or overly narrow search terms."

// processSection runs the per-section sub-pipeline for one heading:
// query construction, retrieval, dedup exclusion, relevance filtering,
// per-paper analysis, optional numeric extraction and table
// generation, and narrative synthesis. nextCitation is the running
// citation counter carried across sections; the updated counter is
// returned. Only provider exhaustion is a hard error.
func (p *Pipeline) processSection(ctx context.Context, rc types.ResearchConfig, heading string, ded *dedup.Session, nextCitation int) (types.SectionResult, int, error) {
	log := p.log.With(zap.String("heading", heading))

	queryTopic := strings.TrimSpace(rc.Topic + " " + rc.Context)
	q := query.SectionQuery(queryTopic, heading)
	log.Info("section query built", zap.String("query", q))

	candidates := p.agg.SearchAll(ctx, q, rc.Sources, p.cfg.Sources.PerSourceLimit)
	p.backfillFromCache(candidates)
	p.cachePapers(candidates)

	fresh := candidates[:0:0]
	for _, c := range candidates {
		if !ded.IsUsed(c) {
			fresh = append(fresh, c)
		}
	}

	cleaned := query.Clean(rc.Topic)
	required := query.RequiredKeywords(rc.Topic)
	excluded := query.ExcludedTerms(cleaned, nil)
	kept, rejected := relevance.Filter(fresh, rc.Topic, required, excluded, relevance.DefaultMinScore)
	log.Info("relevance filter applied",
		zap.Int("candidates", len(candidates)),
		zap.Int("fresh", len(fresh)),
		zap.Int("kept", len(kept)),
		zap.Int("rejected", len(rejected)))

	// Accept papers one at a time, marking each in the session before
	// considering the next. Two backends returning the same paper in
	// this section then collide on the second acceptance, and the
	// duplicate never consumes a TopK slot.
	selected := kept[:0:0]
	for _, c := range kept {
		if len(selected) == rc.TopK {
			break
		}
		if ded.IsUsed(c) {
			continue
		}
		c.CitationNumber = nextCitation + len(selected)
		ded.MarkUsed(c)
		selected = append(selected, c)
	}
	kept = selected

	if len(kept) == 0 {
		return types.SectionResult{Heading: heading, Content: noEvidenceContent}, nextCitation, nil
	}

	digests, rows, err := p.analyzePapers(ctx, rc.Topic, heading, kept)
	if err != nil {
		return types.SectionResult{}, 0, err
	}

	table, err := p.buildTable(ctx, heading, rows)
	if err != nil {
		return types.SectionResult{}, 0, err
	}

	content, err := p.synthesize(ctx, rc.Topic, heading, kept, digests, table)
	if err != nil {
		return types.SectionResult{}, 0, err
	}

	result := types.SectionResult{
		Heading:   heading,
		Content:   content,
		Papers:    kept,
		DataTable: table,
	}
	return result, nextCitation + len(kept), nil
}

// analyzePapers summarizes and probes each paper concurrently. A paper
// whose analysis fails for any reason short of provider exhaustion is
// dropped from the digest list, not retried.
func (p *Pipeline) analyzePapers(ctx context.Context, topic, heading string, papers []types.UnifiedPaper) ([]string, []findingRow, error) {
	digests := make([]string, len(papers))
	findings := make([][]Finding, len(papers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analysisConcurrency)
	for i, paper := range papers {
		g.Go(func() error {
			digest, err := p.analyzePaper(gctx, topic, heading, paper)
			if err != nil {
				return err
			}
			digests[i] = digest

			fs, err := p.extractFindings(gctx, paper)
			if err != nil {
				return err
			}
			findings[i] = fs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var keptDigests []string
	var rows []findingRow
	for i, d := range digests {
		if d != "" {
			keptDigests = append(keptDigests, d)
		}
		for _, f := range findings[i] {
			rows = append(rows, findingRow{Finding: f, Citation: papers[i].CitationNumber})
		}
	}
	return keptDigests, rows, nil
}

// analyzePaper produces one paper's digest. Non-fatal failures yield
// an empty digest.
func (p *Pipeline) analyzePaper(ctx context.Context, topic, heading string, paper types.UnifiedPaper) (string, error) {
	prompt, err := renderTemplate(analysisPromptTmpl, analysisPromptData{
		Topic:   topic,
		Heading: heading,
		Paper:   paper,
	})
	if err != nil {
		return "", err
	}

	digest, err := p.llm.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrAllProvidersFailed) {
			return "", fmt.Errorf("analyzing paper %s: %w", paper.ID, err)
		}
		p.log.Warn("paper analysis failed, omitting from digest",
			zap.String("paper", paper.ID), zap.Error(err))
		return "", nil
	}
	return strings.TrimSpace(digest), nil
}

// synthesize combines the digests (and table, when present) into the
// section prose. Never invoked with an empty evidence set.
func (p *Pipeline) synthesize(ctx context.Context, topic, heading string, papers []types.UnifiedPaper, digests []string, table string) (string, error) {
	if len(digests) == 0 {
		// Every per-paper analysis failed non-fatally; the papers are
		// still cited from metadata alone via the prompt's source list.
		p.log.Warn("no digests survived analysis", zap.String("heading", heading))
	}

	prompt, err := renderTemplate(synthesisPromptTmpl, synthesisPromptData{
		Topic:   topic,
		Heading: heading,
		Papers:  papers,
		Digests: digests,
		Table:   table,
	})
	if err != nil {
		return "", err
	}

	content, err := p.llm.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesizing section %q: %w", heading, err)
	}
	return strings.TrimSpace(content), nil
}
