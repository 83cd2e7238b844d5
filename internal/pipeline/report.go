// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/dedup"
	"github.com/pdiddy/litreview/pkg/types"
)

// assemble merges the finished sections into the final report:
// cross-section paper canonicalization, dense global renumbering,
// framing-content generation, citation validation, and metadata.
func (p *Pipeline) assemble(ctx context.Context, topic string, sections []types.SectionResult) (*types.ResearchReport, error) {
	canonical := renumberSections(sections)

	title := reportTitle(topic)
	body := concatSections(sections)

	framing := make(map[string]string, len(framingInstructions))
	for _, part := range []string{"abstract", "introduction", "discussion", "conclusion"} {
		prompt, err := renderTemplate(framingPromptTmpl, framingPromptData{
			Part:         part,
			Title:        title,
			Topic:        topic,
			Body:         body,
			Instructions: framingInstructions[part],
		})
		if err != nil {
			return nil, err
		}
		text, err := p.llm.Complete(ctx, systemInstruction, prompt)
		if err != nil {
			return nil, fmt.Errorf("generating %s: %w", part, err)
		}
		framing[part] = strings.TrimSpace(text)
	}

	report := &types.ResearchReport{
		Title:        title,
		Abstract:     framing["abstract"],
		Introduction: framing["introduction"],
		Sections:     sections,
		Discussion:   framing["discussion"],
		Conclusion:   framing["conclusion"],
	}
	p.validateReport(report, canonical)

	for _, paper := range canonical {
		report.References = append(report.References, paper.Reference())
	}
	report.Metadata = types.ReportMetadata{
		WordCount:   reportWordCount(report),
		PaperCount:  len(canonical),
		GeneratedAt: time.Now().UTC(),
	}
	return report, nil
}

// renumberSections collapses the sections' papers into one canonical
// set and rewrites every citation marker to the dense global
// numbering. Papers are keyed by native ID, then DOI, then normalized
// title, so a paper retrieved independently by two sections under
// subtly different keys still collapses to one reference entry. The
// canonical papers, numbered 1..N in first-seen order, are returned.
func renumberSections(sections []types.SectionResult) []types.UnifiedPaper {
	var canonical []types.UnifiedPaper
	byID := make(map[string]int)
	byDOI := make(map[string]int)
	byTitle := make(map[string]int)

	lookup := func(paper types.UnifiedPaper) (int, bool) {
		if n, ok := byID[paper.ID]; ok {
			return n, true
		}
		if doi := strings.ToLower(paper.DOI); doi != "" {
			if n, ok := byDOI[doi]; ok {
				return n, true
			}
		}
		if key := dedup.NormalizeTitle(paper.Title); key != "" {
			if n, ok := byTitle[key]; ok {
				return n, true
			}
		}
		return 0, false
	}

	for si := range sections {
		renumber := make(map[int]int, len(sections[si].Papers))
		for pi := range sections[si].Papers {
			paper := sections[si].Papers[pi]
			n, ok := lookup(paper)
			if !ok {
				n = len(canonical) + 1
				paper.CitationNumber = n
				canonical = append(canonical, paper)
				byID[paper.ID] = n
				if doi := strings.ToLower(paper.DOI); doi != "" {
					byDOI[doi] = n
				}
				if key := dedup.NormalizeTitle(paper.Title); key != "" {
					byTitle[key] = n
				}
			}
			renumber[sections[si].Papers[pi].CitationNumber] = n
			sections[si].Papers[pi].CitationNumber = n
		}
		sections[si].Content = rewriteCitations(sections[si].Content, renumber)
		if sections[si].DataTable != "" {
			sections[si].DataTable = rewriteCitations(sections[si].DataTable, renumber)
		}
	}
	return canonical
}

// validateReport strips hallucinated citation markers from every text
// field of the assembled report.
func (p *Pipeline) validateReport(r *types.ResearchReport, canonical []types.UnifiedPaper) {
	removed := 0
	clean := func(text string) string {
		cleaned, n := ValidateCitations(text, canonical)
		removed += n
		return cleaned
	}

	r.Abstract = clean(r.Abstract)
	r.Introduction = clean(r.Introduction)
	for i := range r.Sections {
		r.Sections[i].Content = clean(r.Sections[i].Content)
		if r.Sections[i].DataTable != "" {
			r.Sections[i].DataTable = clean(r.Sections[i].DataTable)
		}
	}
	r.Discussion = clean(r.Discussion)
	r.Conclusion = clean(r.Conclusion)

	if removed > 0 {
		p.log.Warn("removed citation markers outside the valid range",
			zap.Int("removed", removed))
	}
}

// concatSections renders the renumbered section text handed to the
// framing prompts.
func concatSections(sections []types.SectionResult) string {
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Heading)
		if s.DataTable != "" {
			b.WriteString(s.DataTable)
			b.WriteString("\n\n")
		}
		b.WriteString(s.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// reportTitle derives a deterministic display title from the topic.
func reportTitle(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "Literature Review"
	}
	runes := []rune(topic)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes) + ": A Literature Review"
}

// reportWordCount counts whitespace-delimited tokens across the
// report's prose fields.
func reportWordCount(r *types.ResearchReport) int {
	count := len(strings.Fields(r.Abstract)) + len(strings.Fields(r.Introduction))
	for _, s := range r.Sections {
		count += len(strings.Fields(s.Content))
	}
	count += len(strings.Fields(r.Discussion)) + len(strings.Fields(r.Conclusion))
	return count
}
