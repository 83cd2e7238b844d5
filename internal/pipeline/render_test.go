// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/litreview/pkg/types"
)

func TestRenderMarkdown(t *testing.T) {
	r := &types.ResearchReport{
		Title:        "Heart Failure: A Literature Review",
		Abstract:     "Summary of the evidence [1].",
		Introduction: "Heart failure is common [1].",
		Sections: []types.SectionResult{
			{
				Heading:   "Treatment",
				Content:   "Beta blockers reduce mortality [1].",
				DataTable: "| Finding | Value |\n| --- | --- |\n| Mortality reduction | 34% |",
			},
			{Heading: "Prognosis", Content: noEvidenceContent},
		},
		Discussion: "The evidence is consistent [1].",
		Conclusion: "More trials are needed.",
		References: []string{"Garcia M et al. (2021). Beta blocker trial. J Med."},
		Metadata: types.ReportMetadata{
			WordCount:   250,
			PaperCount:  1,
			GeneratedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
	}

	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Heart Failure: A Literature Review",
		"## Abstract",
		"## Introduction",
		"## Treatment",
		"## Prognosis",
		"## Discussion",
		"## Conclusion",
		"## References",
		"1. Garcia M et al. (2021). Beta blocker trial. J Med.",
		"*Generated 2026-03-14 09:30 UTC. 250 words, 1 references.*",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("rendered markdown missing %q", want)
		}
	}

	// The table appears directly under its section heading, before the
	// section prose.
	treatment := strings.Index(md, "## Treatment")
	table := strings.Index(md, "| Finding | Value |")
	prose := strings.Index(md, "Beta blockers reduce mortality")
	if !(treatment < table && table < prose) {
		t.Errorf("table not rendered between heading and prose: %d/%d/%d", treatment, table, prose)
	}
}

func TestRenderMarkdownOmitsEmptyParts(t *testing.T) {
	r := &types.ResearchReport{
		Title:    "Bare Report",
		Sections: []types.SectionResult{{Heading: "Only", Content: "Text."}},
	}
	md := RenderMarkdown(r)
	for _, absent := range []string{"## Abstract", "## Introduction", "## Discussion", "## Conclusion", "## References"} {
		if strings.Contains(md, absent) {
			t.Errorf("rendered markdown should omit %q when empty", absent)
		}
	}
}
