// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"strings"

	"github.com/pdiddy/litreview/pkg/types"
)

// RenderMarkdown serializes a finished report to Markdown. The string
// is the sole handoff artifact to downstream export or editor
// collaborators; this package has no file-format or storage
// responsibility.
func RenderMarkdown(r *types.ResearchReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title)

	if r.Abstract != "" {
		b.WriteString("## Abstract\n\n")
		b.WriteString(r.Abstract)
		b.WriteString("\n\n")
	}
	if r.Introduction != "" {
		b.WriteString("## Introduction\n\n")
		b.WriteString(r.Introduction)
		b.WriteString("\n\n")
	}

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Heading)
		if s.DataTable != "" {
			b.WriteString(s.DataTable)
			b.WriteString("\n\n")
		}
		b.WriteString(s.Content)
		b.WriteString("\n\n")
	}

	if r.Discussion != "" {
		b.WriteString("## Discussion\n\n")
		b.WriteString(r.Discussion)
		b.WriteString("\n\n")
	}
	if r.Conclusion != "" {
		b.WriteString("## Conclusion\n\n")
		b.WriteString(r.Conclusion)
		b.WriteString("\n\n")
	}

	if len(r.References) > 0 {
		b.WriteString("## References\n\n")
		for i, ref := range r.References {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ref)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\n*Generated %s. %d words, %d references.*\n",
		r.Metadata.GeneratedAt.Format("2006-01-02 15:04 UTC"),
		r.Metadata.WordCount,
		r.Metadata.PaperCount)

	return b.String()
}
