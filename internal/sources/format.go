// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/litreview/pkg/types"
)

// FormatTable writes papers as a human-readable table to w.
func FormatTable(papers []types.UnifiedPaper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %s\n",
		"Rank", "Title", "Authors", "Year", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 104))

	for i, p := range papers {
		title := truncate(p.Title, 60)
		authors := formatAuthors(p.Authors)
		year := ""
		if p.Year > 0 {
			year = fmt.Sprintf("%d", p.Year)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %s\n",
			i+1, title, authors, year, p.Source)
	}

	fmt.Fprintf(w, "\n%d results\n", len(papers))
}

// FormatJSON writes papers as indented JSON to w.
func FormatJSON(papers []types.UnifiedPaper, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(papers)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
