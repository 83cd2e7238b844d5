// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"regexp"
	"strconv"

	"github.com/pdiddy/litreview/pkg/types"
)

// citationPattern matches bracketed numeric citation markers.
var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// ValidateCitations removes every [n] marker in text whose n was never
// assigned to one of papers. It returns the cleaned text and the
// number of markers removed. This is a pure text transform run once
// over the fully-assembled, globally-renumbered document as the last
// defense against hallucinated citations.
func ValidateCitations(text string, papers []types.UnifiedPaper) (string, int) {
	valid := make(map[int]bool, len(papers))
	for _, p := range papers {
		if p.CitationNumber > 0 {
			valid[p.CitationNumber] = true
		}
	}

	removed := 0
	cleaned := citationPattern.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(citationPattern.FindStringSubmatch(m)[1])
		if err != nil || !valid[n] {
			removed++
			return ""
		}
		return m
	})
	return cleaned, removed
}

// rewriteCitations replaces every [old] marker in text according to
// renumber. Markers absent from the map are left untouched for the
// validator to remove.
func rewriteCitations(text string, renumber map[int]int) string {
	return citationPattern.ReplaceAllStringFunc(text, func(m string) string {
		old, err := strconv.Atoi(citationPattern.FindStringSubmatch(m)[1])
		if err != nil {
			return m
		}
		if newNum, ok := renumber[old]; ok {
			return "[" + strconv.Itoa(newNum) + "]"
		}
		return m
	})
}
