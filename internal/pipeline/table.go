// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/llm"
)

// buildTable generates the section findings table from the validated
// rows. It returns "" whenever a well-formed, non-empty table cannot
// be produced; callers treat "" as "no table".
func (p *Pipeline) buildTable(ctx context.Context, heading string, rows []findingRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	prompt, err := renderTemplate(tablePromptTmpl, tablePromptData{Heading: heading, Rows: rows})
	if err != nil {
		return "", err
	}

	reply, err := p.llm.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrAllProvidersFailed) {
			return "", err
		}
		p.log.Warn("table generation failed", zap.String("heading", heading), zap.Error(err))
		return "", nil
	}

	table := extractTable(reply)
	if !tableHasData(table) {
		p.log.Warn("generated table carries no data, dropping it",
			zap.String("heading", heading))
		return "", nil
	}
	return table, nil
}

// extractTable pulls the contiguous block of pipe-delimited lines out
// of a model reply, dropping any surrounding prose or code fences.
func extractTable(reply string) string {
	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") {
			lines = append(lines, trimmed)
		} else if len(lines) > 0 {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// tableHasData reports whether a Markdown table has at least one data
// row with at least one populated, non-placeholder cell. Header and
// separator rows do not count; a table of dashes is no table.
func tableHasData(table string) bool {
	lines := strings.Split(table, "\n")
	if len(lines) < 3 {
		return false
	}
	for _, line := range lines[2:] {
		for _, cell := range strings.Split(strings.Trim(line, "|"), "|") {
			cell = strings.TrimSpace(cell)
			if cell == "" || isPlaceholder(cell) || isSeparatorCell(cell) {
				continue
			}
			return true
		}
	}
	return false
}

// isSeparatorCell reports whether the cell is purely Markdown
// alignment syntax (dashes and colons).
func isSeparatorCell(cell string) bool {
	for _, r := range cell {
		if r != '-' && r != ':' {
			return false
		}
	}
	return len(cell) > 0
}
