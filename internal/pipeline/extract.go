// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/pkg/types"
)

// Finding is one quantitative result probed out of a paper abstract.
type Finding struct {
	Metric     string `json:"metric"`
	Value      string `json:"value"`
	Unit       string `json:"unit"`
	Population string `json:"population"`
	Context    string `json:"context"`
}

// findingRow pairs a finding with the citation number of its paper for
// table generation.
type findingRow struct {
	Finding
	Citation int
}

// findingsReply is the JSON shape the extraction prompt requests.
type findingsReply struct {
	Findings []Finding `json:"findings"`
}

// placeholderValues are cell contents that carry no data. A finding
// whose metric or value reduces to one of these is dropped.
var placeholderValues = map[string]bool{
	"":             true,
	"-":            true,
	"n/a":          true,
	"na":           true,
	"none":         true,
	"unknown":      true,
	"not reported": true,
}

// extractFindings probes one paper for numeric findings. Any failure
// other than provider exhaustion degrades to no findings for that
// paper.
func (p *Pipeline) extractFindings(ctx context.Context, paper types.UnifiedPaper) ([]Finding, error) {
	if strings.TrimSpace(paper.Abstract) == "" {
		return nil, nil
	}

	prompt, err := renderTemplate(extractionPromptTmpl, struct {
		Paper types.UnifiedPaper
	}{Paper: paper})
	if err != nil {
		return nil, err
	}

	reply, err := p.llm.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrAllProvidersFailed) {
			return nil, err
		}
		return nil, nil
	}

	raw := extractJSON(reply, '{', '}')
	if raw == "" {
		p.log.Debug("no JSON in extraction reply", zap.String("paper", paper.ID))
		return nil, nil
	}
	var fr findingsReply
	if err := json.Unmarshal([]byte(raw), &fr); err != nil {
		p.log.Debug("unparseable extraction reply",
			zap.String("paper", paper.ID), zap.Error(err))
		return nil, nil
	}
	return validFindings(fr.Findings), nil
}

// validFindings keeps only findings with a genuine metric and value.
func validFindings(in []Finding) []Finding {
	var out []Finding
	for _, f := range in {
		if isPlaceholder(f.Metric) || isPlaceholder(f.Value) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isPlaceholder(s string) bool {
	return placeholderValues[strings.ToLower(strings.TrimSpace(s))]
}
