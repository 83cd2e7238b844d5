// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/llm"
)

// defaultHeadings is the fallback section structure used when the
// model's plan cannot be parsed. Generic enough to fit any clinical
// topic.
var defaultHeadings = []string{
	"Background and Epidemiology",
	"Diagnosis and Assessment",
	"Treatment Approaches",
	"Management and Monitoring",
	"Future Directions",
}

// planSections asks the model for n section headings. A malformed
// reply degrades to the fixed default structure; only provider
// exhaustion is fatal.
func (p *Pipeline) planSections(ctx context.Context, topic, clinicalContext string, n int) ([]string, error) {
	prompt, err := renderTemplate(planPromptTmpl, struct {
		Topic   string
		Context string
		N       int
	}{Topic: topic, Context: clinicalContext, N: n})
	if err != nil {
		return nil, err
	}

	reply, err := p.llm.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrAllProvidersFailed) {
			return nil, err
		}
		p.log.Warn("section planning failed, using default structure", zap.Error(err))
		return fallbackHeadings(n), nil
	}

	headings, err := parseHeadings(reply, n)
	if err != nil {
		p.log.Warn("unparseable section plan, using default structure", zap.Error(err))
		return fallbackHeadings(n), nil
	}
	return headings, nil
}

// parseHeadings extracts a JSON string array from the model reply,
// tolerating surrounding prose or code fences.
func parseHeadings(reply string, n int) ([]string, error) {
	raw := extractJSON(reply, '[', ']')
	if raw == "" {
		return nil, errors.New("no JSON array in reply")
	}

	var headings []string
	if err := json.Unmarshal([]byte(raw), &headings); err != nil {
		return nil, err
	}

	var out []string
	for _, h := range headings {
		h = strings.TrimSpace(h)
		if h != "" {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("empty section plan")
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// fallbackHeadings returns n headings from the default set, repeating
// with a numeric suffix if n exceeds the set.
func fallbackHeadings(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if i < len(defaultHeadings) {
			out = append(out, defaultHeadings[i])
			continue
		}
		out = append(out, defaultHeadings[i%len(defaultHeadings)]+" (continued)")
	}
	return out
}

// extractJSON returns the first balanced opening..closing span in s,
// or "" when none exists. Used to dig JSON out of chatty model
// replies.
func extractJSON(s string, opening, closing byte) string {
	start := strings.IndexByte(s, opening)
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
