// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns free-text research topics into backend-ready
// search strings. Everything here is a pure function of its inputs:
// the same topic and heading always produce the same query, so the
// package is unit-testable without network access.
package query

import (
	"fmt"
	"strings"
)

// framingWords are generic task-framing terms stripped from topics.
// "Write a research paper about X" should query for X, not for the act
// of writing papers.
var framingWords = map[string]bool{
	"research":   true,
	"study":      true,
	"studies":    true,
	"write":      true,
	"writing":    true,
	"paper":      true,
	"papers":     true,
	"report":     true,
	"review":     true,
	"literature": true,
	"about":      true,
	"regarding":  true,
	"please":     true,
	"analyze":    true,
	"analysis":   true,
	"overview":   true,
}

// misspellings maps common domain misspellings to their corrections.
var misspellings = map[string]string{
	"diabetis":     "diabetes",
	"diabeties":    "diabetes",
	"hypertention": "hypertension",
	"alzheimers":   "alzheimer's",
	"altzheimer":   "alzheimer",
	"cancancer":    "cancer",
	"asthama":      "asthma",
	"arthritus":    "arthritis",
	"cholestrol":   "cholesterol",
	"pnuemonia":    "pneumonia",
}

// stopWords are excluded when picking significant heading keywords.
var stopWords = map[string]bool{
	"introduction": true,
	"conclusion":   true,
	"overview":     true,
	"background":   true,
	"current":      true,
	"recent":       true,
	"future":       true,
	"general":      true,
	"their":        true,
	"other":        true,
	"about":        true,
	"between":      true,
	"during":       true,
	"through":      true,
	"versus":       true,
}

// Clean strips framing words and corrects known misspellings. Word
// order is preserved; casing is lowered.
func Clean(raw string) string {
	var kept []string
	for _, w := range strings.Fields(strings.ToLower(raw)) {
		trimmed := strings.Trim(w, ".,;:!?\"'()")
		if trimmed == "" || framingWords[trimmed] {
			continue
		}
		if fixed, ok := misspellings[trimmed]; ok {
			trimmed = fixed
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}

// Rule is one disambiguation entry: when Trigger matches the query and
// none of the Require terms are already present, the Require terms are
// added and the Exclude terms negated. Rules are evaluated in order and
// only the first match applies.
type Rule struct {
	// Trigger matches case-insensitively as a substring of the query.
	Trigger string

	// Unless suppresses the rule when any of these substrings are
	// already present, meaning the query is already specific.
	Unless []string

	// Require are quoted terms ANDed into the query.
	Require []string

	// Exclude are quoted terms negated with NOT.
	Exclude []string
}

// DefaultRules is the ordered disambiguation table. The diabetes rule
// exists because a bare "diabetes" query surfaces diabetes insipidus
// papers, a distinct condition that shares nothing with the mellitus
// family beyond the name.
var DefaultRules = []Rule{
	{
		Trigger: "diabetes",
		Unless:  []string{"type 1", "type 2", "gestational", "insipidus", "mellitus"},
		Require: []string{"type 2 diabetes"},
		Exclude: []string{"diabetes insipidus"},
	},
	{
		Trigger: "hypertension",
		Unless:  []string{"pulmonary", "portal", "ocular", "intracranial"},
		Require: []string{"arterial hypertension"},
		Exclude: []string{"pulmonary hypertension"},
	},
	{
		Trigger: "depression",
		Unless:  []string{"major depressive", "postpartum", "bipolar", "economic"},
		Require: []string{"major depressive disorder"},
		Exclude: []string{"economic depression"},
	},
	{
		Trigger: "hepatitis",
		Unless:  []string{"hepatitis a", "hepatitis b", "hepatitis c", "autoimmune", "alcoholic"},
		Require: []string{"viral hepatitis"},
	},
}

// Disambiguate applies the first matching rule from rules (DefaultRules
// when nil) and returns the adjusted query.
func Disambiguate(q string, rules []Rule) string {
	if rules == nil {
		rules = DefaultRules
	}
	lower := strings.ToLower(q)
	for _, r := range rules {
		if !strings.Contains(lower, strings.ToLower(r.Trigger)) {
			continue
		}
		if matchesAny(lower, r.Unless) {
			continue
		}
		return applyRule(q, r)
	}
	return q
}

func matchesAny(lower string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func applyRule(q string, r Rule) string {
	out := q
	for _, term := range r.Require {
		out = fmt.Sprintf("%s AND %q", out, term)
	}
	for _, term := range r.Exclude {
		out = fmt.Sprintf("%s NOT %q", out, term)
	}
	return out
}

// ExcludedTerms returns the terms the first matching rule negates for
// this query. The relevance filter uses them as hard rejections.
func ExcludedTerms(q string, rules []Rule) []string {
	if rules == nil {
		rules = DefaultRules
	}
	lower := strings.ToLower(q)
	for _, r := range rules {
		if !strings.Contains(lower, strings.ToLower(r.Trigger)) {
			continue
		}
		if matchesAny(lower, r.Unless) {
			continue
		}
		return r.Exclude
	}
	return nil
}

// SectionQuery combines a cleaned topic with up to two significant
// heading keywords. Keywords are ORed against each other and ANDed with
// the topic, biasing toward recall within the heading's theme.
func SectionQuery(topic, heading string) string {
	cleaned := Disambiguate(Clean(topic), nil)
	keywords := headingKeywords(heading, 2)
	if len(keywords) == 0 {
		return cleaned
	}
	if len(keywords) == 1 {
		return fmt.Sprintf("(%s) AND %s", cleaned, keywords[0])
	}
	return fmt.Sprintf("(%s) AND (%s OR %s)", cleaned, keywords[0], keywords[1])
}

// headingKeywords extracts up to max significant words from a heading:
// longer than four characters, not a stop word, first occurrence wins.
func headingKeywords(heading string, max int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(heading)) {
		trimmed := strings.Trim(w, ".,;:!?\"'()")
		if len(trimmed) <= 4 || stopWords[trimmed] || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
		if len(out) == max {
			break
		}
	}
	return out
}

// RequiredKeywords returns the topic's significant words. The relevance
// filter rejects papers mentioning none of them.
func RequiredKeywords(topic string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(Clean(topic)) {
		if len(w) <= 3 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
