// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance scores candidate papers against the research topic
// and filters out the irrelevant ones before any paper reaches the
// language model. Relevance is a precondition for analysis, not a
// post-hoc quality label.
package relevance

import (
	"sort"
	"strings"

	"github.com/pdiddy/litreview/pkg/types"
)

// DefaultMinScore is the partition threshold used by the pipeline.
const DefaultMinScore = 40

// crossDomainTerms flag papers from unrelated fields that keyword
// overlap alone would let through when the topic is medically framed.
var crossDomainTerms = []string{
	"blockchain",
	"cryptocurrency",
	"video game",
	"quantum computing",
	"stock market",
	"machine translation",
	"autonomous vehicle",
	"supply chain",
}

// medicalMarkers decide whether a topic is medically framed.
var medicalMarkers = []string{
	"disease", "diabetes", "cancer", "treatment", "therapy", "clinical",
	"patient", "syndrome", "disorder", "hypertension", "infection",
	"medicine", "medical", "drug", "vaccine", "diagnosis", "symptom",
}

// Result carries a paper's score and the reasons behind it.
type Result struct {
	Score   int
	Reasons []string
}

// Score rates a paper 0..100 against the topic. Hard rejections force
// the score to 0 and short-circuit: a cross-domain title on a medical
// topic, a match on an excluded disambiguation term, or no required
// keyword anywhere in title+abstract.
func Score(p types.UnifiedPaper, topic string, required, excluded []string) Result {
	title := strings.ToLower(p.Title)
	abstract := strings.ToLower(p.Abstract)
	text := title + " " + abstract
	topicLower := strings.ToLower(topic)

	if medicalTopic(topicLower) {
		for _, term := range crossDomainTerms {
			if strings.Contains(title, term) {
				return Result{Score: 0, Reasons: []string{"cross-domain title term: " + term}}
			}
		}
	}

	for _, term := range excluded {
		if strings.Contains(text, strings.ToLower(term)) {
			return Result{Score: 0, Reasons: []string{"excluded disambiguation term: " + term}}
		}
	}

	if len(required) > 0 {
		found := 0
		for _, kw := range required {
			if strings.Contains(text, strings.ToLower(kw)) {
				found++
			}
		}
		if found == 0 {
			return Result{Score: 0, Reasons: []string{"no required keyword in title or abstract"}}
		}

		coverage := 50 * found / len(required)
		r := Result{Score: coverage}
		r.Reasons = append(r.Reasons, "required-keyword coverage")

		r.add(titleOverlap(title, topicLower), "title overlap with topic")
		r.add(abstractDensity(abstract, required), "keyword density in abstract")
		r.add(provenanceBonus(p.Source), "indexed source")
		r.add(recencyBonus(p.Year), "recent publication")

		if r.Score > 100 {
			r.Score = 100
		}
		return r
	}

	// No required keywords supplied: fall back to topic overlap alone.
	r := Result{}
	r.add(2*titleOverlap(title, topicLower), "title overlap with topic")
	r.add(provenanceBonus(p.Source), "indexed source")
	r.add(recencyBonus(p.Year), "recent publication")
	if r.Score > 100 {
		r.Score = 100
	}
	return r
}

func (r *Result) add(points int, reason string) {
	if points <= 0 {
		return
	}
	r.Score += points
	r.Reasons = append(r.Reasons, reason)
}

// titleOverlap counts topic words present in the title, capped at 20.
func titleOverlap(title, topic string) int {
	points := 0
	for _, w := range strings.Fields(topic) {
		if len(w) <= 3 {
			continue
		}
		if strings.Contains(title, w) {
			points += 5
		}
	}
	if points > 20 {
		points = 20
	}
	return points
}

// abstractDensity counts required-keyword occurrences in the abstract,
// capped at 15.
func abstractDensity(abstract string, required []string) int {
	if abstract == "" {
		return 0
	}
	points := 0
	for _, kw := range required {
		points += 3 * strings.Count(abstract, strings.ToLower(kw))
	}
	if points > 15 {
		points = 15
	}
	return points
}

// provenanceBonus favors peer-review indexed sources over web hits.
func provenanceBonus(s types.Source) int {
	switch s {
	case types.SourcePubMed:
		return 10
	case types.SourceCrossRef, types.SourceSemanticScholar, types.SourceOpenAlex:
		return 5
	default:
		return 0
	}
}

func recencyBonus(year int) int {
	switch {
	case year >= 2020:
		return 5
	case year >= 2015:
		return 2
	default:
		return 0
	}
}

func medicalTopic(topicLower string) bool {
	for _, m := range medicalMarkers {
		if strings.Contains(topicLower, m) {
			return true
		}
	}
	return false
}

// Filter scores every paper, sorts descending by score, and partitions
// at minScore. The kept slice is ordered best-first; order within equal
// scores preserves input order so results stay reproducible.
func Filter(papers []types.UnifiedPaper, topic string, required, excluded []string, minScore int) (kept, rejected []types.UnifiedPaper) {
	type scored struct {
		paper types.UnifiedPaper
		score int
	}
	all := make([]scored, 0, len(papers))
	for _, p := range papers {
		all = append(all, scored{paper: p, score: Score(p, topic, required, excluded).Score})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	for _, s := range all {
		if s.score >= minScore {
			kept = append(kept, s.paper)
		} else {
			rejected = append(rejected, s.paper)
		}
	}
	return kept, rejected
}
