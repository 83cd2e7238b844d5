// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"strips framing words", "write a research paper about heart failure", "a heart failure"},
		{"fixes misspellings", "diabetis management", "diabetes management"},
		{"lowers case", "Type 2 Diabetes", "type 2 diabetes"},
		{"trims punctuation", "asthma, treatment!", "asthma treatment"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.raw); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDisambiguate(t *testing.T) {
	tests := []struct {
		name        string
		q           string
		wantContain []string
		wantAbsent  []string
	}{
		{
			name:        "bare diabetes is expanded and excludes insipidus",
			q:           "diabetes management",
			wantContain: []string{`"type 2 diabetes"`, `NOT "diabetes insipidus"`},
		},
		{
			name:       "already specific diabetes is untouched",
			q:          "type 1 diabetes in children",
			wantAbsent: []string{"NOT"},
		},
		{
			name:        "hypertension excludes pulmonary",
			q:           "hypertension treatment",
			wantContain: []string{`NOT "pulmonary hypertension"`},
		},
		{
			name:       "no trigger no change",
			q:          "asthma exacerbation",
			wantAbsent: []string{"AND", "NOT"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Disambiguate(tt.q, nil)
			for _, want := range tt.wantContain {
				if !strings.Contains(got, want) {
					t.Errorf("Disambiguate(%q) = %q, missing %q", tt.q, got, want)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Disambiguate(%q) = %q, should not contain %q", tt.q, got, absent)
				}
			}
		})
	}
}

func TestDisambiguateFirstRuleWins(t *testing.T) {
	rules := []Rule{
		{Trigger: "x", Require: []string{"first"}},
		{Trigger: "x", Require: []string{"second"}},
	}
	got := Disambiguate("x marks the spot", rules)
	if !strings.Contains(got, `"first"`) || strings.Contains(got, `"second"`) {
		t.Errorf("Disambiguate = %q, want only the first rule applied", got)
	}
}

func TestExcludedTerms(t *testing.T) {
	terms := ExcludedTerms("diabetes care", nil)
	if len(terms) != 1 || terms[0] != "diabetes insipidus" {
		t.Errorf("ExcludedTerms = %v, want [diabetes insipidus]", terms)
	}
	if terms := ExcludedTerms("asthma care", nil); terms != nil {
		t.Errorf("ExcludedTerms on non-trigger = %v, want nil", terms)
	}
}

func TestSectionQuery(t *testing.T) {
	got := SectionQuery("Type 2 diabetes management", "Pharmacological Interventions and Outcomes")
	if !strings.Contains(got, "pharmacological") {
		t.Errorf("SectionQuery = %q, missing heading keyword", got)
	}
	if !strings.Contains(got, " OR ") {
		t.Errorf("SectionQuery = %q, expected OR between heading keywords", got)
	}
	if !strings.Contains(got, " AND ") {
		t.Errorf("SectionQuery = %q, expected AND against topic", got)
	}
}

func TestSectionQueryDeterministic(t *testing.T) {
	a := SectionQuery("diabetes management", "Lifestyle and Dietary Approaches")
	b := SectionQuery("diabetes management", "Lifestyle and Dietary Approaches")
	if a != b {
		t.Errorf("SectionQuery not deterministic: %q vs %q", a, b)
	}
}

func TestSectionQueryCapsKeywords(t *testing.T) {
	got := SectionQuery("asthma", "Longitudinal Observational Pharmacoepidemiological Comparative Effectiveness")
	if n := strings.Count(got, " OR "); n > 1 {
		t.Errorf("SectionQuery = %q, more than two heading keywords", got)
	}
}

func TestSectionQueryStopWordHeading(t *testing.T) {
	got := SectionQuery("asthma treatment", "Introduction and Overview")
	if strings.Contains(got, "introduction") || strings.Contains(got, "overview") {
		t.Errorf("SectionQuery = %q, stop words leaked into query", got)
	}
}

func TestRequiredKeywords(t *testing.T) {
	kws := RequiredKeywords("Type 2 diabetes management")
	want := map[string]bool{"type": true, "diabetes": true, "management": true}
	if len(kws) != len(want) {
		t.Fatalf("RequiredKeywords = %v, want keys %v", kws, want)
	}
	for _, k := range kws {
		if !want[k] {
			t.Errorf("unexpected keyword %q", k)
		}
	}
}
