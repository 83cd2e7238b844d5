// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pdiddy/litreview/pkg/types"
)

func TestPrimaryPapersKeyedByNativeID(t *testing.T) {
	s := NewSession()
	p := types.UnifiedPaper{ID: "38211234", Title: "Metformin outcomes", Source: types.SourcePubMed}

	if s.IsUsed(p) {
		t.Error("fresh paper reported used")
	}
	s.MarkUsed(p)
	if !s.IsUsed(p) {
		t.Error("marked paper not reported used")
	}

	// Same ID, different title: still the same primary-index paper.
	if !s.IsUsed(types.UnifiedPaper{ID: "38211234", Title: "Retitled", Source: types.SourcePubMed}) {
		t.Error("primary dedup should key on native ID alone")
	}
}

func TestFallbackPapersKeyedByDOI(t *testing.T) {
	s := NewSession()
	s.MarkUsed(types.UnifiedPaper{ID: "fallback_crossref_0", DOI: "10.1000/xyz", Source: types.SourceCrossRef})

	dup := types.UnifiedPaper{ID: "W999", DOI: "10.1000/XYZ", Source: types.SourceOpenAlex}
	if !s.IsUsed(dup) {
		t.Error("same DOI from another source should be used (case-insensitive)")
	}
}

func TestFallbackPapersKeyedByNormalizedTitle(t *testing.T) {
	s := NewSession()
	s.MarkUsed(types.UnifiedPaper{ID: "a", Title: "SGLT2 Inhibitors: A Review", Source: types.SourceCrossRef})

	dup := types.UnifiedPaper{ID: "b", Title: "sglt2 inhibitors — a review!", Source: types.SourceWeb}
	if !s.IsUsed(dup) {
		t.Error("normalized-title duplicate not detected")
	}
}

func TestPrimaryAndFallbackRegistriesAreSeparate(t *testing.T) {
	s := NewSession()
	s.MarkUsed(types.UnifiedPaper{ID: "12345", Title: "Shared title", Source: types.SourcePubMed})

	// A fallback paper with the same title is a different key space; the
	// cross-source collapse happens at report assembly by design.
	fb := types.UnifiedPaper{ID: "fallback_web_0", Title: "Different title entirely", Source: types.SourceWeb}
	if s.IsUsed(fb) {
		t.Error("unrelated fallback paper reported used")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a := NewSession()
	b := NewSession()
	p := types.UnifiedPaper{ID: "1", Source: types.SourcePubMed}
	a.MarkUsed(p)
	if b.IsUsed(p) {
		t.Error("sessions must not share state")
	}
}

func TestConcurrentMarking(t *testing.T) {
	s := NewSession()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.MarkUsed(types.UnifiedPaper{ID: fmt.Sprintf("%d", i), Source: types.SourcePubMed})
			s.IsUsed(types.UnifiedPaper{ID: "0", Source: types.SourcePubMed})
		}(i)
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("Len() = %d, want 50", s.Len())
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Attention Is All You Need", "attention is all you need"},
		{"  SGLT2-Inhibitors:   (A Review) ", "sglt2inhibitors a review"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
