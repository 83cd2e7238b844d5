// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup tracks papers already consumed within one research run
// so no section re-cites what this run has already used, whether the
// earlier use was in a previous section or the same one.
//
// A Session is constructed once per run and passed by handle through
// the pipeline; independent runs never share state. Primary-index
// papers are keyed by native ID; everything else by DOI when present,
// otherwise by normalized title, so the same paper reached through two
// different backends still collides.
package dedup

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pdiddy/litreview/pkg/types"
)

// Session holds the used-paper registries for one research run. The
// zero value is not usable; call NewSession.
type Session struct {
	mu           sync.Mutex
	primaryIDs   map[string]bool
	fallbackKeys map[string]bool
}

// NewSession returns an empty session. Call it exactly once at the
// start of each research invocation, never mid-run.
func NewSession() *Session {
	return &Session{
		primaryIDs:   make(map[string]bool),
		fallbackKeys: make(map[string]bool),
	}
}

// IsUsed reports whether the paper was already consumed in this run,
// whether by an earlier section or earlier in the current one.
func (s *Session) IsUsed(p types.UnifiedPaper) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Source.Primary() {
		return s.primaryIDs[p.ID]
	}
	return s.fallbackKeys[fallbackKey(p)]
}

// MarkUsed records the paper as consumed. Call it only after the paper
// is accepted into a section's result set; papers rejected by the
// relevance filter are never marked. Safe for concurrent use.
func (s *Session) MarkUsed(p types.UnifiedPaper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Source.Primary() {
		s.primaryIDs[p.ID] = true
		return
	}
	s.fallbackKeys[fallbackKey(p)] = true
}

// Len returns the total number of marked papers.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.primaryIDs) + len(s.fallbackKeys)
}

// fallbackKey prefers the DOI; otherwise the normalized title.
func fallbackKey(p types.UnifiedPaper) string {
	if p.DOI != "" {
		return "doi:" + strings.ToLower(p.DOI)
	}
	return "title:" + NormalizeTitle(p.Title)
}

// NormalizeTitle lowercases, strips non-alphanumeric runes, and
// collapses whitespace. Two titles normalizing identically are treated
// as the same paper regardless of source.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
