// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litreview pipeline.
//
// The central type is UnifiedPaper, the normalized representation of a
// bibliographic result regardless of originating backend. Connectors
// convert source-specific payloads into UnifiedPaper at the boundary so
// no downstream stage branches on source shape.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies the backend a paper was retrieved from.
type Source string

const (
	SourcePubMed          Source = "pubmed"
	SourceCrossRef        Source = "crossref"
	SourceSemanticScholar Source = "semantic_scholar"
	SourceOpenAlex        Source = "openalex"
	SourceWeb             Source = "web"
)

// Primary reports whether the source is the primary biomedical index.
// Primary-source papers are deduplicated by native ID; everything else
// falls back to DOI or normalized title.
func (s Source) Primary() bool { return s == SourcePubMed }

// UnifiedPaper is the canonical retrieval record shared by every stage.
type UnifiedPaper struct {
	// ID is the source-native identifier (PMID, DOI, Semantic Scholar
	// paper ID) or a synthesized fallback_<source>_<index> value when
	// the backend provides none.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract may be empty when the source does not carry one.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Journal is the publication venue, best effort.
	Journal string `json:"journal" yaml:"journal"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year" yaml:"year"`

	// DOI is optional and, when present, the strongest dedup key.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Source identifies which connector produced this record.
	Source Source `json:"source" yaml:"source"`

	// CitationNumber is assigned after retrieval: first section-locally
	// during section processing, then globally during report assembly.
	// It is not mutated anywhere else.
	CitationNumber int `json:"citation_number" yaml:"citation_number"`
}

// AuthorLine returns a short display form of the author list.
func (p UnifiedPaper) AuthorLine() string {
	switch len(p.Authors) {
	case 0:
		return "Unknown authors"
	case 1:
		return p.Authors[0]
	case 2:
		return p.Authors[0] + " and " + p.Authors[1]
	default:
		return p.Authors[0] + " et al."
	}
}

// Reference formats the paper as a reference-list entry.
func (p UnifiedPaper) Reference() string {
	var b strings.Builder
	b.WriteString(p.AuthorLine())
	if p.Year > 0 {
		fmt.Fprintf(&b, " (%d)", p.Year)
	}
	b.WriteString(". ")
	b.WriteString(strings.TrimSuffix(p.Title, "."))
	b.WriteString(".")
	if p.Journal != "" {
		b.WriteString(" ")
		b.WriteString(p.Journal)
		b.WriteString(".")
	}
	if p.DOI != "" {
		b.WriteString(" https://doi.org/")
		b.WriteString(p.DOI)
	}
	return b.String()
}

// SectionResult holds one processed report section. It is created by
// the section pipeline and immutable once synthesis completes.
type SectionResult struct {
	Heading string `json:"heading" yaml:"heading"`

	// Content is the synthesized section prose in Markdown.
	Content string `json:"content" yaml:"content"`

	// Papers are the relevance-filtered papers cited by this section,
	// in citation-number order.
	Papers []UnifiedPaper `json:"papers" yaml:"papers"`

	// DataTable is a Markdown findings table, empty when no paper
	// yielded usable numeric data.
	DataTable string `json:"data_table,omitempty" yaml:"data_table,omitempty"`
}

// ReportMetadata carries computed statistics for a finished report.
type ReportMetadata struct {
	WordCount   int       `json:"word_count" yaml:"word_count"`
	PaperCount  int       `json:"paper_count" yaml:"paper_count"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// ResearchReport is the assembled output of one research run. It is
// created once at the end of assembly and read-only thereafter.
type ResearchReport struct {
	Title        string          `json:"title" yaml:"title"`
	Abstract     string          `json:"abstract" yaml:"abstract"`
	Introduction string          `json:"introduction" yaml:"introduction"`
	Sections     []SectionResult `json:"sections" yaml:"sections"`
	Discussion   string          `json:"discussion" yaml:"discussion"`
	Conclusion   string          `json:"conclusion" yaml:"conclusion"`

	// References are formatted entries in citation-number order, so
	// References[n-1] corresponds to marker [n].
	References []string `json:"references" yaml:"references"`

	Metadata ReportMetadata `json:"metadata" yaml:"metadata"`
}

// SourceSelection controls which backends a search fans out to.
type SourceSelection struct {
	PubMed          bool `json:"pubmed" yaml:"pubmed"`
	CrossRef        bool `json:"crossref" yaml:"crossref"`
	SemanticScholar bool `json:"semantic_scholar" yaml:"semantic_scholar"`
	OpenAlex        bool `json:"openalex" yaml:"openalex"`
	Web             bool `json:"web" yaml:"web"`
}

// DefaultSourceSelection enables the primary index plus the scholarly
// graph backends; the web fallback stays opt-in.
func DefaultSourceSelection() SourceSelection {
	return SourceSelection{
		PubMed:          true,
		CrossRef:        true,
		SemanticScholar: true,
		OpenAlex:        true,
	}
}

// Enabled returns the enabled sources in a fixed order.
func (s SourceSelection) Enabled() []Source {
	var out []Source
	if s.PubMed {
		out = append(out, SourcePubMed)
	}
	if s.CrossRef {
		out = append(out, SourceCrossRef)
	}
	if s.SemanticScholar {
		out = append(out, SourceSemanticScholar)
	}
	if s.OpenAlex {
		out = append(out, SourceOpenAlex)
	}
	if s.Web {
		out = append(out, SourceWeb)
	}
	return out
}

// Count returns the number of enabled sources.
func (s SourceSelection) Count() int { return len(s.Enabled()) }
