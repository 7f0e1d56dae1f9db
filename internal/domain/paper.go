// Package domain defines the paper records, enrichment results and error
// taxonomy shared by the research assistant pipeline.
package domain

import (
	"fmt"
	"strings"
)

// Defaults applied when a provider omits a field.
const (
	// UnknownTitle is used when a provider returns a paper without a title.
	UnknownTitle = "Unknown Title"

	// UnknownAuthor is used for author entries without a name.
	UnknownAuthor = "Unknown"

	// NoPDFAvailable marks a paper without a PDF link. Consumers compare
	// against this value instead of checking for an empty field.
	NoPDFAvailable = "No PDF available"

	// CorpusIDKey is the external identifier scheme for the corpus-wide numeric id.
	CorpusIDKey = "CorpusId"
)

// PaperRecord is one discovered paper, normalized from a provider response.
type PaperRecord struct {
	ID            string            `json:"id" yaml:"id"`
	Title         string            `json:"title" yaml:"title"`
	Authors       []string          `json:"authors" yaml:"authors"`
	CitationCount int               `json:"citation_count" yaml:"citation_count"`
	PDFURL        string            `json:"pdf_url" yaml:"pdf_url"`
	ExternalIDs   map[string]string `json:"external_ids,omitempty" yaml:"external_ids,omitempty"`
	Year          int               `json:"year,omitempty" yaml:"year,omitempty"`
	Venue         string            `json:"venue,omitempty" yaml:"venue,omitempty"`
}

// Normalize applies the record defaults in place.
func (p *PaperRecord) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = p.ExternalIDs[CorpusIDKey]
	}
	if strings.TrimSpace(p.Title) == "" {
		p.Title = UnknownTitle
	}
	if p.Authors == nil {
		p.Authors = []string{}
	}
	for i, a := range p.Authors {
		if strings.TrimSpace(a) == "" {
			p.Authors[i] = UnknownAuthor
		}
	}
	if p.CitationCount < 0 {
		p.CitationCount = 0
	}
	if strings.TrimSpace(p.PDFURL) == "" {
		p.PDFURL = NoPDFAvailable
	}
	if p.ExternalIDs == nil {
		p.ExternalIDs = map[string]string{}
	}
}

// HasPDF reports whether the record carries a real PDF link.
func (p *PaperRecord) HasPDF() bool {
	return p.PDFURL != "" && p.PDFURL != NoPDFAvailable
}

// CorpusID returns the corpus identifier, falling back to the record id.
func (p *PaperRecord) CorpusID() string {
	if id := p.ExternalIDs[CorpusIDKey]; id != "" {
		return id
	}
	return p.ID
}

// AuthorList joins author names for display.
func (p *PaperRecord) AuthorList() string {
	return strings.Join(p.Authors, ", ")
}

// StringifyExternalID renders a provider external id value as a string.
// Providers return numeric ids (CorpusId) as JSON numbers.
func StringifyExternalID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// TitleIndex maps paper id to title.
type TitleIndex map[string]string

// BuildTitleIndex derives the id to title mapping from a candidate list.
// Duplicate or empty ids are reported as a SchemaError rather than collapsed.
func BuildTitleIndex(papers []*PaperRecord) (TitleIndex, error) {
	idx := make(TitleIndex, len(papers))
	for i, p := range papers {
		if p.ID == "" {
			return nil, &SchemaError{Field: fmt.Sprintf("papers[%d].id", i), Detail: "missing identifier"}
		}
		if _, dup := idx[p.ID]; dup {
			return nil, &SchemaError{Field: fmt.Sprintf("papers[%d].id", i), Detail: "duplicate identifier " + p.ID}
		}
		idx[p.ID] = p.Title
	}
	return idx, nil
}

// Fulltext is the outcome of a successful fulltext resolution.
type Fulltext struct {
	Provider string `json:"provider"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Empty reports whether neither text nor URL is present.
func (f Fulltext) Empty() bool {
	return strings.TrimSpace(f.Text) == "" && strings.TrimSpace(f.URL) == ""
}
