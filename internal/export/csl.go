// Package export renders candidate sets as bibliography files.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// ContentTypeCSLYAML is the media type served for CSL-YAML exports.
const ContentTypeCSLYAML = "application/x-yaml; charset=utf-8"

// CSLItem is one entry in CSL (Citation Style Language) item format.
type CSLItem struct {
	ID             string      `yaml:"id"`
	Type           string      `yaml:"type"`
	Title          string      `yaml:"title"`
	Author         []CSLName   `yaml:"author,omitempty"`
	Issued         *CSLDate    `yaml:"issued,omitempty"`
	ContainerTitle string      `yaml:"container-title,omitempty"`
	DOI            string      `yaml:"DOI,omitempty"`
	PMID           string      `yaml:"PMID,omitempty"`
	URL            string      `yaml:"URL,omitempty"`
	Note           string      `yaml:"note,omitempty"`
	Custom         *CSLCustoms `yaml:"custom,omitempty"`
}

// CSLName is an author name. Names that cannot be split are kept literal.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate holds date parts, here only the year.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// CSLCustoms carries fields CSL has no slot for.
type CSLCustoms struct {
	CitationCount int    `yaml:"citation-count"`
	ArXiv         string `yaml:"arxiv,omitempty"`
	CorpusID      string `yaml:"corpus-id,omitempty"`
}

// ToCSL converts a paper record to a CSL item.
func ToCSL(p *domain.PaperRecord) CSLItem {
	item := CSLItem{
		ID:             p.ID,
		Type:           "article-journal",
		Title:          p.Title,
		ContainerTitle: p.Venue,
		DOI:            p.ExternalIDs["DOI"],
		PMID:           p.ExternalIDs["PubMed"],
		Custom: &CSLCustoms{
			CitationCount: p.CitationCount,
			ArXiv:         p.ExternalIDs["ArXiv"],
			CorpusID:      p.ExternalIDs[domain.CorpusIDKey],
		},
	}
	if p.Venue == "" && item.Custom.ArXiv != "" {
		item.Type = "article"
	}
	if p.HasPDF() {
		item.URL = p.PDFURL
	}
	if p.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{p.Year}}}
	}
	for _, a := range p.Authors {
		item.Author = append(item.Author, splitName(a))
	}
	return item
}

// splitName treats the last word as the family name.
func splitName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" || name == domain.UnknownAuthor {
		return CSLName{Literal: domain.UnknownAuthor}
	}
	fields := strings.Fields(name)
	if len(fields) == 1 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Family: fields[len(fields)-1],
		Given:  strings.Join(fields[:len(fields)-1], " "),
	}
}

// WriteCSLYAML writes papers as a CSL-YAML document with a top-level
// "references" list, the layout pandoc reads from metadata files.
func WriteCSLYAML(w io.Writer, papers []*domain.PaperRecord) error {
	doc := struct {
		References []CSLItem `yaml:"references"`
	}{References: make([]CSLItem, 0, len(papers))}
	for _, p := range papers {
		doc.References = append(doc.References, ToCSL(p))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode CSL-YAML: %w", err)
	}
	return enc.Close()
}

// CSLYAML returns the CSL-YAML document for papers.
func CSLYAML(papers []*domain.PaperRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSLYAML(&buf, papers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
