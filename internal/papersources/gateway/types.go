// Package gateway provides a client for the recommendpapers paper gateway.
//
// The gateway fronts a Semantic Scholar style corpus and exposes three
// endpoints used by the pipeline: paper_search, lookup_citations and bibtex.
package gateway

// searchResponse is the paper_search response. Papers is nil when the field
// is absent or null.
type searchResponse struct {
	Papers []paperResult `json:"papers"`
}

type paperResult struct {
	PaperID       string         `json:"paperId"`
	Title         string         `json:"title"`
	Authors       []author       `json:"authors"`
	CitationCount int            `json:"citationCount"`
	ExternalIDs   map[string]any `json:"externalIds"`
	PDFs          []string       `json:"pdfs"`
	Year          int            `json:"year"`
	Venue         string         `json:"venue"`
}

type author struct {
	Name string `json:"name"`
}

type citationsResponse struct {
	Citations []citationResult `json:"citations"`
}

type citationResult struct {
	Contexts    []string    `json:"contexts"`
	Intents     []string    `json:"intents"`
	CitingPaper citingPaper `json:"citingPaper"`
}

type citingPaper struct {
	Title   string   `json:"title"`
	Authors []author `json:"authors"`
}

type bibtexResponse struct {
	Papers []struct {
		BibTeX string `json:"bibtex"`
	} `json:"papers"`
}
