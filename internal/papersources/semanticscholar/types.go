// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// It serves as the alternative discovery provider and also implements
// citation and BibTeX lookup, so a deployment can run without the gateway.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse represents the response from the paper search endpoint.
// Data is nil when the field is absent or null.
type SearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Next is the offset for the next page of results.
	Next int `json:"next"`

	// Data contains the list of papers returned by the search.
	Data []PaperResult `json:"data"`
}

// PaperResult represents a single paper in the Semantic Scholar API response.
type PaperResult struct {
	PaperID       string          `json:"paperId"`
	Title         string          `json:"title"`
	Year          int             `json:"year"`
	Venue         string          `json:"venue"`
	Journal       *Journal        `json:"journal,omitempty"`
	Authors       []Author        `json:"authors"`
	CitationCount int             `json:"citationCount"`
	OpenAccessPDF *OpenAccessPDF  `json:"openAccessPdf,omitempty"`
	ExternalIDs   map[string]any  `json:"externalIds,omitempty"`
	CitationStyle *CitationStyles `json:"citationStyles,omitempty"`
}

// Journal contains journal-specific information.
type Journal struct {
	Name string `json:"name,omitempty"`
}

// Author represents a paper author.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// OpenAccessPDF contains information about an open access PDF.
type OpenAccessPDF struct {
	// URL is the direct URL to the PDF.
	URL string `json:"url,omitempty"`

	// Status indicates the open access status (e.g., "HYBRID", "GOLD", "GREEN").
	Status string `json:"status,omitempty"`
}

// CitationStyles holds formatted citations for a paper.
type CitationStyles struct {
	BibTeX string `json:"bibtex,omitempty"`
}

// CitationsResponse is the response from /paper/{id}/citations.
type CitationsResponse struct {
	Offset int              `json:"offset"`
	Next   int              `json:"next"`
	Data   []CitationResult `json:"data"`
}

// CitationResult is one citing paper with the contexts it cites from.
type CitationResult struct {
	Contexts    []string    `json:"contexts"`
	Intents     []string    `json:"intents"`
	CitingPaper PaperResult `json:"citingPaper"`
}
