// Package openalex provides a fulltext lookup against the OpenAlex works API.
//
// OpenAlex is a free, open catalog of scholarly works. It is the first and
// broadest strategy of the fulltext cascade: a title search whose best match
// contributes its open-access or PDF URL.
//
// API Documentation: https://docs.openalex.org/
package openalex

// SearchResponse represents the response from the works search endpoint.
type SearchResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta contains metadata about the search results.
type Meta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
}

// Work represents an academic work in OpenAlex.
type Work struct {
	ID              string      `json:"id"`
	DOI             string      `json:"doi"`
	Title           string      `json:"title"`
	DisplayName     string      `json:"display_name"`
	PublicationYear int         `json:"publication_year"`
	OpenAccess      *OpenAccess `json:"open_access"`
	PrimaryLocation *Location   `json:"primary_location"`
	BestOALocation  *Location   `json:"best_oa_location"`

	// AbstractInvertedIndex maps each word to its positions in the abstract.
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// OpenAccess contains open access information for a work.
type OpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAURL    string `json:"oa_url"`
	OAStatus string `json:"oa_status"`
}

// Location represents where a work is available.
type Location struct {
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
	IsOA           bool   `json:"is_oa"`
}
