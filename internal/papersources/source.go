// Package papersources provides the provider call contract and the interfaces
// implemented by every paper data source.
//
// All external calls pass through Client.Call, which applies rate limiting,
// retries, a timeout and error normalization. Source packages (gateway,
// semanticscholar, openalex, pubmed, arxiv) build on it and implement one or
// more of the interfaces below.
//
// Example usage:
//
//	client := gateway.New(gateway.Config{BaseURL: cfg.Gateway.BaseURL}, cache, metrics)
//	papers, err := client.SearchPapers(ctx, "graph neural network drug discovery", 10)
package papersources

import (
	"context"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// DefaultSearchLimit is the number of papers requested when no limit is given.
const DefaultSearchLimit = 10

// DefaultCitationLimit is the number of citing works requested per paper.
const DefaultCitationLimit = 3

// PaperSearcher queries a paper-search provider.
type PaperSearcher interface {
	// SearchPapers returns normalized records for phrase. Failures are
	// returned as *domain.DiscoveryError so callers can tell an unreachable
	// provider from a changed response shape.
	SearchPapers(ctx context.Context, phrase string, limit int) ([]*domain.PaperRecord, error)

	// Name returns the provider name used in logs and errors.
	Name() string
}

// CitationLookup returns works citing a paper.
type CitationLookup interface {
	LookupCitations(ctx context.Context, paperID string, limit int) ([]domain.Citation, error)
}

// BibTeXLookup returns the BibTeX entry for a corpus identifier.
// An empty string with a nil error means the provider has no entry.
type BibTeXLookup interface {
	LookupBibTeX(ctx context.Context, corpusID string) (string, error)
}

// FulltextSource looks up fulltext or a fulltext URL by paper title.
// A zero Fulltext with a nil error means the provider found nothing.
type FulltextSource interface {
	LookupFulltext(ctx context.Context, title string) (domain.Fulltext, error)
	Name() string
}

// DiscoveryFailure wraps err as a *domain.DiscoveryError for provider.
func DiscoveryFailure(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.DiscoveryError{Provider: provider, Cause: err}
}
