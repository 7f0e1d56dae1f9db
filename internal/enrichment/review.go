package enrichment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// Placeholders for missing reference metadata.
const (
	unknownAuthors = "Unknown Authors"
	unknownYear    = "Unknown Year"
	unknownJournal = "Unknown Journal"
)

// Review builds a reference list for the selection: the BibTeX entry when the
// lookup has one, otherwise a reference assembled from the paper's metadata.
// It makes no generative calls.
func (s *Service) Review(ctx context.Context, ids []string, known map[string]*domain.PaperRecord) (*domain.EnrichmentResult, error) {
	return s.run(ctx, domain.EnrichmentReview, ids, func(ctx context.Context, result *domain.EnrichmentResult) error {
		if err := requireSelected("review", ids); err != nil {
			return err
		}

		blocks := make([]domain.EnrichmentBlock, len(ids))
		forEach(ctx, s.config.Concurrency, len(ids), func(ctx context.Context, i int) {
			id := ids[i]
			paper := known[id]

			title := domain.UnknownTitle
			if paper != nil {
				title = paper.Title
			}
			if entry, err := s.lookupBibTeX(ctx, id, paper); err == nil {
				blocks[i] = domain.EnrichmentBlock{PaperID: id, Title: title, Body: entry, Source: "lookup"}
				return
			}
			blocks[i] = domain.EnrichmentBlock{PaperID: id, Title: title, Body: MetadataReference(paper), Source: "metadata"}
		})
		result.Blocks = blocks
		return nil
	})
}

// MetadataReference formats "authors (year). title. venue." with placeholders
// for whatever is missing.
func MetadataReference(p *domain.PaperRecord) string {
	authors, year, title, venue := unknownAuthors, unknownYear, domain.UnknownTitle, unknownJournal
	if p != nil {
		if a := p.AuthorList(); a != "" {
			authors = a
		}
		if p.Year > 0 {
			year = strconv.Itoa(p.Year)
		}
		if p.Title != "" {
			title = p.Title
		}
		if p.Venue != "" {
			venue = p.Venue
		}
	}
	return fmt.Sprintf("%s (%s). %s. %s.", authors, year, title, venue)
}

// PDFs lists the PDF link of every selected paper. Papers without one are
// reported with the "No PDF available" sentinel.
func (s *Service) PDFs(ctx context.Context, ids []string, known map[string]*domain.PaperRecord) (*domain.EnrichmentResult, error) {
	return s.run(ctx, domain.EnrichmentPDFs, ids, func(_ context.Context, result *domain.EnrichmentResult) error {
		if err := requireSelected("pdfs", ids); err != nil {
			return err
		}

		for _, id := range ids {
			paper, ok := known[id]
			if !ok {
				err := fmt.Errorf("paper %s is not known", id)
				result.Blocks = append(result.Blocks, errorBlock(id, id, err.Error(), err))
				continue
			}
			body := domain.NoPDFAvailable
			if paper.HasPDF() {
				body = paper.PDFURL
			}
			result.Blocks = append(result.Blocks, domain.EnrichmentBlock{PaperID: id, Title: paper.Title, Body: body})
		}
		return nil
	})
}

// Fulltext resolves each selected title through the fulltext cascade.
// Titles no provider can resolve get an error block.
func (s *Service) Fulltext(ctx context.Context, ids []string, titles domain.TitleIndex) (*domain.EnrichmentResult, error) {
	return s.run(ctx, domain.EnrichmentFulltext, ids, func(ctx context.Context, result *domain.EnrichmentResult) error {
		if err := requireIndexed("fulltext", ids, titles, 1); err != nil {
			return err
		}
		if s.fulltext == nil {
			return domain.NewPreconditionError("fulltext", "no fulltext providers configured")
		}

		blocks := make([]domain.EnrichmentBlock, len(ids))
		forEach(ctx, s.config.Concurrency, len(ids), func(ctx context.Context, i int) {
			id, title := ids[i], titleOf(titles, ids[i])
			ft, ok := s.fulltext.Resolve(ctx, title)
			if !ok {
				err := fmt.Errorf("no fulltext found for %q", title)
				blocks[i] = errorBlock(id, title, "Fulltext unavailable.", err)
				return
			}
			body := ft.URL
			if body == "" {
				body = ft.Text
			}
			blocks[i] = domain.EnrichmentBlock{PaperID: id, Title: title, Body: body, Source: ft.Provider, Fulltext: &ft}
		})
		result.Blocks = blocks
		return nil
	})
}
