package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

const (
	noCitationsFound  = "No citations found."
	noContextProvided = "No context provided."
)

// Citations fetches citing works for every id. A failed lookup becomes that
// paper's error block; the other papers are unaffected.
func (s *Service) Citations(ctx context.Context, ids []string, titles domain.TitleIndex) (*domain.EnrichmentResult, error) {
	return s.run(ctx, domain.EnrichmentCitations, ids, func(ctx context.Context, result *domain.EnrichmentResult) error {
		if err := requireIndexed("citations", ids, titles, 1); err != nil {
			return err
		}
		if s.citations == nil {
			return domain.NewPreconditionError("citations", "no citation provider configured")
		}

		blocks := make([]domain.EnrichmentBlock, len(ids))
		forEach(ctx, s.config.Concurrency, len(ids), func(ctx context.Context, i int) {
			blocks[i] = s.citationBlock(ctx, ids[i], titleOf(titles, ids[i]))
		})
		result.Blocks = blocks
		return nil
	})
}

func (s *Service) citationBlock(ctx context.Context, id, title string) domain.EnrichmentBlock {
	heading := "Citations for " + title
	citations, err := s.citations.LookupCitations(ctx, id, s.config.CitationLimit)
	if err != nil {
		logger := observability.WithPaperContext(observability.LoggerFromContext(ctx), id, title)
		logger.Warn().Err(err).Msg("citation lookup failed")
		return errorBlock(id, heading, fmt.Sprintf("Error retrieving citations for paper %s: %v", id, err), err)
	}

	return domain.EnrichmentBlock{
		PaperID:   id,
		Title:     heading,
		Body:      FormatCitations(citations),
		Source:    "lookup",
		Citations: citations,
	}
}

// FormatCitations renders citing works as plain text.
func FormatCitations(citations []domain.Citation) string {
	if len(citations) == 0 {
		return noCitationsFound
	}

	var b strings.Builder
	for i, c := range citations {
		if i > 0 {
			b.WriteString("\n")
		}
		authors := strings.Join(c.Authors, ", ")
		if authors == "" {
			authors = domain.UnknownAuthor
		}
		fmt.Fprintf(&b, "* %s\n  Authors: %s\n  Contexts:\n", c.Title, authors)
		if len(c.Contexts) == 0 {
			fmt.Fprintf(&b, "  - %s\n", noContextProvided)
			continue
		}
		for _, ctx := range c.Contexts {
			fmt.Fprintf(&b, "  - %s\n", ctx)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
