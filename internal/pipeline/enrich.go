package pipeline

import (
	"context"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/session"
)

// SetSelection replaces the session's selection. Ids outside the current
// candidate set are rejected with a PreconditionError.
func (p *Pipeline) SetSelection(s *session.Session, ids []string) error {
	return s.SetSelection(ids)
}

// RunEnrichment runs kind over the session's current selection. The
// selection is re-validated against the title index first; an orphaned id
// fails the run before any provider call. The returned result is never nil.
// A non-nil error means the operation could not run at all; per-paper
// failures are reported in the result's blocks.
func (p *Pipeline) RunEnrichment(ctx context.Context, s *session.Session, kind domain.EnrichmentKind) (*domain.EnrichmentResult, error) {
	ctx = observability.WithSessionID(ctx, s.ID())

	papers, titles, err := s.SelectedPapers()
	if err != nil {
		result := domain.NewEnrichmentResult(kind)
		result.Begin()
		result.Fail(err)
		p.metrics.RecordEnrichment(string(kind), string(result.Status), 0)
		p.emitCompleted(ctx, s.ID(), result, nil)
		return result, err
	}

	ids := make([]string, len(papers))
	known := make(map[string]*domain.PaperRecord, len(papers))
	for i, paper := range papers {
		ids[i] = paper.ID
		known[paper.ID] = paper
	}

	var result *domain.EnrichmentResult
	switch kind {
	case domain.EnrichmentCitations:
		result, err = p.enricher.Citations(ctx, ids, titles)
	case domain.EnrichmentBibTeX:
		result, err = p.enricher.BibTeX(ctx, ids, known)
	case domain.EnrichmentCompare:
		result, err = p.enricher.Compare(ctx, ids, titles)
	case domain.EnrichmentSummarize:
		result, err = p.enricher.Summarize(ctx, ids, titles)
	case domain.EnrichmentReview:
		result, err = p.enricher.Review(ctx, ids, known)
	case domain.EnrichmentPDFs:
		result, err = p.enricher.PDFs(ctx, ids, known)
	case domain.EnrichmentFulltext:
		result, err = p.enricher.Fulltext(ctx, ids, titles)
	default:
		_, perr := domain.ParseEnrichmentKind(string(kind))
		result = domain.NewEnrichmentResult(kind)
		result.Begin()
		result.Fail(perr)
		return result, perr
	}

	logger := observability.LoggerFromContext(ctx)
	logger.Info().
		Str("kind", string(kind)).
		Str("status", string(result.Status)).
		Int("papers", len(ids)).
		Msg("enrichment completed")

	p.emitCompleted(ctx, s.ID(), result, ids)
	return result, err
}

func (p *Pipeline) emitCompleted(ctx context.Context, sessionID string, result *domain.EnrichmentResult, ids []string) {
	failed := 0
	for i := range result.Blocks {
		if result.Blocks[i].Failed() {
			failed++
		}
	}
	if ids == nil {
		ids = []string{}
	}
	p.events.EmitEnrichmentCompleted(ctx, sessionID, domain.EnrichmentCompletedPayload{
		Kind:     result.Kind,
		Status:   result.Status,
		PaperIDs: ids,
		Failed:   failed,
		Error:    result.Error,
	})
}
