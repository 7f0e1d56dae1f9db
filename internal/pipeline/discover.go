package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/helixir/research-assistant-service/internal/document"
	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/session"
)

// Discovery is the accepted outcome of one discovery.
type Discovery struct {
	Phrase     string                `json:"phrase"`
	Sequence   uint64                `json:"sequence"`
	Candidates []*domain.PaperRecord `json:"candidates"`
	TitleIndex domain.TitleIndex     `json:"title_index"`
	Selection  []string              `json:"selection"`
	// Listing is the numbered markdown rendering of the candidates.
	Listing string `json:"listing"`
}

// Discover distills query (with documentText appended) into a search phrase,
// searches for papers and replaces the session's candidate set. A discovery
// that finishes after a newer one on the same session was accepted returns
// domain.ErrStaleDiscovery and leaves the session untouched.
func (p *Pipeline) Discover(ctx context.Context, s *session.Session, query, documentText string) (*Discovery, error) {
	input := ComposeInput(query, documentText, p.config.DocumentMaxChars)
	if input == "" {
		return nil, domain.NewPreconditionError("discover", "query is empty")
	}

	ctx = observability.WithSessionID(ctx, s.ID())
	seq := s.BeginDiscovery()
	ctx, span := observability.StartSpan(ctx, "pipeline.discover",
		attribute.String("session.id", s.ID()),
		attribute.Int64("discovery.sequence", int64(seq)),
	)
	logger := observability.LoggerFromContext(ctx).With().Uint64("sequence", seq).Logger()
	start := time.Now()

	result, err := p.discover(ctx, s, seq, query, input)

	outcome := discoveryOutcome(err)
	candidates := 0
	if result != nil {
		candidates = len(result.Candidates)
	}
	p.metrics.RecordDiscovery(outcome, candidates, time.Since(start).Seconds())
	span.SetAttributes(attribute.String("discovery.outcome", outcome), attribute.Int("discovery.candidates", candidates))
	observability.EndSpan(span, err)

	if err != nil {
		logger.Warn().Err(err).Str("outcome", outcome).Msg("discovery failed")
		return nil, err
	}

	logger.Info().
		Str("phrase", result.Phrase).
		Int("candidates", candidates).
		Dur("duration", time.Since(start)).
		Msg("discovery accepted")

	p.events.EmitDiscovered(ctx, s.ID(), domain.DiscoveredPayload{
		Query:      query,
		Phrase:     result.Phrase,
		Sequence:   result.Sequence,
		PaperIDs:   paperIDs(result.Candidates),
		Candidates: candidates,
	})
	return result, nil
}

func (p *Pipeline) discover(ctx context.Context, s *session.Session, seq uint64, query, input string) (*Discovery, error) {
	phrase, err := p.distiller.Distill(ctx, input)
	if err != nil {
		return nil, err
	}
	logger := observability.LoggerFromContext(ctx)
	logger.Debug().Str("phrase", phrase).Msg("search phrase distilled")

	papers, err := p.searcher.SearchPapers(ctx, phrase, p.config.SearchLimit)
	if err != nil {
		var de *domain.DiscoveryError
		if !errors.As(err, &de) {
			err = &domain.DiscoveryError{Provider: p.searcher.Name(), Cause: err}
		}
		return nil, err
	}
	for _, paper := range papers {
		paper.Normalize()
	}

	snap, err := s.ReplaceCandidates(seq, query, phrase, papers)
	if err != nil {
		if errors.Is(err, domain.ErrSchema) {
			return nil, &domain.DiscoveryError{Provider: p.searcher.Name(), Cause: err}
		}
		return nil, err
	}

	return &Discovery{
		Phrase:     phrase,
		Sequence:   snap.Sequence,
		Candidates: snap.Candidates,
		TitleIndex: snap.TitleIndex,
		Selection:  snap.Selection,
		Listing:    FormatListing(snap.Candidates),
	}, nil
}

// ComposeInput appends the document text, truncated to maxChars when
// positive, to the user's query.
func ComposeInput(query, documentText string, maxChars int) string {
	query = strings.TrimSpace(query)
	documentText = strings.TrimSpace(documentText)
	if documentText == "" {
		return query
	}
	documentText = document.Truncate(documentText, maxChars)
	if query == "" {
		return documentText
	}
	return query + "\n\nDocument:\n" + documentText
}

func discoveryOutcome(err error) string {
	switch {
	case err == nil:
		return "succeeded"
	case errors.Is(err, domain.ErrStaleDiscovery):
		return "stale"
	case errors.Is(err, domain.ErrPrecondition):
		return "precondition"
	case errors.Is(err, domain.ErrDistill):
		return "distill_failed"
	default:
		return "discovery_failed"
	}
}

func paperIDs(papers []*domain.PaperRecord) []string {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	return ids
}
