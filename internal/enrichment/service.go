// Package enrichment runs the per-selection operations of a research session:
// citations, BibTeX, comparison, summaries, literature review, PDF listing
// and fulltext resolution. Each operation returns a presentation-agnostic
// EnrichmentResult whose blocks always carry human-readable text.
package enrichment

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

// Default settings.
const (
	DefaultConcurrency   = 1
	DefaultCitationLimit = papersources.DefaultCitationLimit
)

// FulltextResolver resolves a title to fulltext.
type FulltextResolver interface {
	Resolve(ctx context.Context, title string) (domain.Fulltext, bool)
}

// Config configures a Service.
type Config struct {
	// Concurrency bounds parallel per-paper calls. 1 keeps them sequential.
	Concurrency int
	// CitationLimit is the number of citing works fetched per paper.
	CitationLimit int
	// Model overrides the completer's default model for generative operations.
	Model string
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.CitationLimit <= 0 {
		c.CitationLimit = DefaultCitationLimit
	}
}

// Dependencies are the external collaborators of a Service. Any of them may
// be nil, in which case the operations needing it fail with a precondition
// error.
type Dependencies struct {
	Citations papersources.CitationLookup
	BibTeX    papersources.BibTeXLookup
	Completer llm.Completer
	Fulltext  FulltextResolver
	Metrics   *observability.Metrics
}

// Service runs enrichment operations.
type Service struct {
	config    Config
	citations papersources.CitationLookup
	bibtex    papersources.BibTeXLookup
	completer llm.Completer
	fulltext  FulltextResolver
	metrics   *observability.Metrics
}

// NewService creates a Service.
func NewService(cfg Config, deps Dependencies) *Service {
	cfg.applyDefaults()
	return &Service{
		config:    cfg,
		citations: deps.Citations,
		bibtex:    deps.BibTeX,
		completer: deps.Completer,
		fulltext:  deps.Fulltext,
		metrics:   deps.Metrics,
	}
}

// Concurrency returns the configured per-paper concurrency.
func (s *Service) Concurrency() int {
	return s.config.Concurrency
}

// run wraps an operation body with span, metrics and result state handling.
// A precondition error from body fails the result and is returned.
func (s *Service) run(ctx context.Context, kind domain.EnrichmentKind, ids []string, body func(ctx context.Context, result *domain.EnrichmentResult) error) (*domain.EnrichmentResult, error) {
	ctx, span := observability.StartSpan(ctx, "enrichment."+string(kind),
		attribute.String("enrichment.kind", string(kind)),
		attribute.Int("enrichment.papers", len(ids)),
	)
	logger := observability.LoggerFromContext(ctx).With().Str("kind", string(kind)).Logger()

	result := domain.NewEnrichmentResult(kind)
	result.Begin()
	start := time.Now()

	err := body(ctx, result)
	if err != nil {
		result.Fail(err)
		logger.Info().Err(err).Msg("enrichment refused")
	} else {
		result.Complete()
	}

	s.metrics.RecordEnrichment(string(kind), string(result.Status), time.Since(start).Seconds())
	span.SetAttributes(attribute.String("enrichment.status", string(result.Status)))
	observability.EndSpan(span, err)

	logger.Debug().
		Str("status", string(result.Status)).
		Int("blocks", len(result.Blocks)).
		Dur("duration", time.Since(start)).
		Msg("enrichment finished")
	return result, err
}

// requireIndexed checks that ids is non-empty and every id is in titles.
func requireIndexed(op string, ids []string, titles domain.TitleIndex, min int) error {
	if len(ids) < min {
		if min <= 1 {
			return domain.NewPreconditionError(op, "no papers selected")
		}
		return domain.NewPreconditionError(op, fmt.Sprintf("at least %d papers must be selected", min))
	}
	for _, id := range ids {
		if _, ok := titles[id]; !ok {
			return domain.NewPreconditionError(op, fmt.Sprintf("paper %q is not in the current candidate set", id))
		}
	}
	return nil
}

// requireSelected checks that at least one paper is selected.
func requireSelected(op string, ids []string) error {
	if len(ids) == 0 {
		return domain.NewPreconditionError(op, "no papers selected")
	}
	return nil
}

func titleOf(titles domain.TitleIndex, id string) string {
	if t, ok := titles[id]; ok && t != "" {
		return t
	}
	return id
}

func errorBlock(id, title, body string, err error) domain.EnrichmentBlock {
	return domain.EnrichmentBlock{
		PaperID: id,
		Title:   title,
		Body:    body,
		Error:   err.Error(),
	}
}
