// Package fulltext resolves a paper title to fulltext text or a fulltext URL
// by trying providers in a fixed priority order.
package fulltext

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

// Strategy is one step of the cascade. ok is false when the strategy found
// nothing usable, including when its provider failed.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, title string) (ft domain.Fulltext, ok bool)
}

// sourceStrategy adapts a FulltextSource into a Strategy. Provider errors are
// logged and count as empty.
type sourceStrategy struct {
	source papersources.FulltextSource
}

// FromSource wraps source as a Strategy.
func FromSource(source papersources.FulltextSource) Strategy {
	return sourceStrategy{source: source}
}

func (s sourceStrategy) Name() string {
	return s.source.Name()
}

func (s sourceStrategy) Attempt(ctx context.Context, title string) (domain.Fulltext, bool) {
	logger := observability.LoggerFromContext(ctx).With().
		Str("provider", s.source.Name()).
		Str("title", title).
		Logger()

	ft, err := s.source.LookupFulltext(ctx, title)
	if err != nil {
		logger.Warn().Err(err).Msg("fulltext provider failed, treating as empty")
		return domain.Fulltext{}, false
	}
	if ft.Empty() {
		logger.Debug().Msg("fulltext provider returned nothing")
		return domain.Fulltext{}, false
	}
	if ft.Provider == "" {
		ft.Provider = s.source.Name()
	}
	return ft, true
}

// Resolver runs strategies in order and returns the first non-empty result.
type Resolver struct {
	strategies []Strategy
	metrics    *observability.Metrics
}

// NewResolver creates a Resolver. The order of strategies is the priority
// order. metrics may be nil.
func NewResolver(metrics *observability.Metrics, strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, metrics: metrics}
}

// Resolve returns the first strategy result that is not empty. ok is false
// when every strategy came back empty.
func (r *Resolver) Resolve(ctx context.Context, title string) (ft domain.Fulltext, ok bool) {
	ctx, span := observability.StartSpan(ctx, "fulltext.resolve", attribute.String("paper.title", title))
	defer func() {
		span.SetAttributes(attribute.Bool("fulltext.found", ok), attribute.String("fulltext.provider", ft.Provider))
		observability.EndSpan(span, nil)
	}()

	for _, s := range r.strategies {
		if ctx.Err() != nil {
			break
		}
		if ft, ok := s.Attempt(ctx, title); ok {
			r.metrics.RecordFulltextResolution(s.Name())
			return ft, true
		}
	}
	r.metrics.RecordFulltextResolution("unavailable")
	return domain.Fulltext{}, false
}

// Strategies returns the configured strategy names in priority order.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}
