package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
	Close() error
}

// Emitter builds session events and hands them to a Publisher.
type Emitter struct {
	publisher Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewEmitter creates an Emitter. A nil publisher is replaced by NoopPublisher.
func NewEmitter(publisher Publisher, metrics *observability.Metrics, logger zerolog.Logger) *Emitter {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Emitter{
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "event_emitter").Logger(),
	}
}

// Emit publishes payload as an event of eventType for sessionID.
func (e *Emitter) Emit(ctx context.Context, eventType, sessionID string, payload any) {
	event, err := domain.NewEvent(eventType, sessionID, payload)
	if err != nil {
		e.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		e.metrics.RecordEventPublished(eventType, err)
		return
	}

	err = e.publisher.Publish(ctx, event)
	e.metrics.RecordEventPublished(eventType, err)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("event_type", eventType).
			Str("session_id", sessionID).
			Msg("failed to publish event")
		return
	}
	e.logger.Debug().
		Str("event_id", event.EventID).
		Str("event_type", eventType).
		Str("session_id", sessionID).
		Msg("event published")
}

// EmitDiscovered publishes a research.session.discovered event.
func (e *Emitter) EmitDiscovered(ctx context.Context, sessionID string, payload domain.DiscoveredPayload) {
	e.Emit(ctx, domain.EventTypeSessionDiscovered, sessionID, payload)
}

// EmitEnrichmentCompleted publishes a research.enrichment.completed event.
func (e *Emitter) EmitEnrichmentCompleted(ctx context.Context, sessionID string, payload domain.EnrichmentCompletedPayload) {
	e.Emit(ctx, domain.EventTypeEnrichmentComplete, sessionID, payload)
}

// Close closes the underlying publisher.
func (e *Emitter) Close() error {
	return e.publisher.Close()
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, *domain.Event) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }
