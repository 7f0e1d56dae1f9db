// Package pipeline orchestrates a research session: distilling a query into a
// search phrase, discovering candidate papers, managing the selection and
// dispatching enrichment operations over it.
//
// Every call takes the session explicitly. The pipeline holds no per-user
// state of its own and is safe for concurrent use across sessions.
package pipeline

import (
	"context"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

// DefaultSearchLimit is the number of candidates requested per discovery.
const DefaultSearchLimit = papersources.DefaultSearchLimit

// Distiller turns free-form text into a search phrase.
type Distiller interface {
	Distill(ctx context.Context, text string) (string, error)
}

// IntentDetector classifies a chat message.
type IntentDetector interface {
	Detect(ctx context.Context, message string) ([]llm.Intent, error)
}

// Enricher runs the enrichment operations over a validated selection.
type Enricher interface {
	Citations(ctx context.Context, ids []string, titles domain.TitleIndex) (*domain.EnrichmentResult, error)
	BibTeX(ctx context.Context, ids []string, known map[string]*domain.PaperRecord) (*domain.EnrichmentResult, error)
	Compare(ctx context.Context, ids []string, titles domain.TitleIndex) (*domain.EnrichmentResult, error)
	Summarize(ctx context.Context, ids []string, titles domain.TitleIndex) (*domain.EnrichmentResult, error)
	Review(ctx context.Context, ids []string, known map[string]*domain.PaperRecord) (*domain.EnrichmentResult, error)
	PDFs(ctx context.Context, ids []string, known map[string]*domain.PaperRecord) (*domain.EnrichmentResult, error)
	Fulltext(ctx context.Context, ids []string, titles domain.TitleIndex) (*domain.EnrichmentResult, error)
}

// EventEmitter publishes session events. Implementations must not block on
// or report publish failures.
type EventEmitter interface {
	EmitDiscovered(ctx context.Context, sessionID string, payload domain.DiscoveredPayload)
	EmitEnrichmentCompleted(ctx context.Context, sessionID string, payload domain.EnrichmentCompletedPayload)
}

// Config configures a Pipeline.
type Config struct {
	// SearchLimit is the number of candidates requested per discovery.
	SearchLimit int
	// DocumentMaxChars bounds the document text appended to a query.
	DocumentMaxChars int
}

func (c *Config) applyDefaults() {
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
}

// Dependencies are the collaborators of a Pipeline. Distiller, Searcher and
// Enricher are required; Intents, Events and Metrics may be nil.
type Dependencies struct {
	Distiller Distiller
	Searcher  papersources.PaperSearcher
	Enricher  Enricher
	Intents   IntentDetector
	Events    EventEmitter
	Metrics   *observability.Metrics
}

// Pipeline is the query-to-enrichment orchestrator.
type Pipeline struct {
	config    Config
	distiller Distiller
	searcher  papersources.PaperSearcher
	enricher  Enricher
	intents   IntentDetector
	events    EventEmitter
	metrics   *observability.Metrics
}

// New creates a Pipeline.
func New(cfg Config, deps Dependencies) *Pipeline {
	cfg.applyDefaults()
	events := deps.Events
	if events == nil {
		events = noopEmitter{}
	}
	return &Pipeline{
		config:    cfg,
		distiller: deps.Distiller,
		searcher:  deps.Searcher,
		enricher:  deps.Enricher,
		intents:   deps.Intents,
		events:    events,
		metrics:   deps.Metrics,
	}
}

// DetectIntent classifies message into the ordered intents it expresses.
func (p *Pipeline) DetectIntent(ctx context.Context, message string) ([]llm.Intent, error) {
	if p.intents == nil {
		return nil, domain.NewPreconditionError("detect intent", "intent detection is not configured")
	}
	return p.intents.Detect(ctx, message)
}

type noopEmitter struct{}

func (noopEmitter) EmitDiscovered(context.Context, string, domain.DiscoveredPayload) {}

func (noopEmitter) EmitEnrichmentCompleted(context.Context, string, domain.EnrichmentCompletedPayload) {
}
