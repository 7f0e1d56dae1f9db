// Package app assembles the research assistant from configuration. Both the
// HTTP server and the CLI build their object graph through it.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/config"
	"github.com/helixir/research-assistant-service/internal/document"
	"github.com/helixir/research-assistant-service/internal/enrichment"
	"github.com/helixir/research-assistant-service/internal/events"
	"github.com/helixir/research-assistant-service/internal/fulltext"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
	"github.com/helixir/research-assistant-service/internal/papersources/arxiv"
	"github.com/helixir/research-assistant-service/internal/papersources/gateway"
	"github.com/helixir/research-assistant-service/internal/papersources/openalex"
	"github.com/helixir/research-assistant-service/internal/papersources/pubmed"
	"github.com/helixir/research-assistant-service/internal/papersources/semanticscholar"
	"github.com/helixir/research-assistant-service/internal/pipeline"
	"github.com/helixir/research-assistant-service/internal/session"
)

// Cache backends.
const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// paperService is what a discovery provider offers.
type paperService interface {
	papersources.PaperSearcher
	papersources.CitationLookup
	papersources.BibTeXLookup
}

// App is the assembled service.
type App struct {
	Pipeline  *pipeline.Pipeline
	Sessions  *session.Registry
	Extractor *document.Extractor
	Fetcher   *document.Downloader
	Emitter   *events.Emitter
	Metrics   *observability.Metrics

	// Readiness holds dependency checks for /readyz.
	Readiness map[string]func(ctx context.Context) error

	closers []func() error
	logger  zerolog.Logger
}

// Build constructs every component described by cfg. metrics may be nil.
func Build(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) (*App, error) {
	a := &App{
		Metrics:   metrics,
		Readiness: make(map[string]func(ctx context.Context) error),
		logger:    logger,
	}

	cache, err := a.buildCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	papers := buildPaperService(cfg, cache, metrics)
	resolver := buildFulltextResolver(cfg, cache, metrics)

	completer, err := llm.NewCompleter(ctx, llmFactoryConfig(cfg.LLM))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create LLM completer: %w", err)
	}
	instrumented := llm.NewInstrumented(completer, metrics)

	enricher := enrichment.NewService(enrichment.Config{
		Concurrency:   cfg.Enrichment.Concurrency,
		CitationLimit: cfg.Enrichment.CitationLimit,
	}, enrichment.Dependencies{
		Citations: papers,
		BibTeX:    papers,
		Completer: instrumented,
		Fulltext:  resolver,
		Metrics:   metrics,
	})

	emitter, err := a.buildEmitter(cfg.Kafka, metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Emitter = emitter

	a.Pipeline = pipeline.New(pipeline.Config{
		SearchLimit:      cfg.Discovery.Limit,
		DocumentMaxChars: cfg.Document.MaxChars,
	}, pipeline.Dependencies{
		Distiller: llm.NewKeywordDistiller(instrumented),
		Searcher:  papers,
		Enricher:  enricher,
		Intents:   llm.NewIntentDetector(instrumented, cfg.LLM.OpenAI.IntentModel),
		Events:    emitter,
		Metrics:   metrics,
	})

	a.Sessions = session.NewRegistry(session.RegistryConfig{
		IdleTTL:       cfg.Session.IdleTTL,
		SweepInterval: cfg.Session.SweepInterval,
		MaxSessions:   cfg.Session.MaxSessions,
	}, metrics, logger)

	a.Extractor = document.NewExtractor(cfg.Document.MaxChars)
	a.Fetcher = document.NewDownloader(document.DownloaderConfig{
		Timeout:  cfg.Document.DownloadTimeout,
		MaxBytes: cfg.Document.MaxDownloadBytes,
	})

	logger.Info().
		Str("discovery", papers.Name()).
		Str("llm_provider", instrumented.Provider()).
		Str("llm_model", instrumented.Model()).
		Strs("fulltext", resolver.Strategies()).
		Str("cache", cfg.Cache.Backend).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("research assistant assembled")

	return a, nil
}

// Close releases connections held by the App.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error().Err(err).Msg("failed to close component")
		}
	}
	a.closers = nil
}

func (a *App) buildCache(ctx context.Context, cfg config.CacheConfig) (papersources.Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", CacheBackendNone:
		return nil, nil
	case CacheBackendMemory:
		return papersources.NewMemoryCache(cfg.MaxEntries, cfg.TTL), nil
	case CacheBackendRedis:
		rc, err := papersources.NewRedisCache(ctx, papersources.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		a.closers = append(a.closers, rc.Close)
		a.Readiness["redis"] = rc.Ping
		return rc, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %q", cfg.Backend)
	}
}

func (a *App) buildEmitter(cfg config.KafkaConfig, metrics *observability.Metrics) (*events.Emitter, error) {
	if !cfg.Enabled {
		return events.NewEmitter(events.NoopPublisher{}, metrics, a.logger), nil
	}
	publisher, err := events.NewKafkaPublisher(KafkaConfig(cfg, ""))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	emitter := events.NewEmitter(publisher, metrics, a.logger)
	a.closers = append(a.closers, emitter.Close)
	return emitter, nil
}

// KafkaConfig converts the kafka config section. groupID is only used by
// listeners.
func KafkaConfig(cfg config.KafkaConfig, groupID string) events.KafkaConfig {
	return events.KafkaConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		GroupID:      groupID,
	}
}

func buildPaperService(cfg *config.Config, cache papersources.Cache, metrics *observability.Metrics) paperService {
	if strings.EqualFold(cfg.Discovery.Provider, config.DiscoveryProviderSemanticScholar) {
		return semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:    cfg.SemanticScholar.BaseURL,
			APIKey:     cfg.SemanticScholar.APIKey,
			Timeout:    cfg.SemanticScholar.Timeout,
			RateLimit:  cfg.SemanticScholar.RateLimit,
			MaxRetries: cfg.SemanticScholar.MaxRetries,
		}, cache, metrics)
	}
	return gateway.NewClient(gateway.Config{
		BaseURL:    cfg.Gateway.BaseURL,
		Timeout:    cfg.Gateway.Timeout,
		RateLimit:  cfg.Gateway.RateLimit,
		MaxRetries: cfg.Gateway.MaxRetries,
	}, cache, metrics)
}

// buildFulltextResolver chains the enabled fulltext sources in the order
// OpenAlex, PubMed, arXiv.
func buildFulltextResolver(cfg *config.Config, cache papersources.Cache, metrics *observability.Metrics) *fulltext.Resolver {
	ft := cfg.Fulltext
	var strategies []fulltext.Strategy
	if ft.OpenAlex.Enabled {
		strategies = append(strategies, fulltext.FromSource(openalex.New(openalex.Config{
			BaseURL:    ft.OpenAlex.BaseURL,
			Email:      ft.Email,
			APIKey:     ft.OpenAlex.APIKey,
			Timeout:    ft.OpenAlex.Timeout,
			RateLimit:  ft.OpenAlex.RateLimit,
			MaxRetries: ft.OpenAlex.MaxRetries,
		}, cache, metrics)))
	}
	if ft.PubMed.Enabled {
		strategies = append(strategies, fulltext.FromSource(pubmed.New(pubmed.Config{
			BaseURL:    ft.PubMed.BaseURL,
			APIKey:     ft.PubMed.APIKey,
			Tool:       "research-assistant",
			Email:      ft.Email,
			Timeout:    ft.PubMed.Timeout,
			RateLimit:  ft.PubMed.RateLimit,
			MaxRetries: ft.PubMed.MaxRetries,
		}, cache, metrics)))
	}
	if ft.ArXiv.Enabled {
		strategies = append(strategies, fulltext.FromSource(arxiv.New(arxiv.Config{
			BaseURL:    ft.ArXiv.BaseURL,
			Timeout:    ft.ArXiv.Timeout,
			RateLimit:  ft.ArXiv.RateLimit,
			MaxRetries: ft.ArXiv.MaxRetries,
		}, cache, metrics)))
	}
	return fulltext.NewResolver(metrics, strategies...)
}

func llmFactoryConfig(cfg config.LLMConfig) llm.FactoryConfig {
	return llm.FactoryConfig{
		Provider:    cfg.Provider,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		OpenAI: llm.OpenAIConfig{
			APIKeys: cfg.OpenAI.APIKeys,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.Anthropic.APIKey,
			Model:   cfg.Anthropic.Model,
			BaseURL: cfg.Anthropic.BaseURL,
		},
		Gemini: llm.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		},
	}
}
