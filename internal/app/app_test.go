package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Provider: "openai",
			Timeout:  time.Second,
			OpenAI:   config.OpenAIConfig{APIKeys: []string{"sk-test"}, Model: "gpt-4o-mini"},
		},
		Discovery: config.DiscoveryConfig{Provider: config.DiscoveryProviderGateway, Limit: 10},
		Gateway:   config.ProviderConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Fulltext: config.FulltextConfig{
			OpenAlex: config.ProviderConfig{Enabled: true, Timeout: time.Second},
			ArXiv:    config.ProviderConfig{Enabled: true, Timeout: time.Second},
		},
		Enrichment: config.EnrichmentConfig{Concurrency: 1, CitationLimit: 5},
		Cache:      config.CacheConfig{Backend: CacheBackendMemory, MaxEntries: 10, TTL: time.Minute},
		Document:   config.DocumentConfig{MaxChars: 1000},
	}
}

func TestBuild(t *testing.T) {
	a, err := Build(context.Background(), testConfig(), nil, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Pipeline)
	assert.NotNil(t, a.Sessions)
	assert.NotNil(t, a.Extractor)
	assert.NotNil(t, a.Fetcher)
	assert.NotNil(t, a.Emitter)
	assert.Empty(t, a.Readiness)
}

func TestBuild_SemanticScholar(t *testing.T) {
	cfg := testConfig()
	cfg.Discovery.Provider = config.DiscoveryProviderSemanticScholar
	cfg.Cache.Backend = CacheBackendNone

	papers := buildPaperService(cfg, nil, nil)
	assert.Equal(t, "semanticscholar", papers.Name())
}

func TestBuild_Errors(t *testing.T) {
	t.Run("unknown cache backend", func(t *testing.T) {
		cfg := testConfig()
		cfg.Cache.Backend = "memcached"
		_, err := Build(context.Background(), cfg, nil, zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "memcached")
	})

	t.Run("unknown llm provider", func(t *testing.T) {
		cfg := testConfig()
		cfg.LLM.Provider = "llama"
		_, err := Build(context.Background(), cfg, nil, zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create LLM completer")
	})
}

func TestBuildFulltextResolver_Order(t *testing.T) {
	cfg := testConfig()
	cfg.Fulltext.PubMed = config.ProviderConfig{Enabled: true, Timeout: time.Second}

	r := buildFulltextResolver(cfg, nil, nil)
	assert.Equal(t, []string{"openalex", "pubmed", "arxiv"}, r.Strategies())
}

func TestKafkaConfig(t *testing.T) {
	kc := KafkaConfig(config.KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "research.events",
		BatchSize:    10,
		BatchTimeout: time.Second,
	}, "cli")
	assert.Equal(t, []string{"localhost:9092"}, kc.Brokers)
	assert.Equal(t, "research.events", kc.Topic)
	assert.Equal(t, "cli", kc.GroupID)
}
