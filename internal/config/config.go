// Package config provides configuration management for the research assistant service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for every environment variable read by Load.
const EnvPrefix = "RESEARCH_ASSISTANT"

// Discovery provider names.
const (
	DiscoveryProviderGateway         = "gateway"
	DiscoveryProviderSemanticScholar = "semanticscholar"
)

// Config holds all configuration for the research assistant service.
type Config struct {
	// Server contains HTTP/gRPC server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// LLM contains generative model client settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Discovery selects the paper-search provider.
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	// Gateway contains the paper_search/lookup_citations/bibtex service settings.
	Gateway ProviderConfig `mapstructure:"gateway"`
	// SemanticScholar contains Semantic Scholar Graph API settings.
	SemanticScholar ProviderConfig `mapstructure:"semantic_scholar"`
	// Fulltext contains the fulltext cascade provider settings.
	Fulltext FulltextConfig `mapstructure:"fulltext"`
	// Enrichment contains enrichment worker settings.
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	// Session contains session registry settings.
	Session SessionConfig `mapstructure:"session"`
	// Cache contains provider response cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Kafka contains event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Document contains uploaded document handling settings.
	Document DocumentConfig `mapstructure:"document"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// GRPCPort is the gRPC health server port (default: 9090).
	GRPCPort int `mapstructure:"grpc_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxUploadBytes caps multipart document uploads.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// LLMConfig holds generative model configuration.
type LLMConfig struct {
	// Provider is the completion provider (openai, anthropic, gemini).
	Provider string `mapstructure:"provider"`
	// Timeout is the timeout for a single completion call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// Temperature is the default sampling temperature.
	Temperature float64 `mapstructure:"temperature"`
	// MaxTokens caps completion length.
	MaxTokens int `mapstructure:"max_tokens"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	// Gemini contains Google Gemini settings.
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	// APIKeys are the OpenAI API keys, rotated per request (loaded from env only).
	APIKeys []string `mapstructure:"-"`
	// Model is the OpenAI model used for enrichment prompts.
	Model string `mapstructure:"model"`
	// IntentModel is the model used for intent detection.
	IntentModel string `mapstructure:"intent_model"`
	// BaseURL is the OpenAI API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic-specific settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key (loaded from env only).
	APIKey string `mapstructure:"-"`
	// Model is the Anthropic model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the Anthropic API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	// APIKey is the Gemini API key (loaded from env only).
	APIKey string `mapstructure:"-"`
	// Model is the Gemini model name.
	Model string `mapstructure:"model"`
}

// DiscoveryConfig holds paper discovery settings.
type DiscoveryConfig struct {
	// Provider is the paper-search provider (gateway, semanticscholar).
	Provider string `mapstructure:"provider"`
	// Limit is the number of candidates requested per discovery.
	Limit int `mapstructure:"limit"`
}

// ProviderConfig holds configuration for a single external HTTP provider.
type ProviderConfig struct {
	// Enabled controls whether this provider is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from env only).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxRetries is the retry budget for 429 and 5xx responses.
	MaxRetries int `mapstructure:"max_retries"`
}

// FulltextConfig holds the three cascade providers in priority order.
type FulltextConfig struct {
	// OpenAlex is the scholarly-works provider (priority 1).
	OpenAlex ProviderConfig `mapstructure:"openalex"`
	// PubMed is the biomedical provider (priority 2).
	PubMed ProviderConfig `mapstructure:"pubmed"`
	// ArXiv is the preprint provider (priority 3).
	ArXiv ProviderConfig `mapstructure:"arxiv"`
	// Email is sent to providers that ask for a contact address.
	Email string `mapstructure:"email"`
}

// EnrichmentConfig holds enrichment settings.
type EnrichmentConfig struct {
	// Concurrency is the per-paper worker count. 1 keeps calls sequential.
	Concurrency int `mapstructure:"concurrency"`
	// CitationLimit is the number of citing works fetched per paper.
	CitationLimit int `mapstructure:"citation_limit"`
}

// SessionConfig holds session registry settings.
type SessionConfig struct {
	// IdleTTL is how long an untouched session survives.
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
	// SweepInterval is how often expired sessions are evicted.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// MaxSessions caps concurrently live sessions.
	MaxSessions int `mapstructure:"max_sessions"`
}

// CacheConfig holds provider response cache settings.
type CacheConfig struct {
	// Backend is the cache backend (none, memory, redis).
	Backend string `mapstructure:"backend"`
	// TTL is how long cached provider responses stay valid.
	TTL time.Duration `mapstructure:"ttl"`
	// MaxEntries bounds the in-memory backend.
	MaxEntries int `mapstructure:"max_entries"`
	// Redis contains Redis connection settings.
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	// Addr is the Redis address (host:port).
	Addr string `mapstructure:"addr"`
	// Password is the Redis password (loaded from env only).
	Password string `mapstructure:"-"`
	// DB is the Redis database index.
	DB int `mapstructure:"db"`
	// KeyPrefix namespaces cache keys.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka publisher settings.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic for session events.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// DocumentConfig holds uploaded document settings.
type DocumentConfig struct {
	// MaxChars truncates extracted document text before it is appended to a query.
	MaxChars int `mapstructure:"max_chars"`
	// DownloadTimeout bounds document URL downloads.
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	// MaxDownloadBytes caps downloaded documents.
	MaxDownloadBytes int64 `mapstructure:"max_download_bytes"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GRPCAddress returns the gRPC server address.
func (c *ServerConfig) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-assistant")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// Prefixed names win over the bare provider conventions.
func loadSecrets(cfg *Config) {
	cfg.LLM.OpenAI.APIKeys = openAIKeys()
	cfg.LLM.Anthropic.APIKey = firstEnv(EnvPrefix+"_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	cfg.LLM.Gemini.APIKey = firstEnv(EnvPrefix+"_LLM_GEMINI_API_KEY", "GEMINI_API_KEY")

	cfg.Gateway.APIKey = firstEnv(EnvPrefix + "_GATEWAY_API_KEY")
	cfg.SemanticScholar.APIKey = firstEnv(EnvPrefix+"_SEMANTIC_SCHOLAR_API_KEY", "SEMANTIC_SCHOLAR_API_KEY")
	cfg.Fulltext.OpenAlex.APIKey = firstEnv(EnvPrefix+"_FULLTEXT_OPENALEX_API_KEY", "OPENALEX_API_KEY")
	cfg.Fulltext.PubMed.APIKey = firstEnv(EnvPrefix+"_FULLTEXT_PUBMED_API_KEY", "PUBMED_API_KEY")

	cfg.Cache.Redis.Password = firstEnv(EnvPrefix+"_CACHE_REDIS_PASSWORD", "REDIS_PASSWORD")
}

// openAIKeys collects the OpenAI key pool. Numbered keys are rotated by the provider.
func openAIKeys() []string {
	var keys []string
	seen := map[string]bool{}
	for _, name := range []string{
		EnvPrefix + "_LLM_OPENAI_API_KEY",
		"OPENAI_API_KEY",
		"OPENAI_API_KEY_1",
		"OPENAI_API_KEY_2",
	} {
		if k := strings.TrimSpace(os.Getenv(name)); k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_upload_bytes", 20<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// LLM defaults. API keys are loaded exclusively from environment variables.
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", "2s")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.openai.intent_model", "gpt-4-turbo")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")

	// Discovery defaults
	v.SetDefault("discovery.provider", DiscoveryProviderGateway)
	v.SetDefault("discovery.limit", 10)

	// Gateway defaults
	v.SetDefault("gateway.enabled", true)
	v.SetDefault("gateway.base_url", "http://recommendpapers.xyz/api")
	v.SetDefault("gateway.timeout", "30s")
	v.SetDefault("gateway.rate_limit", 5.0)
	v.SetDefault("gateway.max_retries", 2)

	// Semantic Scholar defaults
	v.SetDefault("semantic_scholar.enabled", false)
	v.SetDefault("semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("semantic_scholar.timeout", "30s")
	v.SetDefault("semantic_scholar.rate_limit", 1.0)
	v.SetDefault("semantic_scholar.max_retries", 3)

	// Fulltext cascade defaults
	v.SetDefault("fulltext.openalex.enabled", true)
	v.SetDefault("fulltext.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("fulltext.openalex.timeout", "20s")
	v.SetDefault("fulltext.openalex.rate_limit", 10.0)
	v.SetDefault("fulltext.openalex.max_retries", 1)
	v.SetDefault("fulltext.pubmed.enabled", true)
	v.SetDefault("fulltext.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("fulltext.pubmed.timeout", "20s")
	v.SetDefault("fulltext.pubmed.rate_limit", 3.0) // NCBI allows 3 req/sec without an API key
	v.SetDefault("fulltext.pubmed.max_retries", 1)
	v.SetDefault("fulltext.arxiv.enabled", true)
	v.SetDefault("fulltext.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("fulltext.arxiv.timeout", "20s")
	v.SetDefault("fulltext.arxiv.rate_limit", 1.0)
	v.SetDefault("fulltext.arxiv.max_retries", 1)
	v.SetDefault("fulltext.email", "")

	// Enrichment defaults
	v.SetDefault("enrichment.concurrency", 1)
	v.SetDefault("enrichment.citation_limit", 3)

	// Session defaults
	v.SetDefault("session.idle_ttl", "2h")
	v.SetDefault("session.sweep_interval", "5m")
	v.SetDefault("session.max_sessions", 10000)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_entries", 5000)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key_prefix", "research-assistant:")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.research_assistant")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Document defaults
	v.SetDefault("document.max_chars", 20000)
	v.SetDefault("document.download_timeout", "60s")
	v.SetDefault("document.max_download_bytes", 50<<20)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM timeout must be positive")
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		if len(c.LLM.OpenAI.APIKeys) == 0 {
			return fmt.Errorf("LLM provider %q requires %s_LLM_OPENAI_API_KEY or OPENAI_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	case "anthropic":
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_ANTHROPIC_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	case "gemini":
		if c.LLM.Gemini.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_GEMINI_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLM.Provider)
	}

	switch c.Discovery.Provider {
	case DiscoveryProviderGateway:
		if c.Gateway.BaseURL == "" {
			return fmt.Errorf("gateway base_url is required")
		}
	case DiscoveryProviderSemanticScholar:
		if c.SemanticScholar.BaseURL == "" {
			return fmt.Errorf("semantic_scholar base_url is required")
		}
	default:
		return fmt.Errorf("unsupported discovery provider: %q", c.Discovery.Provider)
	}
	if c.Discovery.Limit <= 0 || c.Discovery.Limit > 100 {
		return fmt.Errorf("discovery limit must be between 1 and 100, got %d", c.Discovery.Limit)
	}

	if c.Enrichment.Concurrency < 1 {
		return fmt.Errorf("enrichment concurrency must be at least 1")
	}
	if c.Enrichment.CitationLimit < 1 {
		return fmt.Errorf("enrichment citation_limit must be at least 1")
	}

	for name, p := range map[string]ProviderConfig{
		"gateway":           c.Gateway,
		"semantic_scholar":  c.SemanticScholar,
		"fulltext.openalex": c.Fulltext.OpenAlex,
		"fulltext.pubmed":   c.Fulltext.PubMed,
		"fulltext.arxiv":    c.Fulltext.ArXiv,
	} {
		if p.Enabled && p.Timeout <= 0 {
			return fmt.Errorf("%s timeout must be positive", name)
		}
	}

	switch c.Cache.Backend {
	case "none", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache redis addr is required when backend is redis")
		}
	default:
		return fmt.Errorf("unsupported cache backend: %q", c.Cache.Backend)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session idle_ttl must be positive")
	}

	return nil
}
