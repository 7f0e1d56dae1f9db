package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the research assistant service.
// Metrics are organized by subsystem: discovery, enrichment, providers,
// fulltext, LLM, sessions and cache. Record methods are safe to call on a nil
// *Metrics so components can run without instrumentation in tests.
type Metrics struct {
	// DiscoveriesTotal counts discovery runs, labeled by outcome
	// (succeeded, precondition, distill_failed, discovery_failed, stale).
	DiscoveriesTotal *prometheus.CounterVec

	// DiscoveryDuration observes end-to-end discovery duration in seconds.
	DiscoveryDuration prometheus.Histogram

	// CandidatesPerDiscovery observes the number of candidates per accepted discovery.
	CandidatesPerDiscovery prometheus.Histogram

	// EnrichmentsTotal counts enrichment runs, labeled by kind and terminal status.
	EnrichmentsTotal *prometheus.CounterVec

	// EnrichmentDuration observes enrichment duration in seconds, labeled by kind.
	EnrichmentDuration *prometheus.HistogramVec

	// EnrichmentFallbacks counts generative fallbacks taken, labeled by kind.
	EnrichmentFallbacks *prometheus.CounterVec

	// ProviderRequestsTotal counts external provider calls, labeled by provider and endpoint.
	ProviderRequestsTotal *prometheus.CounterVec

	// ProviderRequestsFailed counts failed provider calls, labeled by provider, endpoint and error type.
	ProviderRequestsFailed *prometheus.CounterVec

	// ProviderRequestDuration observes provider call duration in seconds.
	ProviderRequestDuration *prometheus.HistogramVec

	// ProviderRateLimited counts 429 responses, labeled by provider.
	ProviderRateLimited *prometheus.CounterVec

	// FulltextResolutions counts resolver outcomes, labeled by winning provider or "unavailable".
	FulltextResolutions *prometheus.CounterVec

	// LLMRequestsTotal counts completion calls, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed completion calls, labeled by operation, model and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes completion latency in seconds.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens consumed, labeled by operation, model and token type.
	LLMTokensUsed *prometheus.CounterVec

	// ActiveSessions tracks live sessions.
	ActiveSessions prometheus.Gauge

	// CacheLookups counts provider cache lookups, labeled by result (hit, miss).
	CacheLookups *prometheus.CounterVec

	// EventsPublished counts published events, labeled by event type and outcome.
	EventsPublished *prometheus.CounterVec

	// HTTPRequestsTotal counts API requests, labeled by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered with the default registry.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a Metrics instance registered with reg.
func NewMetricsWithRegisterer(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Discovery
		DiscoveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discoveries_total",
			Help:      "Total number of discovery runs by outcome",
		}, []string{"outcome"}),
		DiscoveryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_duration_seconds",
			Help:      "Duration of discovery runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		CandidatesPerDiscovery: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_per_discovery",
			Help:      "Number of candidates returned per discovery",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 50, 100},
		}),

		// Enrichment
		EnrichmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Total number of enrichment runs by kind and status",
		}, []string{"kind", "status"}),
		EnrichmentDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Duration of enrichment runs in seconds by kind",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		EnrichmentFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_fallbacks_total",
			Help:      "Total number of generative fallbacks taken by kind",
		}, []string{"kind"}),

		// Providers
		ProviderRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of external provider requests",
		}, []string{"provider", "endpoint"}),
		ProviderRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_failed_total",
			Help:      "Total number of failed external provider requests",
		}, []string{"provider", "endpoint", "error_type"}),
		ProviderRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of external provider requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider", "endpoint"}),
		ProviderRateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_rate_limited_total",
			Help:      "Total number of rate limited responses by provider",
		}, []string{"provider"}),

		// Fulltext
		FulltextResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulltext_resolutions_total",
			Help:      "Total number of fulltext resolutions by resolving provider",
		}, []string{"provider"}),

		// LLM
		LLMRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM API requests",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM API requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"operation", "model"}),
		LLMTokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used in LLM requests",
		}, []string{"operation", "model", "type"}),

		// Sessions
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live research sessions",
		}),

		// Cache
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of provider cache lookups by result",
		}, []string{"result"}),

		// Events
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of published events by type and outcome",
		}, []string{"event_type", "outcome"}),

		// HTTP
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordDiscovery records a discovery outcome.
func (m *Metrics) RecordDiscovery(outcome string, candidates int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.DiscoveriesTotal.WithLabelValues(outcome).Inc()
	m.DiscoveryDuration.Observe(durationSeconds)
	if outcome == "succeeded" {
		m.CandidatesPerDiscovery.Observe(float64(candidates))
	}
}

// RecordEnrichment records the terminal status of an enrichment run.
func (m *Metrics) RecordEnrichment(kind, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.EnrichmentsTotal.WithLabelValues(kind, status).Inc()
	m.EnrichmentDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordEnrichmentFallback records that a generative fallback was used.
func (m *Metrics) RecordEnrichmentFallback(kind string) {
	if m == nil {
		return
	}
	m.EnrichmentFallbacks.WithLabelValues(kind).Inc()
}

// RecordProviderRequest records a successful provider request.
func (m *Metrics) RecordProviderRequest(provider, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, endpoint).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider, endpoint).Observe(durationSeconds)
}

// RecordProviderRequestFailed records a failed provider request.
func (m *Metrics) RecordProviderRequestFailed(provider, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, endpoint).Inc()
	m.ProviderRequestsFailed.WithLabelValues(provider, endpoint, errorType).Inc()
}

// RecordProviderRateLimited records a rate limited provider response.
func (m *Metrics) RecordProviderRateLimited(provider string) {
	if m == nil {
		return
	}
	m.ProviderRateLimited.WithLabelValues(provider).Inc()
}

// RecordFulltextResolution records which provider resolved a title.
func (m *Metrics) RecordFulltextResolution(provider string) {
	if m == nil {
		return
	}
	m.FulltextResolutions.WithLabelValues(provider).Inc()
}

// RecordLLMRequest records a successful LLM request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
	m.LLMTokensUsed.WithLabelValues(operation, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(operation, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}

// SetActiveSessions sets the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordEventPublished records an event publish attempt.
func (m *Metrics) RecordEventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(method, route string, code int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
