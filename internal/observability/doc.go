// Package observability provides logging, metrics, and tracing support for
// the research assistant service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for discovery, enrichment, providers and LLM calls
//   - OpenTelemetry spans around pipeline operations
//   - Context helpers for propagating request and session ids
//
// # Logging
//
// Create a logger from configuration and attach it to a context:
//
//	logger := observability.NewLogger(observability.DefaultLoggingConfig())
//	ctx = logger.WithContext(ctx)
//	ctx = observability.WithSessionID(ctx, sessionID)
//
//	log := observability.LoggerFromContext(ctx)
//	log.Info().Str("phrase", phrase).Msg("discovery accepted")
//
// # Metrics
//
//	metrics := observability.NewMetrics("research_assistant")
//	metrics.RecordDiscovery("succeeded", len(papers), elapsed.Seconds())
//	metrics.RecordEnrichment("bibtex", "partially_failed", elapsed.Seconds())
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - session_id: research session identifier
//   - provider, endpoint: external provider call
//   - paper_id, title: paper being enriched
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
