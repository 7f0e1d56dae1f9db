package llm

import (
	"context"
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

// Instrumented wraps a Completer with logging, metrics and error
// classification. Every failure is returned as a *domain.GenerativeError.
type Instrumented struct {
	next    Completer
	metrics *observability.Metrics
}

var _ Completer = (*Instrumented)(nil)

// NewInstrumented wraps next. metrics may be nil.
func NewInstrumented(next Completer, metrics *observability.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: metrics}
}

// Complete delegates to the wrapped provider.
func (c *Instrumented) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.next.Model()
	}
	operation := req.Operation
	if operation == "" {
		operation = "complete"
	}
	logger := observability.LoggerFromContext(ctx).With().
		Str("llm_provider", c.next.Provider()).
		Str("model", model).
		Str("operation", operation).
		Logger()

	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordLLMRequestFailed(operation, model, errorType(err))
		logger.Warn().Err(err).Dur("duration", duration).Msg("completion failed")
		return nil, &domain.GenerativeError{Provider: c.next.Provider(), Cause: err}
	}

	c.metrics.RecordLLMRequest(operation, model, duration.Seconds(), resp.InputTokens, resp.OutputTokens)
	logger.Debug().
		Dur("duration", duration).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Msg("completion succeeded")
	return resp, nil
}

// Provider returns the wrapped provider name.
func (c *Instrumented) Provider() string {
	return c.next.Provider()
}

// Model returns the wrapped provider's default model.
func (c *Instrumented) Model() string {
	return c.next.Model()
}
