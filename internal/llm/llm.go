// Package llm provides single-turn text completion over several generative
// model providers, plus the keyword distiller and intent detector built on it.
package llm

import "context"

// Provider names accepted by NewCompleter.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// CompletionRequest is a single user-role prompt with optional system text.
type CompletionRequest struct {
	// Operation labels the call in logs and metrics (distill, compare, ...).
	Operation string
	// Model overrides the provider's default model when set.
	Model string
	// System is an optional system instruction.
	System string
	// Prompt is the user message.
	Prompt string
	// Temperature overrides the provider default when non-nil.
	Temperature *float64
	// MaxTokens overrides the provider default when positive.
	MaxTokens int
}

// CompletionResponse is the provider's answer.
type CompletionResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Completer is any provider offering single-turn text completion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Provider returns the provider name.
	Provider() string
	// Model returns the default model identifier.
	Model() string
}

// Temperature returns a pointer for CompletionRequest.Temperature.
func Temperature(t float64) *float64 {
	return &t
}
