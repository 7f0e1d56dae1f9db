package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FactoryConfig holds the parameters needed to create a Completer.
// This is defined in the llm package to avoid importing the config package,
// keeping the llm package free of infrastructure dependencies.
type FactoryConfig struct {
	// Provider is the LLM provider name ("openai", "anthropic" or "gemini").
	Provider    string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	OpenAI      OpenAIConfig
	Anthropic   AnthropicConfig
	Gemini      GeminiConfig
}

func (c FactoryConfig) options() ProviderOptions {
	return ProviderOptions{
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
		MaxRetries:  c.MaxRetries,
		RetryDelay:  c.RetryDelay,
	}
}

// NewCompleter creates a Completer based on the configuration. Returns an
// error for unsupported or empty provider values.
func NewCompleter(ctx context.Context, cfg FactoryConfig) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI, cfg.options()), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.Anthropic, cfg.options()), nil
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, cfg.Gemini, cfg.options())
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
