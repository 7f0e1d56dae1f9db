package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", ProviderOpenAI},
		{"OpenAI", ProviderOpenAI},
		{"anthropic", ProviderAnthropic},
		{"gemini", ProviderGemini},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c, err := NewCompleter(context.Background(), FactoryConfig{
				Provider:  tt.provider,
				OpenAI:    OpenAIConfig{APIKeys: []string{"k"}},
				Anthropic: AnthropicConfig{APIKey: "k"},
				Gemini:    GeminiConfig{APIKey: "k"},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Provider())
			assert.NotEmpty(t, c.Model())
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		c, err := NewCompleter(context.Background(), FactoryConfig{Provider: "llama"})
		assert.Nil(t, c)
		assert.EqualError(t, err, `unsupported LLM provider: "llama"`)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewCompleter(context.Background(), FactoryConfig{})
		assert.Error(t, err)
	})
}
