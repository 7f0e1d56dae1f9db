package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGeminiModels struct {
	generateFn func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	calls      int
}

func (f *fakeGeminiModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	return f.generateFn(ctx, model, contents, config)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     42,
			CandidatesTokenCount: 7,
		},
	}
}

func TestGeminiProvider_Complete(t *testing.T) {
	opts := ProviderOptions{Temperature: 0.5, MaxTokens: 256, Timeout: time.Second, MaxRetries: 2, RetryDelay: time.Millisecond}

	t.Run("maps request onto generate config", func(t *testing.T) {
		fake := &fakeGeminiModels{generateFn: func(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			assert.Equal(t, "gemini-2.0-flash", model)
			require.Len(t, contents, 1)
			assert.Equal(t, "summarize", contents[0].Parts[0].Text)
			require.NotNil(t, config.Temperature)
			assert.InDelta(t, 0.0, *config.Temperature, 1e-6)
			assert.Equal(t, int32(256), config.MaxOutputTokens)
			require.NotNil(t, config.SystemInstruction)
			assert.Equal(t, "system text", config.SystemInstruction.Parts[0].Text)
			return textResponse("summary"), nil
		}}
		provider := newGeminiProvider(fake, "", opts)

		resp, err := provider.Complete(context.Background(), CompletionRequest{
			System:      "system text",
			Prompt:      "summarize",
			Temperature: Temperature(0),
		})
		require.NoError(t, err)
		assert.Equal(t, "summary", resp.Text)
		assert.Equal(t, "gemini-2.0-flash", resp.Model)
		assert.Equal(t, 42, resp.InputTokens)
		assert.Equal(t, 7, resp.OutputTokens)
	})

	t.Run("retries unavailable", func(t *testing.T) {
		fake := &fakeGeminiModels{}
		fake.generateFn = func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			if fake.calls == 1 {
				return nil, genai.APIError{Code: 503, Message: "model overloaded", Status: "UNAVAILABLE"}
			}
			return textResponse("ok"), nil
		}
		provider := newGeminiProvider(fake, "gemini-1.5-pro", opts)

		resp, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "p"})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Text)
		assert.Equal(t, 2, fake.calls)
	})

	t.Run("permission denied is not retried", func(t *testing.T) {
		fake := &fakeGeminiModels{generateFn: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, genai.APIError{Code: 403, Message: "API key invalid", Status: "PERMISSION_DENIED"}
		}}
		provider := newGeminiProvider(fake, "", opts)

		_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "p"})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 403, apiErr.StatusCode)
		assert.Equal(t, "PERMISSION_DENIED", apiErr.Type)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("empty text", func(t *testing.T) {
		fake := &fakeGeminiModels{generateFn: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		}}
		provider := newGeminiProvider(fake, "", opts)
		_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "p"})
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})
}

func TestConvertGeminiError(t *testing.T) {
	var apiErr *APIError
	require.ErrorAs(t, convertGeminiError(errors.New("dial tcp: refused")), &apiErr)
	assert.True(t, apiErr.IsTransient())

	assert.ErrorIs(t, convertGeminiError(context.Canceled), context.Canceled)
}
