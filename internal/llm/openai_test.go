package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestProvider(t *testing.T, keys []string, maxRetries int, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAIProvider(
		OpenAIConfig{APIKeys: keys, Model: "gpt-4o", BaseURL: server.URL},
		ProviderOptions{Temperature: 0.7, MaxTokens: 512, Timeout: 5 * time.Second, MaxRetries: maxRetries, RetryDelay: time.Millisecond},
	)
}

func writeChatResponse(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chatResponse{
		ID:      "chatcmpl-1",
		Model:   "gpt-4o-2024-08-06",
		Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}, FinishReason: "stop"}},
		Usage:   chatUsage{PromptTokens: 120, CompletionTokens: 8},
	})
}

func TestOpenAIProvider_Complete(t *testing.T) {
	t.Run("sends system and user messages", func(t *testing.T) {
		var got chatRequest
		var auth string
		provider := newOpenAITestProvider(t, []string{"key-a"}, 0, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			auth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeChatResponse(w, "machine learning fairness audit methods")
		})

		resp, err := provider.Complete(context.Background(), CompletionRequest{
			System: "be brief",
			Prompt: "fairness in ML",
		})
		require.NoError(t, err)

		assert.Equal(t, "Bearer key-a", auth)
		assert.Equal(t, "gpt-4o", got.Model)
		assert.Equal(t, 512, got.MaxTokens)
		require.NotNil(t, got.Temperature)
		assert.Equal(t, 0.7, *got.Temperature)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, chatMessage{Role: "system", Content: "be brief"}, got.Messages[0])
		assert.Equal(t, chatMessage{Role: "user", Content: "fairness in ML"}, got.Messages[1])

		assert.Equal(t, "machine learning fairness audit methods", resp.Text)
		assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)
		assert.Equal(t, 120, resp.InputTokens)
		assert.Equal(t, 8, resp.OutputTokens)
	})

	t.Run("request overrides model and temperature", func(t *testing.T) {
		var got chatRequest
		provider := newOpenAITestProvider(t, []string{"k"}, 0, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeChatResponse(w, "search_papers")
		})

		_, err := provider.Complete(context.Background(), CompletionRequest{
			Model:       "gpt-4-turbo",
			Prompt:      "find papers",
			Temperature: Temperature(0),
			MaxTokens:   32,
		})
		require.NoError(t, err)
		assert.Equal(t, "gpt-4-turbo", got.Model)
		assert.Equal(t, 32, got.MaxTokens)
		require.NotNil(t, got.Temperature)
		assert.Equal(t, 0.0, *got.Temperature)
		require.Len(t, got.Messages, 1)
	})

	t.Run("rotates keys round robin", func(t *testing.T) {
		var mu sync.Mutex
		var keys []string
		provider := newOpenAITestProvider(t, []string{"k1", "k2"}, 0, func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			keys = append(keys, r.Header.Get("Authorization"))
			mu.Unlock()
			writeChatResponse(w, "ok")
		})

		for i := 0; i < 3; i++ {
			_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "p"})
			require.NoError(t, err)
		}
		assert.Equal(t, []string{"Bearer k1", "Bearer k2", "Bearer k1"}, keys)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		var calls atomic.Int32
		provider := newOpenAITestProvider(t, []string{"k"}, 2, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
				return
			}
			writeChatResponse(w, "ok")
		})

		resp, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "p"})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Text)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		provider := newOpenAITestProvider(t, []string{"bad"}, 3, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
		})

		_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "p"})
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "Incorrect API key", apiErr.Message)
		assert.Equal(t, "invalid_api_key", apiErr.Code)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("exhausted retries wrap last error", func(t *testing.T) {
		provider := newOpenAITestProvider(t, []string{"k"}, 1, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "p"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exhausted 1 retries")
		assert.True(t, isTransientError(err))
	})

	t.Run("empty choices", func(t *testing.T) {
		provider := newOpenAITestProvider(t, []string{"k"}, 0, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
		})
		_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "p"})
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})

	t.Run("context cancelled during retry wait", func(t *testing.T) {
		provider := newOpenAITestProvider(t, []string{"k"}, 5, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		provider.retryDelay = time.Hour

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := provider.Complete(ctx, CompletionRequest{Prompt: "p"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	provider := NewOpenAIProvider(OpenAIConfig{}, ProviderOptions{MaxRetries: -1})
	assert.Equal(t, defaultOpenAIBaseURL, provider.baseURL)
	assert.Equal(t, defaultOpenAIModel, provider.Model())
	assert.Equal(t, ProviderOpenAI, provider.Provider())
	assert.Equal(t, defaultOpenAIMaxTokens, provider.maxTokens)
	assert.Equal(t, 0, provider.maxRetries)
	assert.Equal(t, defaultOpenAIRetryDelay, provider.retryDelay)
	assert.Equal(t, "", provider.apiKey())
}
