package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultGeminiMaxTokens  = 2048
	defaultGeminiRetryDelay = time.Second
)

// GeminiConfig holds the parameters needed to create a Gemini provider.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
}

// geminiModels is the part of genai.Models the provider calls.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider implements Completer using the Google Gen AI SDK.
type GeminiProvider struct {
	models      geminiModels
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	maxRetries  int
	retryDelay  time.Duration
}

var _ Completer = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider backed by the Gemini API.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, opts ProviderOptions) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return newGeminiProvider(client.Models, cfg.Model, opts), nil
}

func newGeminiProvider(models geminiModels, model string, opts ProviderOptions) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	opts.applyDefaults(defaultGeminiMaxTokens, defaultGeminiRetryDelay)
	return &GeminiProvider{
		models:      models,
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		timeout:     opts.Timeout,
		maxRetries:  opts.MaxRetries,
		retryDelay:  opts.RetryDelay,
	}
}

// Complete generates content for a single user turn.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	temperature := p.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	return withRetry(ctx, ProviderGemini, p.maxRetries, p.retryDelay, func() (*CompletionResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		resp, err := p.models.GenerateContent(callCtx, model, contents, config)
		if err != nil {
			return nil, convertGeminiError(err)
		}
		text := resp.Text()
		if text == "" {
			return nil, fmt.Errorf("gemini: %w", ErrEmptyCompletion)
		}

		out := &CompletionResponse{Text: text, Model: model}
		if resp.ModelVersion != "" {
			out.Model = resp.ModelVersion
		}
		if resp.UsageMetadata != nil {
			out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
			out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		return out, nil
	})
}

// Provider returns the provider name.
func (p *GeminiProvider) Provider() string {
	return ProviderGemini
}

// Model returns the default model identifier.
func (p *GeminiProvider) Model() string {
	return p.model
}

// convertGeminiError maps SDK errors onto APIError so the shared retry policy
// applies. Errors without a status are treated as network failures.
func convertGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   ProviderGemini,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Type:       apiErr.Status,
		}
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("gemini: %w", err)
	}
	return networkError(ProviderGemini, "request failed", err)
}
