package llm

import (
	"fmt"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 10 << 20

// ProviderOptions are the generation settings shared by every provider.
type ProviderOptions struct {
	// Temperature is the default sampling temperature.
	Temperature float64
	// MaxTokens caps completion length when a request does not.
	MaxTokens int
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries for transient failures. Negative means none.
	MaxRetries int
	// RetryDelay is the base backoff delay.
	RetryDelay time.Duration
}

func (o *ProviderOptions) applyDefaults(maxTokens int, retryDelay time.Duration) {
	if o.MaxTokens <= 0 {
		o.MaxTokens = maxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = retryDelay
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// networkError reports a failure where no response was received. These are
// transient and eligible for retry.
func networkError(provider, msg string, err error) *APIError {
	return &APIError{
		Provider:   provider,
		StatusCode: 0,
		Message:    fmt.Sprintf("%s: %v", msg, err),
		Type:       "network_error",
	}
}
