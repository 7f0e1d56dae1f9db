// Package llmtest provides a scriptable Completer for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/helixir/research-assistant-service/internal/llm"
)

// Completer records requests and answers with CompleteFn, or with Text when
// CompleteFn is nil.
type Completer struct {
	CompleteFn func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	Text       string

	mu       sync.Mutex
	requests []llm.CompletionRequest
}

var _ llm.Completer = (*Completer)(nil)

// Complete records req and returns the scripted answer.
func (c *Completer) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.CompleteFn != nil {
		return c.CompleteFn(ctx, req)
	}
	return &llm.CompletionResponse{Text: c.Text, Model: "fake-model"}, nil
}

// Provider returns "fake".
func (c *Completer) Provider() string { return "fake" }

// Model returns "fake-model".
func (c *Completer) Model() string { return "fake-model" }

// Requests returns a copy of the recorded requests.
func (c *Completer) Requests() []llm.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.CompletionRequest(nil), c.requests...)
}

// Calls returns the number of Complete calls.
func (c *Completer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}
