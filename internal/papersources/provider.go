package papersources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

// maxResponseBytes caps provider response bodies.
const maxResponseBytes = 10 << 20

// Accept selects how a provider response body is parsed.
type Accept string

const (
	AcceptJSON Accept = "application/json"
	AcceptXML  Accept = "application/xml"
)

// sensitiveParams are redacted from URLs placed in errors and logs.
var sensitiveParams = []string{"api_key", "apiKey", "key", "mailto", "email"}

// ClientConfig configures a provider Client.
type ClientConfig struct {
	// Name identifies the provider in errors, logs and metrics.
	Name string
	// BaseURL is prefixed to every endpoint.
	BaseURL string
	// HTTP configures timeout, rate limiting and retries.
	HTTP HTTPClientConfig
	// Cache optionally stores successful response bodies.
	Cache Cache
	// Metrics optionally records request counts and latency.
	Metrics *observability.Metrics
}

// Client is the single chokepoint for calls to an external HTTP provider.
// Every failure is returned as a *domain.ProviderError whose cause is either a
// *domain.TransportError (network, timeout, status) or a *domain.SchemaError
// (malformed body). It is safe for concurrent use.
type Client struct {
	name    string
	baseURL string
	http    *HTTPClient
	cache   Cache
	metrics *observability.Metrics
}

// NewClient creates a provider client with its own rate-limited HTTP client.
func NewClient(cfg ClientConfig) *Client {
	m := cfg.Metrics
	name := cfg.Name
	if cfg.HTTP.OnRateLimited == nil && m != nil {
		cfg.HTTP.OnRateLimited = func() { m.RecordProviderRateLimited(name) }
	}
	return NewClientWithHTTPClient(cfg, NewHTTPClient(cfg.HTTP))
}

// NewClientWithHTTPClient creates a provider client around an existing HTTP client.
func NewClientWithHTTPClient(cfg ClientConfig, httpClient *HTTPClient) *Client {
	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// Call issues GET {base}/{endpoint}?{params} and decodes the body into out
// according to accept.
func (c *Client) Call(ctx context.Context, endpoint string, params url.Values, accept Accept, out any) error {
	fullURL := c.buildURL(endpoint, params)
	safeURL := redactURL(fullURL)
	logger := observability.WithProviderContext(observability.LoggerFromContext(ctx), c.name, endpoint)

	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, c.cacheKey(fullURL))
		if err != nil {
			logger.Warn().Err(err).Msg("provider cache lookup failed")
		}
		c.metrics.RecordCacheLookup(ok)
		if ok {
			if err := decode(body, accept, out); err == nil {
				logger.Debug().Str("url", safeURL).Msg("provider response served from cache")
				return nil
			}
		}
	}

	start := time.Now()
	body, err := c.fetch(ctx, fullURL, accept)
	if err != nil {
		var provErr *domain.ProviderError
		if !errors.As(err, &provErr) {
			provErr = domain.NewTransportError(c.name, safeURL, 0, err)
		}
		c.metrics.RecordProviderRequestFailed(c.name, endpoint, errorType(err))
		logger.Debug().Err(provErr).Dur("elapsed", time.Since(start)).Msg("provider request failed")
		return provErr
	}

	if err := decode(body, accept, out); err != nil {
		c.metrics.RecordProviderRequestFailed(c.name, endpoint, "schema")
		return domain.NewSchemaError(c.name, safeURL, "body", "malformed "+formatName(accept), err)
	}

	c.metrics.RecordProviderRequest(c.name, endpoint, time.Since(start).Seconds())
	logger.Debug().Dur("elapsed", time.Since(start)).Int("bytes", len(body)).Msg("provider request succeeded")

	if c.cache != nil {
		if err := c.cache.Set(ctx, c.cacheKey(fullURL), body); err != nil {
			logger.Warn().Err(err).Msg("provider cache store failed")
		}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, fullURL string, accept Accept) ([]byte, error) {
	safeURL := redactURL(fullURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, domain.NewTransportError(c.name, safeURL, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", string(accept))

	resp, err := c.http.Do(req)
	if err != nil {
		status := 0
		var exhausted *RetriesExhaustedError
		if errors.As(err, &exhausted) {
			status = exhausted.StatusCode
		}
		return nil, domain.NewTransportError(c.name, safeURL, status, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewTransportError(c.name, safeURL, resp.StatusCode,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewTransportError(c.name, safeURL, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

func (c *Client) buildURL(endpoint string, params url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) cacheKey(fullURL string) string {
	return c.name + "|" + fullURL
}

func decode(body []byte, accept Accept, out any) error {
	if out == nil {
		return nil
	}
	switch accept {
	case AcceptXML:
		return xml.Unmarshal(body, out)
	default:
		return json.Unmarshal(body, out)
	}
}

func formatName(accept Accept) string {
	if accept == AcceptXML {
		return "XML"
	}
	return "JSON"
}

// errorType labels a failure for metrics.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrSchema):
		return "schema"
	default:
		return "transport"
	}
}

// redactURL blanks credentials carried as query parameters.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for _, p := range sensitiveParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
