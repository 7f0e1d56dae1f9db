package openalex

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 10.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// candidates is how many works the title search considers.
	candidates = 3

	sourceName = "openalex"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL defaults to https://api.openalex.org.
	BaseURL string

	// Email is the contact email for the polite pool.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// APIKey is an optional premium API key.
	APIKey string

	Timeout    time.Duration
	RateLimit  float64
	MaxRetries int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
}

// Client looks up open-access fulltext links in OpenAlex by title.
type Client struct {
	config   Config
	provider *papersources.Client
}

var _ papersources.FulltextSource = (*Client)(nil)

// New creates a new OpenAlex client. cache and metrics may be nil.
func New(cfg Config, cache papersources.Cache, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()

	userAgent := "Helixir-ResearchAssistant/1.0"
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	return &Client{
		config: cfg,
		provider: papersources.NewClient(papersources.ClientConfig{
			Name:    sourceName,
			BaseURL: cfg.BaseURL,
			HTTP: papersources.HTTPClientConfig{
				Timeout:    cfg.Timeout,
				RateLimit:  cfg.RateLimit,
				MaxRetries: cfg.MaxRetries,
				UserAgent:  userAgent,
			},
			Cache:   cache,
			Metrics: metrics,
		}),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return sourceName
}

// LookupFulltext searches works by title and returns the first match that
// carries an open-access or PDF URL. The reconstructed abstract is attached
// as text when present.
func (c *Client) LookupFulltext(ctx context.Context, title string) (domain.Fulltext, error) {
	params := url.Values{
		"search":   {title},
		"per-page": {"3"},
	}
	if c.config.Email != "" {
		params.Set("mailto", c.config.Email)
	}
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}

	var resp SearchResponse
	if err := c.provider.Call(ctx, "works", params, papersources.AcceptJSON, &resp); err != nil {
		return domain.Fulltext{}, err
	}

	for i, work := range resp.Results {
		if i >= candidates {
			break
		}
		link := fulltextURL(&work)
		if link == "" {
			continue
		}
		return domain.Fulltext{
			Provider: sourceName,
			URL:      link,
			Text:     reconstructAbstract(work.AbstractInvertedIndex),
		}, nil
	}
	return domain.Fulltext{}, nil
}

// fulltextURL prefers a direct PDF over a landing page.
func fulltextURL(w *Work) string {
	for _, loc := range []*Location{w.BestOALocation, w.PrimaryLocation} {
		if loc != nil && strings.TrimSpace(loc.PDFURL) != "" {
			return strings.TrimSpace(loc.PDFURL)
		}
	}
	if w.OpenAccess != nil && w.OpenAccess.IsOA {
		return strings.TrimSpace(w.OpenAccess.OAURL)
	}
	return ""
}

// reconstructAbstract rebuilds abstract text from OpenAlex's inverted index.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	const maxAbstractWords = 100_000
	total := 0
	for _, positions := range invertedIndex {
		total += len(positions)
	}
	if total > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, total)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}
