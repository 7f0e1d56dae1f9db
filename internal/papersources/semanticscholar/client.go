package semanticscholar

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	DefaultRateLimit = 1.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxResults is the largest page the search endpoint accepts.
	MaxResults = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	paperFields    = "paperId,externalIds,title,year,venue,journal,authors,citationCount,openAccessPdf"
	citationFields = "contexts,intents,title,authors"

	sourceName = "semanticscholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key. Authenticated requests have higher rate limits.
	APIKey string

	// Timeout defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// MaxRetries is passed to the HTTP client. Negative disables retries.
	MaxRetries int
}

// Client implements search, citation and BibTeX lookup for Semantic Scholar.
type Client struct {
	provider *papersources.Client
	config   Config
}

var (
	_ papersources.PaperSearcher  = (*Client)(nil)
	_ papersources.CitationLookup = (*Client)(nil)
	_ papersources.BibTeXLookup   = (*Client)(nil)
)

// NewClient creates a new Semantic Scholar client. cache and metrics may be nil.
func NewClient(cfg Config, cache papersources.Cache, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}

	return &Client{
		provider: papersources.NewClient(papersources.ClientConfig{
			Name:    sourceName,
			BaseURL: cfg.BaseURL,
			HTTP: papersources.HTTPClientConfig{
				Timeout:      cfg.Timeout,
				RateLimit:    cfg.RateLimit,
				MaxRetries:   cfg.MaxRetries,
				APIKey:       cfg.APIKey,
				APIKeyHeader: apiKeyHeader,
			},
			Cache:   cache,
			Metrics: metrics,
		}),
		config: cfg,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return sourceName
}

// SearchPapers queries /paper/search.
func (c *Client) SearchPapers(ctx context.Context, phrase string, limit int) ([]*domain.PaperRecord, error) {
	if limit <= 0 {
		limit = papersources.DefaultSearchLimit
	}
	limit = min(limit, MaxResults)

	params := url.Values{
		"query":  {phrase},
		"limit":  {strconv.Itoa(limit)},
		"fields": {paperFields},
	}

	var resp SearchResponse
	if err := c.provider.Call(ctx, "paper/search", params, papersources.AcceptJSON, &resp); err != nil {
		return nil, papersources.DiscoveryFailure(sourceName, err)
	}
	if resp.Data == nil {
		// The API omits data entirely when nothing matched.
		if resp.Total == 0 {
			return []*domain.PaperRecord{}, nil
		}
		return nil, papersources.DiscoveryFailure(sourceName,
			domain.NewSchemaError(sourceName, c.config.BaseURL+"/paper/search", "data", "expected a list", nil))
	}

	papers := make([]*domain.PaperRecord, 0, len(resp.Data))
	for _, r := range resp.Data {
		papers = append(papers, convertPaper(r))
	}
	return papers, nil
}

// LookupCitations queries /paper/{id}/citations.
func (c *Client) LookupCitations(ctx context.Context, paperID string, limit int) ([]domain.Citation, error) {
	if limit <= 0 {
		limit = papersources.DefaultCitationLimit
	}
	params := url.Values{
		"offset": {"0"},
		"limit":  {strconv.Itoa(limit)},
		"fields": {citationFields},
	}

	var resp CitationsResponse
	endpoint := "paper/" + url.PathEscape(paperID) + "/citations"
	if err := c.provider.Call(ctx, endpoint, params, papersources.AcceptJSON, &resp); err != nil {
		return nil, err
	}

	citations := make([]domain.Citation, 0, len(resp.Data))
	for _, r := range resp.Data {
		title := strings.TrimSpace(r.CitingPaper.Title)
		if title == "" {
			title = "No Title"
		}
		citations = append(citations, domain.Citation{
			Title:    title,
			Authors:  authorNames(r.CitingPaper.Authors),
			Contexts: r.Contexts,
		})
	}
	return citations, nil
}

// LookupBibTeX reads the citationStyles field of a paper addressed by corpus id.
func (c *Client) LookupBibTeX(ctx context.Context, corpusID string) (string, error) {
	var resp PaperResult
	endpoint := "paper/" + domain.CorpusIDKey + ":" + url.PathEscape(corpusID)
	if err := c.provider.Call(ctx, endpoint, url.Values{"fields": {"citationStyles"}}, papersources.AcceptJSON, &resp); err != nil {
		return "", err
	}
	if resp.CitationStyle == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.CitationStyle.BibTeX), nil
}

func convertPaper(r PaperResult) *domain.PaperRecord {
	p := &domain.PaperRecord{
		ID:            r.PaperID,
		Title:         r.Title,
		Authors:       authorNames(r.Authors),
		CitationCount: r.CitationCount,
		ExternalIDs:   make(map[string]string, len(r.ExternalIDs)),
		Year:          r.Year,
		Venue:         r.Venue,
	}
	if p.Venue == "" && r.Journal != nil {
		p.Venue = r.Journal.Name
	}
	for k, v := range r.ExternalIDs {
		if s := domain.StringifyExternalID(v); s != "" {
			p.ExternalIDs[k] = s
		}
	}
	if r.OpenAccessPDF != nil {
		p.PDFURL = r.OpenAccessPDF.URL
	}
	p.Normalize()
	return p
}

func authorNames(authors []Author) []string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = domain.UnknownAuthor
		}
		names = append(names, name)
	}
	return names
}
