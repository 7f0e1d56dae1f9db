package gateway

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
	// DefaultBaseURL is the public gateway.
	DefaultBaseURL = "http://recommendpapers.xyz/api"

	// DefaultRateLimit is the default request rate per second.
	DefaultRateLimit = 5.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	searchFields   = "title,authors,citationCount,externalIds,paperId"
	citationFields = "contexts,intents,citationCount,referenceCount,title,authors"

	// NoCitingTitle replaces a citing paper without a title.
	NoCitingTitle = "No Title"

	sourceName = "gateway"
)

// Config contains configuration options for the gateway client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	MaxRetries int
}

// Client implements paper search, citation lookup and BibTeX lookup against
// the gateway.
type Client struct {
	provider *papersources.Client
	config   Config
}

var (
	_ papersources.PaperSearcher  = (*Client)(nil)
	_ papersources.CitationLookup = (*Client)(nil)
	_ papersources.BibTeXLookup   = (*Client)(nil)
)

// NewClient creates a gateway client. cache and metrics may be nil.
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
				Timeout:    cfg.Timeout,
				RateLimit:  cfg.RateLimit,
				MaxRetries: cfg.MaxRetries,
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

// SearchPapers queries paper_search with PDF links requested.
func (c *Client) SearchPapers(ctx context.Context, phrase string, limit int) ([]*domain.PaperRecord, error) {
	if limit <= 0 {
		limit = papersources.DefaultSearchLimit
	}
	params := url.Values{
		"query":    {phrase},
		"limit":    {strconv.Itoa(limit)},
		"fields":   {searchFields},
		"get_pdfs": {"True"},
	}

	var resp searchResponse
	if err := c.provider.Call(ctx, "paper_search", params, papersources.AcceptJSON, &resp); err != nil {
		return nil, papersources.DiscoveryFailure(sourceName, err)
	}
	if resp.Papers == nil {
		return nil, papersources.DiscoveryFailure(sourceName,
			domain.NewSchemaError(sourceName, c.config.BaseURL+"/paper_search", "papers", "expected a list", nil))
	}

	papers := make([]*domain.PaperRecord, 0, len(resp.Papers))
	for _, r := range resp.Papers {
		papers = append(papers, convertPaper(r))
	}
	return papers, nil
}

// LookupCitations returns up to limit works citing paperID.
func (c *Client) LookupCitations(ctx context.Context, paperID string, limit int) ([]domain.Citation, error) {
	if limit <= 0 {
		limit = papersources.DefaultCitationLimit
	}
	params := url.Values{
		"id":     {paperID},
		"offset": {"0"},
		"limit":  {strconv.Itoa(limit)},
		"fields": {citationFields},
	}

	var resp citationsResponse
	if err := c.provider.Call(ctx, "lookup_citations", params, papersources.AcceptJSON, &resp); err != nil {
		return nil, err
	}

	citations := make([]domain.Citation, 0, len(resp.Citations))
	for _, r := range resp.Citations {
		citations = append(citations, convertCitation(r))
	}
	return citations, nil
}

// LookupBibTeX returns the BibTeX entry for corpusID, or "" when the gateway
// has none.
func (c *Client) LookupBibTeX(ctx context.Context, corpusID string) (string, error) {
	params := url.Values{"id": {domain.CorpusIDKey + ":" + corpusID}}

	var resp bibtexResponse
	if err := c.provider.Call(ctx, "bibtex", params, papersources.AcceptJSON, &resp); err != nil {
		return "", err
	}
	if len(resp.Papers) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Papers[0].BibTeX), nil
}

func convertPaper(r paperResult) *domain.PaperRecord {
	p := &domain.PaperRecord{
		ID:            r.PaperID,
		Title:         r.Title,
		Authors:       authorNames(r.Authors),
		CitationCount: r.CitationCount,
		ExternalIDs:   make(map[string]string, len(r.ExternalIDs)),
		Year:          r.Year,
		Venue:         r.Venue,
	}
	for k, v := range r.ExternalIDs {
		if s := domain.StringifyExternalID(v); s != "" {
			p.ExternalIDs[k] = s
		}
	}
	if len(r.PDFs) > 0 {
		p.PDFURL = r.PDFs[0]
	}
	p.Normalize()
	return p
}

func convertCitation(r citationResult) domain.Citation {
	title := strings.TrimSpace(r.CitingPaper.Title)
	if title == "" {
		title = NoCitingTitle
	}
	return domain.Citation{
		Title:    title,
		Authors:  authorNames(r.CitingPaper.Authors),
		Contexts: r.Contexts,
	}
}

func authorNames(authors []author) []string {
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
