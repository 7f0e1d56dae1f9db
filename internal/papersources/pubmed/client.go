package pubmed

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultPMCArticleURL prefixes a PubMed Central id to form a fulltext URL.
	DefaultPMCArticleURL = "https://www.ncbi.nlm.nih.gov/pmc/articles/"

	// DefaultRateLimit is 3 req/s without an API key (10 req/s with one).
	DefaultRateLimit = 3.0

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 20 * time.Second

	sourceName = "pubmed"
)

// Config holds configuration for the PubMed client.
type Config struct {
	// BaseURL is the E-utilities base URL.
	BaseURL string

	// PMCArticleURL is the PubMed Central article URL prefix.
	PMCArticleURL string

	// APIKey is the NCBI API key (optional, increases rate limit).
	APIKey string

	// Tool and Email identify the caller as NCBI asks of E-utilities clients.
	Tool  string
	Email string

	Timeout    time.Duration
	RateLimit  float64
	MaxRetries int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PMCArticleURL == "" {
		c.PMCArticleURL = DefaultPMCArticleURL
	}
	if c.Tool == "" {
		c.Tool = "helixir-research-assistant"
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
		if c.APIKey != "" {
			c.RateLimit = 10
		}
	}
}

// Client looks up abstracts and PubMed Central fulltext links by title.
type Client struct {
	config   Config
	provider *papersources.Client
}

var _ papersources.FulltextSource = (*Client)(nil)

// New creates a new PubMed client. cache and metrics may be nil.
func New(cfg Config, cache papersources.Cache, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()
	return &Client{
		config: cfg,
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
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return sourceName
}

// LookupFulltext finds the best title match and returns its PMC fulltext URL
// when one exists, together with its abstract.
func (c *Client) LookupFulltext(ctx context.Context, title string) (domain.Fulltext, error) {
	search, err := c.esearch(ctx, title)
	if err != nil {
		return domain.Fulltext{}, err
	}
	if len(search.IDList.IDs) == 0 {
		return domain.Fulltext{}, nil
	}

	set, err := c.efetch(ctx, search.IDList.IDs[:1])
	if err != nil {
		return domain.Fulltext{}, err
	}
	if len(set.Articles) == 0 {
		return domain.Fulltext{}, nil
	}

	article := set.Articles[0]
	ft := domain.Fulltext{
		Provider: sourceName,
		Text:     extractAbstract(article.MedlineCitation.Article.Abstract),
	}
	if pmcid := articleID(article.PubmedData.ArticleIdList, "pmc"); pmcid != "" {
		ft.URL = c.config.PMCArticleURL + pmcid + "/"
	}
	if ft.Empty() {
		return domain.Fulltext{}, nil
	}
	return ft, nil
}

func (c *Client) esearch(ctx context.Context, title string) (*ESearchResult, error) {
	q := c.baseParams()
	q.Set("term", title)
	q.Set("field", "title")
	q.Set("retmax", "1")
	q.Set("usehistory", "n")

	var result ESearchResult
	if err := c.provider.Call(ctx, "esearch.fcgi", q, papersources.AcceptXML, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	q := c.baseParams()
	q.Set("id", strings.Join(pmids, ","))
	q.Set("rettype", "abstract")

	var result PubmedArticleSet
	if err := c.provider.Call(ctx, "efetch.fcgi", q, papersources.AcceptXML, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) baseParams() url.Values {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("retmode", "xml")
	q.Set("tool", c.config.Tool)
	if c.config.Email != "" {
		q.Set("email", c.config.Email)
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	return q
}

func articleID(list ArticleIdList, idType string) string {
	for _, id := range list.ArticleIds {
		if strings.EqualFold(id.IdType, idType) {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

// extractAbstract concatenates labeled abstract sections into a single string.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}
	if len(abstract.AbstractTexts) == 1 && abstract.AbstractTexts[0].Label == "" {
		return strings.TrimSpace(abstract.AbstractTexts[0].Value)
	}

	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			text = at.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}
