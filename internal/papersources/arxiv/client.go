package arxiv

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit follows arXiv's guidance of one request every few seconds.
	DefaultRateLimit = 0.34

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	sourceName = "arxiv"
)

// arxivIDRegex extracts the arXiv ID from the full URL.
// Matches patterns like "http://arxiv.org/abs/2301.12345v1" or "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// titleQuoteReplacer strips characters that break the arXiv query syntax.
var titleQuoteReplacer = strings.NewReplacer(`"`, " ", "(", " ", ")", " ", ":", " ")

// Config holds configuration for the arXiv client.
type Config struct {
	BaseURL    string
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

// Client looks up preprint PDFs on arXiv by title.
type Client struct {
	config   Config
	provider *papersources.Client
}

var _ papersources.FulltextSource = (*Client)(nil)

// New creates a new arXiv client. cache and metrics may be nil.
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
				BurstSize:  1,
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

// LookupFulltext searches titles and returns the first entry's PDF link and summary.
func (c *Client) LookupFulltext(ctx context.Context, title string) (domain.Fulltext, error) {
	cleaned := strings.Join(strings.Fields(titleQuoteReplacer.Replace(title)), " ")
	if cleaned == "" {
		return domain.Fulltext{}, nil
	}
	params := url.Values{
		"search_query": {`ti:"` + cleaned + `"`},
		"start":        {"0"},
		"max_results":  {"1"},
	}

	var feed Feed
	if err := c.provider.Call(ctx, "query", params, papersources.AcceptXML, &feed); err != nil {
		return domain.Fulltext{}, err
	}
	if len(feed.Entries) == 0 {
		return domain.Fulltext{}, nil
	}

	entry := feed.Entries[0]
	ft := domain.Fulltext{
		Provider: sourceName,
		URL:      pdfURL(entry),
		Text:     strings.Join(strings.Fields(entry.Summary), " "),
	}
	if ft.Empty() {
		return domain.Fulltext{}, nil
	}
	return ft, nil
}

// pdfURL returns the entry's PDF link, deriving it from the abstract id when
// the feed omits one.
func pdfURL(e Entry) string {
	for _, link := range e.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			return link.Href
		}
	}
	if m := arxivIDRegex.FindStringSubmatch(strings.TrimSpace(e.ID)); len(m) == 2 {
		return "https://arxiv.org/pdf/" + m[1]
	}
	return ""
}
