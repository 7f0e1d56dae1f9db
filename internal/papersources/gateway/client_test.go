package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, RateLimit: 1000, MaxRetries: -1}, nil, nil)
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{}, nil, nil)
	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultTimeout, client.config.Timeout)
	assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
	assert.Equal(t, "gateway", client.Name())
}

func TestClient_SearchPapers(t *testing.T) {
	t.Run("normalizes provider records", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/paper_search", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "generative artificial intelligence ethics fairness", q.Get("query"))
			assert.Equal(t, "10", q.Get("limit"))
			assert.Equal(t, "True", q.Get("get_pdfs"))
			assert.Equal(t, searchFields, q.Get("fields"))
			_, _ = w.Write([]byte(`{"papers":[
				{"paperId":"A1","title":"Paper One","authors":[{"name":"Ada"},{}],"citationCount":7,
				 "externalIds":{"CorpusId":123,"DOI":"10.1/x"},"pdfs":["http://x/a.pdf"]},
				{"paperId":"A2","title":"Paper Two","externalIds":{"CorpusId":456}},
				{"title":"","externalIds":{"CorpusId":789}}
			]}`))
		})

		papers, err := client.SearchPapers(context.Background(), "generative artificial intelligence ethics fairness", 0)
		require.NoError(t, err)
		require.Len(t, papers, 3)

		assert.Equal(t, "A1", papers[0].ID)
		assert.Equal(t, []string{"Ada", "Unknown"}, papers[0].Authors)
		assert.Equal(t, 7, papers[0].CitationCount)
		assert.Equal(t, "http://x/a.pdf", papers[0].PDFURL)
		assert.Equal(t, "123", papers[0].CorpusID())
		assert.Equal(t, "10.1/x", papers[0].ExternalIDs["DOI"])

		assert.Equal(t, domain.NoPDFAvailable, papers[1].PDFURL)
		assert.False(t, papers[1].HasPDF())

		assert.Equal(t, "789", papers[2].ID)
		assert.Equal(t, domain.UnknownTitle, papers[2].Title)
	})

	tests := []struct {
		name string
		body string
	}{
		{"papers is an object", `{"papers":{"A1":{}}}`},
		{"papers is missing", `{"results":[]}`},
		{"body is not JSON", `<html>`},
	}
	for _, tt := range tests {
		t.Run("schema violation: "+tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.SearchPapers(context.Background(), "q", 10)
			require.Error(t, err)

			var discErr *domain.DiscoveryError
			require.True(t, errors.As(err, &discErr))
			assert.True(t, discErr.IsSchema())
			assert.ErrorIs(t, err, domain.ErrDiscovery)
		})
	}

	t.Run("unreachable provider is a transport failure", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.SearchPapers(context.Background(), "q", 10)
		var discErr *domain.DiscoveryError
		require.True(t, errors.As(err, &discErr))
		assert.False(t, discErr.IsSchema())
		assert.ErrorIs(t, err, domain.ErrTransport)
	})

	t.Run("empty list is not an error", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"papers":[]}`))
		})
		papers, err := client.SearchPapers(context.Background(), "q", 10)
		require.NoError(t, err)
		assert.Empty(t, papers)
	})
}

func TestClient_LookupCitations(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup_citations", r.URL.Path)
		assert.Equal(t, "P1", r.URL.Query().Get("id"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"citations":[
			{"contexts":["as shown in [3]"],"citingPaper":{"title":"Citing A","authors":[{"name":"Bo"}]}},
			{"citingPaper":{"authors":[{}]}}
		]}`))
	})

	citations, err := client.LookupCitations(context.Background(), "P1", 0)
	require.NoError(t, err)
	require.Len(t, citations, 2)
	assert.Equal(t, domain.Citation{Title: "Citing A", Authors: []string{"Bo"}, Contexts: []string{"as shown in [3]"}}, citations[0])
	assert.Equal(t, NoCitingTitle, citations[1].Title)
	assert.Equal(t, []string{"Unknown"}, citations[1].Authors)
	assert.Empty(t, citations[1].Contexts)
}

func TestClient_LookupBibTeX(t *testing.T) {
	t.Run("returns first entry", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "CorpusId:123", r.URL.Query().Get("id"))
			_, _ = w.Write([]byte(`{"papers":[{"bibtex":"@article{a, title={A}}\n"}]}`))
		})
		bib, err := client.LookupBibTeX(context.Background(), "123")
		require.NoError(t, err)
		assert.Equal(t, "@article{a, title={A}}", bib)
	})

	t.Run("no entry", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"papers":[]}`))
		})
		bib, err := client.LookupBibTeX(context.Background(), "123")
		require.NoError(t, err)
		assert.Empty(t, bib)
	})

	t.Run("provider failure", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := client.LookupBibTeX(context.Background(), "123")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTransport)
	})
}
