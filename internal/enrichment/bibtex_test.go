package enrichment

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/llm/llmtest"
	"github.com/helixir/research-assistant-service/internal/observability"
)

const entry = "@article{vaswani2017, title={Attention Is All You Need}}"

func TestService_BibTeX(t *testing.T) {
	known := map[string]*domain.PaperRecord{
		"A1": record("A1", "Attention Is All You Need", func(p *domain.PaperRecord) {
			p.ExternalIDs = map[string]string{"CorpusId": "13756489", "DOI": "10.5555/3295222"}
			p.Authors = []string{"Ashish Vaswani"}
			p.CitationCount = 90000
		}),
	}

	t.Run("lookup hit uses corpus id and skips generation", func(t *testing.T) {
		lookup := &fakeBibTeX{lookupFn: func(context.Context, string) (string, error) { return entry, nil }}
		gen := &llmtest.Completer{Text: "unused"}
		svc := NewService(Config{}, Dependencies{BibTeX: lookup, Completer: gen})

		result, err := svc.BibTeX(context.Background(), []string{"A1"}, known)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSucceeded, result.Status)
		assert.Equal(t, []string{"13756489"}, lookup.ids)
		assert.Equal(t, entry, result.Blocks[0].Body)
		assert.Equal(t, "lookup", result.Blocks[0].Source)
		assert.Equal(t, 0, gen.Calls())
	})

	t.Run("failed lookup of known paper falls back to generation", func(t *testing.T) {
		metrics := observability.NewMetricsWithRegisterer("test", prometheus.NewRegistry())
		lookup := &fakeBibTeX{lookupFn: func(context.Context, string) (string, error) {
			return "", domain.NewTransportError("gateway", "http://x/bibtex", 500, errors.New("boom"))
		}}
		gen := &llmtest.Completer{Text: "```bibtex\n@article{gen, title={Attention Is All You Need}}\n```"}
		svc := NewService(Config{}, Dependencies{BibTeX: lookup, Completer: gen, Metrics: metrics})

		result, err := svc.BibTeX(context.Background(), []string{"A1"}, known)
		require.NoError(t, err)
		assert.Equal(t, "@article{gen, title={Attention Is All You Need}}", result.Blocks[0].Body)
		assert.Equal(t, "generated", result.Blocks[0].Source)

		require.Equal(t, 1, gen.Calls())
		req := gen.Requests()[0]
		assert.Equal(t, "bibtex", req.Operation)
		assert.Contains(t, req.Prompt, "Attention Is All You Need")
		assert.Contains(t, req.Prompt, "Ashish Vaswani")
		assert.Contains(t, req.Prompt, "DOI: 10.5555/3295222")
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EnrichmentFallbacks.WithLabelValues("bibtex")))
	})

	t.Run("empty lookup of known paper also falls back", func(t *testing.T) {
		lookup := &fakeBibTeX{lookupFn: func(context.Context, string) (string, error) { return "", nil }}
		gen := &llmtest.Completer{Text: "@misc{x}"}
		result, err := NewService(Config{}, Dependencies{BibTeX: lookup, Completer: gen}).BibTeX(context.Background(), []string{"A1"}, known)
		require.NoError(t, err)
		assert.Equal(t, "@misc{x}", result.Blocks[0].Body)
	})

	t.Run("unknown paper gets an error body and no generation", func(t *testing.T) {
		lookup := &fakeBibTeX{lookupFn: func(context.Context, string) (string, error) { return "", errors.New("not found") }}
		gen := &llmtest.Completer{Text: "unused"}
		result, err := NewService(Config{}, Dependencies{BibTeX: lookup, Completer: gen}).BibTeX(context.Background(), []string{"Z9"}, known)
		require.NoError(t, err)

		assert.Equal(t, []string{"Z9"}, lookup.ids, "lookup is still attempted")
		assert.Equal(t, "BibTeX lookup failed for Z9: not found", result.Blocks[0].Body)
		assert.Equal(t, 0, gen.Calls())
		assert.Equal(t, domain.StatusFailed, result.Status)
	})

	t.Run("generation failure keeps both causes", func(t *testing.T) {
		lookup := &fakeBibTeX{lookupFn: func(context.Context, string) (string, error) { return "", errors.New("lookup down") }}
		gen := &llmtest.Completer{CompleteFn: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("quota")
		}}
		result, err := NewService(Config{}, Dependencies{BibTeX: lookup, Completer: gen}).BibTeX(context.Background(), []string{"A1"}, known)
		require.NoError(t, err)
		body := result.Blocks[0].Body
		assert.Contains(t, body, "BibTeX lookup failed for A1")
		assert.Contains(t, body, "lookup down")
		assert.Contains(t, body, "quota")
	})

	t.Run("batch never fails on one paper", func(t *testing.T) {
		lookup := &fakeBibTeX{lookupFn: func(_ context.Context, id string) (string, error) {
			if id == "B2" {
				return "", errors.New("nope")
			}
			return entry, nil
		}}
		result, err := NewService(Config{}, Dependencies{BibTeX: lookup}).BibTeX(context.Background(), []string{"A1", "B2"}, known)
		require.NoError(t, err)
		require.Len(t, result.Blocks, 2)
		assert.Equal(t, domain.StatusPartiallyFailed, result.Status)
	})

	t.Run("empty selection", func(t *testing.T) {
		_, err := NewService(Config{}, Dependencies{}).BibTeX(context.Background(), nil, known)
		assert.ErrorIs(t, err, domain.ErrPrecondition)
	})
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "@a{x}", stripCodeFence("```\n@a{x}\n```"))
	assert.Equal(t, "@a{x}", stripCodeFence("  @a{x}  "))
	assert.Equal(t, "@a{x}", stripCodeFence("```bibtex\n@a{x}```"))
}
