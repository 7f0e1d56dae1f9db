package pipeline

import (
	"context"
	"sync"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/llm"
)

type fakeDistiller struct {
	DistillFn func(ctx context.Context, text string) (string, error)

	mu     sync.Mutex
	inputs []string
}

func (f *fakeDistiller) Distill(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, text)
	f.mu.Unlock()
	if f.DistillFn != nil {
		return f.DistillFn(ctx, text)
	}
	return "distilled phrase", nil
}

type fakeSearcher struct {
	SearchFn func(ctx context.Context, phrase string, limit int) ([]*domain.PaperRecord, error)

	mu      sync.Mutex
	phrases []string
	limits  []int
}

func (f *fakeSearcher) SearchPapers(ctx context.Context, phrase string, limit int) ([]*domain.PaperRecord, error) {
	f.mu.Lock()
	f.phrases = append(f.phrases, phrase)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	return f.SearchFn(ctx, phrase, limit)
}

func (f *fakeSearcher) Name() string { return "fake" }

// fakeEnricher records the ids each operation received and returns a
// succeeded result with one block per id.
type fakeEnricher struct {
	mu    sync.Mutex
	calls map[domain.EnrichmentKind][]string
	err   error
}

func (f *fakeEnricher) record(kind domain.EnrichmentKind, ids []string) (*domain.EnrichmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[domain.EnrichmentKind][]string{}
	}
	f.calls[kind] = append([]string{}, ids...)

	result := domain.NewEnrichmentResult(kind)
	result.Begin()
	if f.err != nil {
		result.Fail(f.err)
		return result, f.err
	}
	for _, id := range ids {
		result.Blocks = append(result.Blocks, domain.EnrichmentBlock{PaperID: id, Title: id, Body: string(kind)})
	}
	result.Complete()
	return result, nil
}

func (f *fakeEnricher) Citations(_ context.Context, ids []string, _ domain.TitleIndex) (*domain.EnrichmentResult, error) {
	return f.record(domain.EnrichmentCitations, ids)
}

func (f *fakeEnricher) BibTeX(_ context.Context, ids []string, _ map[string]*domain.PaperRecord) (*domain.EnrichmentResult, error) {
	return f.record(domain.EnrichmentBibTeX, ids)
}

func (f *fakeEnricher) Compare(_ context.Context, ids []string, _ domain.TitleIndex) (*domain.EnrichmentResult, error) {
	return f.record(domain.EnrichmentCompare, ids)
}

func (f *fakeEnricher) Summarize(_ context.Context, ids []string, _ domain.TitleIndex) (*domain.EnrichmentResult, error) {
	return f.record(domain.EnrichmentSummarize, ids)
}

func (f *fakeEnricher) Review(_ context.Context, ids []string, _ map[string]*domain.PaperRecord) (*domain.EnrichmentResult, error) {
	return f.record(domain.EnrichmentReview, ids)
}

func (f *fakeEnricher) PDFs(_ context.Context, ids []string, _ map[string]*domain.PaperRecord) (*domain.EnrichmentResult, error) {
	return f.record(domain.EnrichmentPDFs, ids)
}

func (f *fakeEnricher) Fulltext(_ context.Context, ids []string, _ domain.TitleIndex) (*domain.EnrichmentResult, error) {
	return f.record(domain.EnrichmentFulltext, ids)
}

func (f *fakeEnricher) idsFor(kind domain.EnrichmentKind) ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.calls[kind]
	return ids, ok
}

type fakeEvents struct {
	mu          sync.Mutex
	discovered  []domain.DiscoveredPayload
	enrichments []domain.EnrichmentCompletedPayload
}

func (f *fakeEvents) EmitDiscovered(_ context.Context, _ string, p domain.DiscoveredPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discovered = append(f.discovered, p)
}

func (f *fakeEvents) EmitEnrichmentCompleted(_ context.Context, _ string, p domain.EnrichmentCompletedPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrichments = append(f.enrichments, p)
}

type fakeIntents struct {
	intents []llm.Intent
}

func (f *fakeIntents) Detect(context.Context, string) ([]llm.Intent, error) {
	return f.intents, nil
}

func twoPapers() []*domain.PaperRecord {
	return []*domain.PaperRecord{
		{ID: "A1", Title: "Paper One", Authors: []string{"Ada Lovelace"}, CitationCount: 7, PDFURL: "http://x/a.pdf"},
		{ID: "A2", Title: "Paper Two", PDFURL: domain.NoPDFAvailable},
	}
}
