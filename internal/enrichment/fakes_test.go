package enrichment

import (
	"context"
	"sync"

	"github.com/helixir/research-assistant-service/internal/domain"
)

type fakeCitations struct {
	mu       sync.Mutex
	lookupFn func(ctx context.Context, paperID string, limit int) ([]domain.Citation, error)
	ids      []string
}

func (f *fakeCitations) LookupCitations(ctx context.Context, paperID string, limit int) ([]domain.Citation, error) {
	f.mu.Lock()
	f.ids = append(f.ids, paperID)
	f.mu.Unlock()
	return f.lookupFn(ctx, paperID, limit)
}

type fakeBibTeX struct {
	mu       sync.Mutex
	lookupFn func(ctx context.Context, corpusID string) (string, error)
	ids      []string
}

func (f *fakeBibTeX) LookupBibTeX(ctx context.Context, corpusID string) (string, error) {
	f.mu.Lock()
	f.ids = append(f.ids, corpusID)
	f.mu.Unlock()
	return f.lookupFn(ctx, corpusID)
}

type fakeResolver struct {
	resolveFn func(ctx context.Context, title string) (domain.Fulltext, bool)
}

func (f *fakeResolver) Resolve(ctx context.Context, title string) (domain.Fulltext, bool) {
	return f.resolveFn(ctx, title)
}

func record(id, title string, mutate ...func(*domain.PaperRecord)) *domain.PaperRecord {
	p := &domain.PaperRecord{ID: id, Title: title}
	for _, m := range mutate {
		m(p)
	}
	p.Normalize()
	return p
}
