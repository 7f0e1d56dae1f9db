package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/observability"
)

// errNoBibTeX marks a lookup that succeeded without an entry.
var errNoBibTeX = errors.New("no BibTeX entry found")

// BibTeX looks up each id's entry. When the lookup fails or comes back empty
// and the paper is in known, the entry is synthesized from its metadata.
// Generation is never attempted without a lookup first.
func (s *Service) BibTeX(ctx context.Context, ids []string, known map[string]*domain.PaperRecord) (*domain.EnrichmentResult, error) {
	return s.run(ctx, domain.EnrichmentBibTeX, ids, func(ctx context.Context, result *domain.EnrichmentResult) error {
		if err := requireSelected("bibtex", ids); err != nil {
			return err
		}

		blocks := make([]domain.EnrichmentBlock, len(ids))
		forEach(ctx, s.config.Concurrency, len(ids), func(ctx context.Context, i int) {
			blocks[i] = s.bibtexBlock(ctx, ids[i], known[ids[i]])
		})
		result.Blocks = blocks
		return nil
	})
}

func (s *Service) bibtexBlock(ctx context.Context, id string, paper *domain.PaperRecord) domain.EnrichmentBlock {
	title := id
	if paper != nil {
		title = paper.Title
	}
	heading := "BibTeX for " + title
	logger := observability.WithPaperContext(observability.LoggerFromContext(ctx), id, title)

	entry, lookupErr := s.lookupBibTeX(ctx, id, paper)
	if lookupErr == nil {
		return domain.EnrichmentBlock{PaperID: id, Title: heading, Body: entry, Source: "lookup"}
	}

	if paper == nil || s.completer == nil {
		logger.Info().Err(lookupErr).Msg("bibtex lookup failed and no fallback is possible")
		return errorBlock(id, heading, fmt.Sprintf("BibTeX lookup failed for %s: %v", id, lookupErr), lookupErr)
	}

	logger.Info().Err(lookupErr).Msg("bibtex lookup failed, generating from metadata")
	s.metrics.RecordEnrichmentFallback(string(domain.EnrichmentBibTeX))

	generated, genErr := s.generateBibTeX(ctx, paper)
	if genErr != nil {
		err := fmt.Errorf("%v; generation failed: %w", lookupErr, genErr)
		return errorBlock(id, heading, fmt.Sprintf("BibTeX lookup failed for %s: %v", id, err), err)
	}
	return domain.EnrichmentBlock{PaperID: id, Title: heading, Body: generated, Source: "generated"}
}

// lookupBibTeX queries the BibTeX provider with the paper's corpus id.
func (s *Service) lookupBibTeX(ctx context.Context, id string, paper *domain.PaperRecord) (string, error) {
	if s.bibtex == nil {
		return "", errors.New("no BibTeX provider configured")
	}
	corpusID := id
	if paper != nil {
		corpusID = paper.CorpusID()
	}
	entry, err := s.bibtex.LookupBibTeX(ctx, corpusID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(entry) == "" {
		return "", errNoBibTeX
	}
	return entry, nil
}

func (s *Service) generateBibTeX(ctx context.Context, paper *domain.PaperRecord) (string, error) {
	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{
		Operation:   "bibtex",
		Model:       s.config.Model,
		System:      bibtexInstructions,
		Prompt:      BibTeXPrompt(paper),
		Temperature: llm.Temperature(0),
		MaxTokens:   512,
	})
	if err != nil {
		return "", err
	}
	entry := stripCodeFence(resp.Text)
	if entry == "" {
		return "", llm.ErrEmptyCompletion
	}
	return entry, nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
