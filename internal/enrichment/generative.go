package enrichment

import (
	"context"
	"fmt"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/llm"
)

// Block titles of the batch operations.
const (
	ComparisonTitle = "Paper Comparison"
	SummaryTitle    = "Paper Key Points"
)

// Compare asks the model for one structured comparison of the selected
// titles. At least two ids are required; fewer fails before any call.
func (s *Service) Compare(ctx context.Context, ids []string, titles domain.TitleIndex) (*domain.EnrichmentResult, error) {
	return s.run(ctx, domain.EnrichmentCompare, ids, func(ctx context.Context, result *domain.EnrichmentResult) error {
		if err := requireIndexed("compare", ids, titles, 2); err != nil {
			return err
		}
		if s.completer == nil {
			return domain.NewPreconditionError("compare", "no generative provider configured")
		}
		result.Blocks = []domain.EnrichmentBlock{
			s.batchBlock(ctx, "compare", ComparisonTitle, ComparePrompt(orderedTitles(ids, titles)), "comparison"),
		}
		return nil
	})
}

// Summarize asks the model for structured summaries of the selected titles
// in a single call.
func (s *Service) Summarize(ctx context.Context, ids []string, titles domain.TitleIndex) (*domain.EnrichmentResult, error) {
	return s.run(ctx, domain.EnrichmentSummarize, ids, func(ctx context.Context, result *domain.EnrichmentResult) error {
		if err := requireIndexed("summarize", ids, titles, 1); err != nil {
			return err
		}
		if s.completer == nil {
			return domain.NewPreconditionError("summarize", "no generative provider configured")
		}
		result.Blocks = []domain.EnrichmentBlock{
			s.batchBlock(ctx, "summarize", SummaryTitle, SummarizePrompt(orderedTitles(ids, titles)), "summary"),
		}
		return nil
	})
}

func (s *Service) batchBlock(ctx context.Context, operation, title, prompt, noun string) domain.EnrichmentBlock {
	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{
		Operation: operation,
		Model:     s.config.Model,
		Prompt:    prompt,
	})
	if err != nil {
		return errorBlock("", title, fmt.Sprintf("Error generating %s: %v", noun, err), err)
	}
	return domain.EnrichmentBlock{Title: title, Body: resp.Text, Source: "generated"}
}

func orderedTitles(ids []string, titles domain.TitleIndex) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = titleOf(titles, id)
	}
	return out
}
