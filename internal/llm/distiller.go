package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
)

const distillSystemPrompt = `You turn research questions into search phrases for an academic paper search engine.

Rules:
- Return 5 to 6 descriptive words that capture the core research topic.
- Expand abbreviations into their full form (NLP becomes natural language processing, ML becomes machine learning).
- Honor negative constraints: if the user excludes a topic, leave it out of the phrase.
- Return exactly one line with no quotes, no explanation and no commentary.`

// distillMaxTokens bounds the phrase; a few words never need more.
const distillMaxTokens = 64

// KeywordDistiller condenses free-form user input into a compact search phrase.
type KeywordDistiller struct {
	completer Completer
}

// NewKeywordDistiller creates a distiller backed by completer.
func NewKeywordDistiller(completer Completer) *KeywordDistiller {
	return &KeywordDistiller{completer: completer}
}

// Distill returns the search phrase for text. Empty input fails with a
// PreconditionError before any call; every other failure is a DistillError.
func (d *KeywordDistiller) Distill(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.NewPreconditionError("distill", "query text is empty")
	}

	resp, err := d.completer.Complete(ctx, CompletionRequest{
		Operation: "distill",
		System:    distillSystemPrompt,
		Prompt:    "Text:\n" + text + "\n\nSearch phrase:",
		MaxTokens: distillMaxTokens,
	})
	if err != nil {
		return "", &domain.DistillError{Cause: err}
	}

	phrase := NormalizePhrase(resp.Text)
	if phrase == "" {
		return "", &domain.DistillError{Cause: errors.New("model returned an empty phrase")}
	}
	return phrase, nil
}

// NormalizePhrase keeps the first non-empty line of a model answer and strips
// surrounding quotes and trailing punctuation.
func NormalizePhrase(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*# ")
		line = strings.Trim(line, "\"'`“”‘’ ")
		line = strings.TrimRight(line, ".,;:!? ")
		line = strings.Trim(line, "\"'`“”‘’ ")
		if line != "" {
			return line
		}
	}
	return ""
}
