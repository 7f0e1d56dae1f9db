package llm

import (
	"context"
	"strings"
)

// Intent is a recognized user request type.
type Intent string

// Supported intents, in the order they are described to the model.
const (
	IntentSearchPapers    Intent = "search_papers"
	IntentRecommendPapers Intent = "recommend_papers"
	IntentLookupCitations Intent = "lookup_citations"
	IntentSummarizePaper  Intent = "summarize_paper"
	IntentFetchAuthors    Intent = "fetch_authors"
	IntentFetchPDF        Intent = "fetch_pdf"
	IntentComparePapers   Intent = "compare_papers"
	IntentNone            Intent = "no_intent"
)

var knownIntents = map[Intent]bool{
	IntentSearchPapers:    true,
	IntentRecommendPapers: true,
	IntentLookupCitations: true,
	IntentSummarizePaper:  true,
	IntentFetchAuthors:    true,
	IntentFetchPDF:        true,
	IntentComparePapers:   true,
}

const intentSystemPrompt = `You classify user queries about research papers into predefined intents.
Identify all valid intents in the query and return them in execution order.

Valid intents:
- search_papers: the user asks to find papers on a topic.
- recommend_papers: the user asks for similar papers.
- lookup_citations: the user asks for citation details of a paper.
- summarize_paper: the user asks for a summary of a paper.
- fetch_authors: the user asks for the authors of a paper.
- fetch_pdf: the user asks for the full-text PDF of a paper.
- compare_papers: the user asks to compare papers.

Rules:
- If the query is casual conversation, return "no_intent".
- Do not add intents the user did not ask for.
- Return only the intent names, comma separated, exactly as listed above.

Example:
User: "Find papers on NLP and summarize the best one."
Response: search_papers, summarize_paper

User: "What do you think of transformers in NLP?"
Response: no_intent`

// IntentDetector classifies messages into ordered intents.
type IntentDetector struct {
	completer Completer
	model     string
}

// NewIntentDetector creates a detector. model overrides the completer's
// default model when non-empty.
func NewIntentDetector(completer Completer, model string) *IntentDetector {
	return &IntentDetector{completer: completer, model: model}
}

// Detect returns the intents found in message, in order and without
// duplicates. Unknown tokens are dropped; when nothing is left the result is
// [IntentNone].
func (d *IntentDetector) Detect(ctx context.Context, message string) ([]Intent, error) {
	if strings.TrimSpace(message) == "" {
		return []Intent{IntentNone}, nil
	}

	resp, err := d.completer.Complete(ctx, CompletionRequest{
		Operation:   "intent",
		Model:       d.model,
		System:      intentSystemPrompt,
		Prompt:      message,
		Temperature: Temperature(0),
		MaxTokens:   64,
	})
	if err != nil {
		return nil, err
	}
	return ParseIntents(resp.Text), nil
}

// ParseIntents extracts known intent names from a model answer.
func ParseIntents(s string) []Intent {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ',' || r == '\n' || r == ';' || r == ' ' || r == '"' || r == '\'' || r == '.'
	})

	var intents []Intent
	seen := make(map[Intent]bool)
	for _, f := range fields {
		intent := Intent(strings.TrimSpace(f))
		if knownIntents[intent] && !seen[intent] {
			seen[intent] = true
			intents = append(intents, intent)
		}
	}
	if len(intents) == 0 {
		return []Intent{IntentNone}
	}
	return intents
}
