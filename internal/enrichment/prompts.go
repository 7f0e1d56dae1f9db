package enrichment

import (
	"fmt"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
)

const compareInstructions = `You are a senior academic researcher. Compare the following research papers given their titles, using your understanding of the field to infer what each paper is about.

For each paper, analyse the methodologies, experiments, results and contributions, then write a structured comparison highlighting similarities and differences.

Instructions:
1. Do not fabricate data or claim to know specific content. Base the answer on general knowledge of the work.
2. Use markdown formatting.
3. Use this structure:

### Comparison of Research Papers
- **Paper 1: _Title_**
  - Methodologies:
  - Key Focus:
  - Expected Findings:
  - Possible Limitations:

... repeat for all papers ...

**Comparative Insights:**
- Overlaps in methods or aims
- Differences in scope, domain or novelty
- How the papers complement or contrast each other`

const summarizeInstructions = `You are an academic research assistant. Write a structured summary for each of the following papers given their titles. Do not invent specific data; describe their general methods, contributions and challenges.

Instructions:
1. Write each summary under the paper title.
2. Use markdown with bullet points.
3. Structure each summary with these sections:
   - **Research Focus**
   - **Methodologies or Approaches**
   - **Expected Results or Applications**
   - **Challenges or Limitations**`

const bibtexInstructions = `You produce BibTeX entries for academic papers from the metadata given.
Return a single BibTeX entry and nothing else. Use @article unless the venue clearly names a conference (then @inproceedings).
Do not invent pages, volumes or DOIs that are not in the metadata.`

// ComparePrompt lists every title for a single comparison call.
func ComparePrompt(titles []string) string {
	return compareInstructions + "\n\n### Papers to Compare:\n" + bulletList(titles) +
		"\n\nNow provide the structured markdown comparison."
}

// SummarizePrompt lists every title for a single summary call.
func SummarizePrompt(titles []string) string {
	return summarizeInstructions + "\n\n### Papers:\n" + bulletList(titles) +
		"\n\nGenerate the markdown-formatted summaries."
}

// BibTeXPrompt describes one paper's metadata for BibTeX synthesis.
func BibTeXPrompt(p *domain.PaperRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	authors := p.AuthorList()
	if authors == "" {
		authors = "Unknown Authors"
	}
	fmt.Fprintf(&b, "Authors: %s\n", authors)
	fmt.Fprintf(&b, "Citation count: %d\n", p.CitationCount)
	if p.Year > 0 {
		fmt.Fprintf(&b, "Year: %d\n", p.Year)
	}
	if p.Venue != "" {
		fmt.Fprintf(&b, "Venue: %s\n", p.Venue)
	}
	if len(p.ExternalIDs) > 0 {
		b.WriteString("External ids:\n")
		for _, k := range sortedKeys(p.ExternalIDs) {
			fmt.Fprintf(&b, "  %s: %s\n", k, p.ExternalIDs[k])
		}
	}
	b.WriteString("\nBibTeX entry:")
	return b.String()
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	return strings.Join(lines, "\n")
}
