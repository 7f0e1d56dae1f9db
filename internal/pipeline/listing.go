package pipeline

import (
	"fmt"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// NoPapersFound is the listing for an empty candidate set.
const NoPapersFound = "Sorry, I couldn't find any papers on that topic."

// FormatListing renders candidates as a numbered markdown list with title,
// PDF link, authors and citation count.
func FormatListing(papers []*domain.PaperRecord) string {
	if len(papers) == 0 {
		return NoPapersFound
	}

	var b strings.Builder
	b.WriteString("**Here are some relevant research papers:**\n\n")
	for i, p := range papers {
		pdf := domain.NoPDFAvailable
		if p.HasPDF() {
			pdf = "[PDF Available](" + p.PDFURL + ")"
		}
		authors := p.AuthorList()
		if authors == "" {
			authors = domain.UnknownAuthor
		}
		fmt.Fprintf(&b, "**%d. %s**\n", i+1, p.Title)
		fmt.Fprintf(&b, "PDF: %s\n", pdf)
		fmt.Fprintf(&b, "Authors: %s\n", authors)
		fmt.Fprintf(&b, "Citations: %d\n\n", p.CitationCount)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
