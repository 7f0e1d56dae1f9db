package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printCandidateIDs lists the ids to pass to --select.
func printCandidateIDs(w io.Writer, papers []*domain.PaperRecord) {
	if len(papers) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Paper ids:")
	for i, p := range papers {
		fmt.Fprintf(w, "  %d. %s\n", i+1, p.ID)
	}
}

// printEnrichment renders a result as markdown sections, one per block.
func printEnrichment(w io.Writer, r *domain.EnrichmentResult) {
	fmt.Fprintf(w, "\n## %s (%s)\n", r.Kind, r.Status)
	if r.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", r.Error)
	}
	for _, b := range r.Blocks {
		fmt.Fprintf(w, "\n### %s\n", b.Title)
		if b.Failed() {
			fmt.Fprintf(w, "Error: %s\n", b.Error)
			continue
		}
		if b.Body != "" {
			fmt.Fprintln(w, strings.TrimRight(b.Body, "\n"))
		}
		for _, c := range b.Citations {
			authors := "Unknown"
			if len(c.Authors) > 0 {
				authors = strings.Join(c.Authors, ", ")
			}
			fmt.Fprintf(w, "- %s (%s)\n", c.Title, authors)
		}
		if b.Fulltext != nil && b.Fulltext.URL != "" {
			fmt.Fprintf(w, "Source: %s %s\n", b.Fulltext.Provider, b.Fulltext.URL)
		}
	}
}

// explainDiscoveryError prefixes a failed search with a hint that depends on
// whether the provider was unreachable or answered in an unexpected shape.
func explainDiscoveryError(err error) error {
	var de *domain.DiscoveryError
	if !errors.As(err, &de) {
		return err
	}
	if de.IsSchema() {
		return fmt.Errorf("the paper search service returned data in an unexpected format: %w", err)
	}
	return fmt.Errorf("the paper search service could not be reached: %w", err)
}
