package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/export"
)

var searchFlags struct {
	document  string
	selectIDs []string
	selectAll bool
	enrich    []string
	exportTo  string
	asJSON    bool
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Discover papers for a query and optionally enrich a selection",
	Example: `  research-cli search "graph neural networks for drug discovery"
  research-cli search "summarize related work" --doc draft.pdf --all --enrich citations,bibtex
  research-cli search "protein folding" --select 649def34f8be52c8b66281af98ae884c09aef38b --enrich summarize`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchFlags.document, "doc", "", "PDF or text document appended to the query")
	f.StringSliceVar(&searchFlags.selectIDs, "select", nil, "paper ids to select after discovery")
	f.BoolVar(&searchFlags.selectAll, "all", false, "select every discovered paper")
	f.StringSliceVar(&searchFlags.enrich, "enrich", nil, "enrichment kinds to run on the selection (citations, bibtex, compare, summarize, review, pdfs, fulltext)")
	f.StringVar(&searchFlags.exportTo, "export", "", "write the selection (or all candidates) as CSL-YAML to this file")
	f.BoolVar(&searchFlags.asJSON, "json", false, "print results as JSON")

	searchCmd.MarkFlagsMutuallyExclusive("select", "all")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var query string
	if len(args) > 0 {
		query = args[0]
	}
	kinds, err := parseKinds(searchFlags.enrich)
	if err != nil {
		return err
	}

	svc, logger, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	var docText string
	if searchFlags.document != "" {
		data, err := os.ReadFile(searchFlags.document)
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		docText, err = svc.Extractor.Extract(filepath.Base(searchFlags.document), "", data)
		if err != nil {
			return fmt.Errorf("extract document: %w", err)
		}
		logger.Debug().Int("chars", len(docText)).Msg("document extracted")
	}

	sess, err := svc.Sessions.Create()
	if err != nil {
		return err
	}

	discovery, err := svc.Pipeline.Discover(ctx, sess, query, docText)
	if err != nil {
		return explainDiscoveryError(err)
	}

	out := cmd.OutOrStdout()
	if searchFlags.asJSON {
		if err := writeJSON(out, discovery); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, discovery.Listing)
		printCandidateIDs(out, discovery.Candidates)
	}

	switch {
	case searchFlags.selectAll:
		if err := svc.Pipeline.SetSelection(sess, paperIDs(discovery.Candidates)); err != nil {
			return err
		}
	case len(searchFlags.selectIDs) > 0:
		if err := svc.Pipeline.SetSelection(sess, searchFlags.selectIDs); err != nil {
			return err
		}
	}

	var errs []error
	for _, kind := range kinds {
		result, err := svc.Pipeline.RunEnrichment(ctx, sess, kind)
		if searchFlags.asJSON {
			if werr := writeJSON(out, result); werr != nil {
				return werr
			}
		} else if result != nil {
			printEnrichment(out, result)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}

	if searchFlags.exportTo != "" {
		papers := sess.Snapshot().Candidates
		if selected, _, err := sess.SelectedPapers(); err == nil {
			papers = selected
		}
		body, err := export.CSLYAML(papers)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := os.WriteFile(searchFlags.exportTo, body, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d references to %s\n", len(papers), searchFlags.exportTo)
	}

	return errors.Join(errs...)
}

func parseKinds(names []string) ([]domain.EnrichmentKind, error) {
	kinds := make([]domain.EnrichmentKind, 0, len(names))
	for _, name := range names {
		kind, err := domain.ParseEnrichmentKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func paperIDs(papers []*domain.PaperRecord) []string {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	return ids
}
