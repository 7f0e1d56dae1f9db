// Package main is the research-cli entry point. It runs the discovery and
// enrichment pipeline from a terminal against the same configuration as the
// server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/research-assistant-service/internal/app"
	"github.com/helixir/research-assistant-service/internal/config"
	"github.com/helixir/research-assistant-service/internal/observability"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "research-cli",
	Short: "Find research papers for a query and enrich the ones you pick",
	Long: `research-cli distills a research query (optionally with a document) into a
search phrase, lists matching papers and runs enrichment operations such as
citation lookup, BibTeX retrieval and LLM summaries on a selection.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "warn", "log level written to stderr")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(intentCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration the same way the server does.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  rootFlags.logLevel,
		Format: "console",
		Output: "stderr",
	})
	return cfg, logger.With().Str("component", "cli").Logger(), nil
}

// buildApp assembles the service. The CLI does not expose metrics.
func buildApp(ctx context.Context) (*app.App, zerolog.Logger, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, logger, err
	}
	a, err := app.Build(ctx, cfg, nil, logger)
	if err != nil {
		return nil, logger, fmt.Errorf("build service: %w", err)
	}
	return a, logger, nil
}
