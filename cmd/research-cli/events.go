package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/research-assistant-service/internal/app"
	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/events"
)

var eventsFlags struct {
	group string
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the research event stream",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print research events from Kafka as they arrive",
	RunE:  runEventsTail,
}

func init() {
	eventsTailCmd.Flags().StringVar(&eventsFlags.group, "group", "research-cli", "Kafka consumer group")
	eventsCmd.AddCommand(eventsTailCmd)
}

func runEventsTail(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka is not enabled in the configuration")
	}

	listener := events.NewListener(app.KafkaConfig(cfg.Kafka, eventsFlags.group), logger)
	defer func() { _ = listener.Close() }()

	out := cmd.OutOrStdout()
	err = listener.Run(cmd.Context(), func(_ context.Context, ev *domain.Event) error {
		fmt.Fprintf(out, "%s %s session=%s %s\n",
			ev.OccurredAt.Format("15:04:05"), ev.EventType, ev.SessionID, ev.Payload)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
