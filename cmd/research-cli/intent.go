package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var intentCmd = &cobra.Command{
	Use:   "intent <message>",
	Short: "Classify a chat message into research intents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, _, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		intents, err := svc.Pipeline.DetectIntent(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(intents) == 0 {
			fmt.Fprintln(out, "No intent recognized")
			return nil
		}
		for _, in := range intents {
			fmt.Fprintln(out, in)
		}
		return nil
	},
}
