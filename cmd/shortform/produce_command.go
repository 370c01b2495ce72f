package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shortform/internal/config"
	"shortform/internal/notifications"
	"shortform/internal/queue"
)

func newProduceCommand(ctx *commandContext) *cobra.Command {
	var audience string
	var durationSec int

	cmd := &cobra.Command{
		Use:   "produce <topic>",
		Short: "Run one topic through the full pipeline and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(args[0])
			if topic == "" {
				return fmt.Errorf("topic must not be empty")
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := ctx.newLogger()
				if err != nil {
					return err
				}

				item, err := store.NewRequest(cmd.Context(), topic, audience, durationSec)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item %d for %q\n", item.ID, topic)

				manager := buildManager(cfg, store, logger, notifications.NewService(cfg))
				settled, err := manager.ProcessUntilSettled(cmd.Context(), item.ID)
				if err != nil {
					return err
				}

				printProduceOutcome(cmd, settled)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&audience, "audience", "", "Audience tag recorded with the request")
	cmd.Flags().IntVar(&durationSec, "duration", 0, "Target video duration in seconds (0 uses the renderer ceiling)")
	return cmd
}

func printProduceOutcome(cmd *cobra.Command, item *queue.Item) {
	out := cmd.OutOrStdout()
	switch item.Status {
	case queue.StatusCompleted:
		fmt.Fprintf(out, "Item %d completed: %s\n", item.ID, item.ArtifactPath)
		if item.NeedsReview {
			fmt.Fprintf(out, "Flagged for manual review: %s\n", item.ReviewReason)
		}
	case queue.StatusRejected:
		fmt.Fprintf(out, "Item %d rejected by the quality gate: %s\n", item.ID, item.ErrorMessage)
	case queue.StatusFailed:
		fmt.Fprintf(out, "Item %d failed: %s\n", item.ID, item.ErrorMessage)
	default:
		fmt.Fprintf(out, "Item %d stopped in status %s\n", item.ID, item.Status)
	}
}
