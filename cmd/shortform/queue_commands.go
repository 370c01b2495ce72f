package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortform/internal/config"
	"shortform/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the production queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				var statuses []queue.Status
				for _, raw := range listStatuses {
					status, ok := queue.ParseStatus(raw)
					if !ok {
						return fmt.Errorf("unknown status %q", raw)
					}
					statuses = append(statuses, status)
				}

				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					review := ""
					if item.NeedsReview {
						review = "yes"
					}
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Topic,
						string(item.Status),
						item.CreatedAt.Local().Format("2006-01-02 15:04"),
						review,
					})
				}
				table := renderTable(
					[]string{"ID", "Topic", "Status", "Created", "Review"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Only list items in these statuses")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				if summary.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := [][]string{
					{"pending", strconv.Itoa(summary.Pending)},
					{"processing", strconv.Itoa(summary.Processing)},
					{"completed", strconv.Itoa(summary.Completed)},
					{"failed", strconv.Itoa(summary.Failed)},
					{"rejected", strconv.Itoa(summary.Rejected)},
					{"total", strconv.Itoa(summary.Total)},
				}
				table := renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				printItemDetail(cmd, item)
				return nil
			})
		},
	}
}

func printItemDetail(cmd *cobra.Command, item *queue.Item) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Item %d: %s\n", item.ID, item.Topic)
	fmt.Fprintf(out, "  Status:    %s\n", item.Status)
	if item.AudienceTag != "" {
		fmt.Fprintf(out, "  Audience:  %s\n", item.AudienceTag)
	}
	if item.ProgressStage != "" {
		fmt.Fprintf(out, "  Progress:  %s %.0f%% %s\n", item.ProgressStage, item.ProgressPercent, item.ProgressMessage)
	}
	if item.ArtifactPath != "" {
		fmt.Fprintf(out, "  Artifact:  %s\n", item.ArtifactPath)
	}
	if item.NeedsReview {
		fmt.Fprintf(out, "  Review:    %s\n", item.ReviewReason)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:     %s\n", item.ErrorMessage)
	}
	fmt.Fprintf(out, "  Created:   %s\n", item.CreatedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(out, "  Updated:   %s\n", item.UpdatedAt.Local().Format(time.RFC1123))
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset failed items to pending (rejected items stay rejected)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				count, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d item(s) to pending\n", count)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id...>",
		Short: "Remove queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				for _, id := range ids {
					removed, err := store.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d removed\n", id)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d not found\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				var count int64
				var err error
				if completedOnly {
					count, err = store.ClearCompleted(cmd.Context())
				} else {
					count, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove completed items")
	return cmd
}

func parsePositiveID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", arg)
	}
	return id, nil
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parsePositiveID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
