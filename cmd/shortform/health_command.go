package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortform/internal/config"
	"shortform/internal/deps"
	"shortform/internal/notifications"
	"shortform/internal/queue"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check stage readiness and queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := ctx.newLogger()
				if err != nil {
					return err
				}

				manager := buildManager(cfg, store, logger, notifications.NewService(cfg))
				report, err := manager.Health(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, tool := range deps.CheckBinaries(deps.Default(cfg)) {
					kind := statusOK
					if !tool.Available {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(tool.Name, kind, tool.Detail, colorize))
				}
				for _, stg := range report.Stages {
					kind := statusOK
					if !stg.Ready {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(stg.Name, kind, stg.Detail, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("queue", queueStatusKind(report.Queue),
					fmt.Sprintf("%d total, %d processing, %d failed", report.Queue.Total, report.Queue.Processing, report.Queue.Failed),
					colorize))

				if !report.Ready {
					return fmt.Errorf("one or more stages are not ready")
				}
				return nil
			})
		},
	}
}

func queueStatusKind(summary queue.HealthSummary) statusKind {
	if summary.Failed > 0 {
		return statusWarn
	}
	return statusOK
}
