package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shortform/internal/config"
	"shortform/internal/daemon"
	"shortform/internal/notifications"
	"shortform/internal/queue"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon lifecycle",
	}
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the production daemon until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := ctx.newLogger()
				if err != nil {
					return err
				}

				notifier := notifications.NewService(cfg)
				manager := buildManager(cfg, store, logger, notifier)

				d, err := daemon.New(cfg, store, logger, manager, notifier)
				if err != nil {
					return err
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if err := d.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon running (lock %s). Press Ctrl+C to stop.\n", d.LockPath())

				<-runCtx.Done()
				d.Stop(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
				return nil
			})
		},
	}
}
