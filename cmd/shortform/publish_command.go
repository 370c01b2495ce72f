package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"shortform/internal/config"
	"shortform/internal/experiment"
	"shortform/internal/publish"
	"shortform/internal/queue"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish a completed item to the configured platforms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				if item.Status != queue.StatusCompleted {
					return fmt.Errorf("item %d is %s; only completed items can be published", id, item.Status)
				}

				logger, err := ctx.newLogger()
				if err != nil {
					return err
				}

				expStore, err := experiment.OpenStore(cfg)
				if err != nil {
					return err
				}
				defer expStore.Close()
				engine := experiment.NewEngine(cfg.Experiments, expStore, experiment.WithEngineLogger(logger))

				archiveRoot := filepath.Join(cfg.Paths.OutputDir, "published")
				uploaders := make([]publish.Uploader, 0, len(cfg.Publishing.Platforms))
				for _, platform := range cfg.Publishing.Platforms {
					uploaders = append(uploaders, publish.NewArchiveUploader(platform, archiveRoot))
				}

				publisher := publish.NewPublisher(cfg.Publishing, uploaders, engine, logger)
				results, err := publisher.Publish(cmd.Context(), item)
				if err != nil {
					return err
				}
				for _, result := range results {
					line := fmt.Sprintf("Published to %s as %s", result.Platform, result.ExternalID)
					if result.Exposed {
						line += fmt.Sprintf(" (experiment variation %s)", result.VariationID)
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
}
