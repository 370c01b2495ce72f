package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shortform/internal/experiment"
)

func newExperimentsCommand(ctx *commandContext) *cobra.Command {
	expCmd := &cobra.Command{
		Use:   "experiments",
		Short: "Inspect and resolve publishing experiments",
	}

	expCmd.AddCommand(newExperimentsListCommand(ctx))
	expCmd.AddCommand(newExperimentsRecordCommand(ctx))
	expCmd.AddCommand(newExperimentsResolveCommand(ctx))
	expCmd.AddCommand(newExperimentsResultsCommand(ctx))

	return expCmd
}

func (c *commandContext) withExperiments(fn func(store *experiment.Store, engine *experiment.Engine) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.newLogger()
	if err != nil {
		return err
	}
	store, err := experiment.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	engine := experiment.NewEngine(cfg.Experiments, store, experiment.WithEngineLogger(logger))
	return fn(store, engine)
}

func newExperimentsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <content-id>",
		Short: "List variations registered for a piece of content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withExperiments(func(store *experiment.Store, _ *experiment.Engine) error {
				variations, err := store.ContentVariations(cmd.Context(), contentID)
				if err != nil {
					return err
				}
				if len(variations) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No variations recorded")
					return nil
				}
				rows := make([][]string, 0, len(variations))
				for _, v := range variations {
					rows = append(rows, []string{
						v.ID,
						v.Platform,
						string(v.Dimension),
						describePayload(v),
					})
				}
				table := renderTable(
					[]string{"ID", "Platform", "Dimension", "Treatment"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func describePayload(v experiment.Variation) string {
	switch v.Dimension {
	case experiment.DimensionTitle:
		return v.Payload.Title
	case experiment.DimensionTags:
		return strings.Join(v.Payload.Tags, ", ")
	case experiment.DimensionSchedule:
		return fmt.Sprintf("post at %02d:00 UTC", v.Payload.PostHour)
	default:
		return ""
	}
}

func newExperimentsRecordCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "record <variation-id> <metric>=<value>...",
		Short: "Record performance metrics for a variation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			variationID := strings.TrimSpace(args[0])
			metrics, err := parseMetrics(args[1:])
			if err != nil {
				return err
			}
			return ctx.withExperiments(func(_ *experiment.Store, engine *experiment.Engine) error {
				if err := engine.RecordOutcome(cmd.Context(), variationID, metrics); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d metric(s) for %s\n", len(metrics), variationID)
				return nil
			})
		},
	}
}

func parseMetrics(args []string) (map[string]float64, error) {
	metrics := make(map[string]float64, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid metric %q; expected name=value", arg)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid metric value in %q", arg)
		}
		metrics[strings.TrimSpace(name)] = value
	}
	return metrics, nil
}

func newExperimentsResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve winners for every experiment group with enough data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withExperiments(func(_ *experiment.Store, engine *experiment.Engine) error {
				resolutions, err := engine.ResolveAll(cmd.Context())
				if err != nil {
					return err
				}
				if len(resolutions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No groups had enough measured variations to resolve")
					return nil
				}
				printResolutions(cmd, resolutions)
				return nil
			})
		},
	}
}

func newExperimentsResultsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "Show stored experiment resolutions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withExperiments(func(store *experiment.Store, _ *experiment.Engine) error {
				resolutions, err := store.Resolutions(cmd.Context())
				if err != nil {
					return err
				}
				if len(resolutions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No resolutions recorded")
					return nil
				}
				printResolutions(cmd, resolutions)
				return nil
			})
		},
	}
}

func printResolutions(cmd *cobra.Command, resolutions []experiment.Resolution) {
	rows := make([][]string, 0, len(resolutions))
	for _, res := range resolutions {
		rows = append(rows, []string{
			res.Group.String(),
			res.WinnerID,
			fmt.Sprintf("%.3f", res.WinnerScore),
			fmt.Sprintf("%+.1f%%", res.Uplift*100),
			fmt.Sprintf("%.0f", res.Confidence),
		})
	}
	table := renderTable(
		[]string{"Group", "Winner", "Score", "Uplift", "Confidence"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
	fmt.Fprintln(cmd.OutOrStdout(), table)
}
