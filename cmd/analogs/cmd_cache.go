package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/analogs/internal/config"
	"github.com/aristath/analogs/internal/di"
	"github.com/aristath/analogs/internal/modules/scenarios"
	"github.com/aristath/analogs/internal/modules/scorecache"
)

var populateTimeout time.Duration

// populateCmd runs one cache population immediately
var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Score every analog against every portfolio and fill the cache",
	Long: `Populate computes the score of every (analog, portfolio) pair at the current
cache version and writes it to the cache. Items that keep failing are skipped
and reported; the command fails only when nothing could be written.

Examples:
  analogs populate
  analogs populate --timeout 30m --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(cfg *config.Config, container *di.Container, log zerolog.Logger) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), populateTimeout)
			defer cancel()

			run, err := container.PopulateJob.Populate(ctx)
			if run != nil {
				if werr := printRun(cmd.OutOrStdout(), run); werr != nil {
					return werr
				}
			}
			return err
		})
	},
}

// statusCmd reports cache completeness
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show score cache completeness and the last population run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(cfg *config.Config, container *di.Container, log zerolog.Logger) error {
			status, err := container.ScenarioService.CacheStatus(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), status)
		})
	},
}

// clearCmd deletes every cached score
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached score across all versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(cfg *config.Config, container *di.Container, log zerolog.Logger) error {
			cleared, err := container.ScenarioService.ClearCache(cmd.Context())
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"cleared": cleared})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached scores\n", cleared)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(populateCmd, statusCmd, clearCmd)

	populateCmd.Flags().DurationVar(&populateTimeout, "timeout", time.Hour, "Maximum duration of the run")
}

func printRun(w io.Writer, run *scorecache.PopulationRun) error {
	if outputFormat == "json" {
		return writeJSON(w, run)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run\t%s\n", run.RunID)
	fmt.Fprintf(tw, "Version\t%d\n", run.Version)
	fmt.Fprintf(tw, "Written\t%d\n", run.Written)
	fmt.Fprintf(tw, "Failed\t%d\n", run.Failed)
	fmt.Fprintf(tw, "Duration\t%s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	if run.Error != "" {
		fmt.Fprintf(tw, "Error\t%s\n", run.Error)
	}
	return tw.Flush()
}

func printStatus(w io.Writer, status *scenarios.CacheStatus) error {
	if outputFormat == "json" {
		return writeJSON(w, status)
	}

	fmt.Fprintf(w, "Status: %s (version %d, %d/%d entries)\n\n",
		status.Status, status.CurrentVersion, status.TotalEntries, status.ExpectedEntries)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ANALOG\tENTRIES\tCOMPLETE")
	for _, a := range status.Analogs {
		fmt.Fprintf(tw, "%s\t%d/%d\t%t\n", a.AnalogID, a.Entries, a.Expected, a.Complete)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if status.LastRun != nil {
		fmt.Fprintf(w, "\nLast run %s at %s: %d written, %d failed\n",
			status.LastRun.RunID, status.LastRun.FinishedAt.Format(time.RFC3339),
			status.LastRun.Written, status.LastRun.Failed)
	}
	return nil
}
