package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/analogs/internal/config"
	"github.com/aristath/analogs/internal/di"
	"github.com/aristath/analogs/internal/modules/scenarios"
)

var scoreVersion int

// scoreCmd scores one analog through the same path as the HTTP API
var scoreCmd = &cobra.Command{
	Use:   "score <analog-id>",
	Short: "Score every portfolio over one historical analog",
	Long: `Score returns the cached scores of an analog when the cache holds the full
set, otherwise computes them live. Live results are not written to the cache.

Examples:
  analogs score 2008-financial-crisis
  analogs score 2020-covid-crash --version 2 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(cfg *config.Config, container *di.Container, log zerolog.Logger) error {
			scores, err := container.ScenarioService.GetScoresForAnalog(cmd.Context(), args[0], scoreVersion)
			if err != nil {
				return err
			}
			return printScores(cmd.OutOrStdout(), scores)
		})
	},
}

// analogsCmd lists the registered analogs
var analogsCmd = &cobra.Command{
	Use:   "analogs",
	Short: "List the historical analogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(cfg *config.Config, container *di.Container, log zerolog.Logger) error {
			list := container.ScenarioService.ListAnalogs()
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPERIOD")
			for _, a := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Name, a.DateRange)
			}
			return tw.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd, analogsCmd)

	scoreCmd.Flags().IntVar(&scoreVersion, "version", 0, "Cache version to read (0 = current)")
}

func printScores(w io.Writer, scores *scenarios.AnalogScores) error {
	if outputFormat == "json" {
		return writeJSON(w, map[string]interface{}{
			"analogId":      scores.Analog.ID,
			"analogName":    scores.Analog.Name,
			"analogPeriod":  scores.Analog.DateRange.String(),
			"source":        scores.Source,
			"computeTimeMs": scores.ComputeTime.Milliseconds(),
			"portfolios":    scores.Portfolios,
		})
	}

	fmt.Fprintf(w, "%s (%s), source: %s\n\n", scores.Analog.Name, scores.Analog.DateRange, scores.Source)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PORTFOLIO\tSCORE\tBAND\tRETURN\tBENCH RETURN\tDRAWDOWN\tBENCH DRAWDOWN")
	for _, s := range scores.Portfolios {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f%%\t%.1f%%\t%.1f%%\t%.1f%%\n",
			s.PortfolioName, s.Score, s.Label,
			s.PortfolioReturn*100, s.BenchmarkReturn*100,
			s.PortfolioDrawdown*100, s.BenchmarkDrawdown*100)
	}
	return tw.Flush()
}
