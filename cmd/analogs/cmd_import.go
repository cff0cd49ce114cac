package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/analogs/internal/config"
	"github.com/aristath/analogs/internal/di"
	"github.com/aristath/analogs/internal/modules/catalog"
)

// importPricesCmd loads daily closes into the history database
var importPricesCmd = &cobra.Command{
	Use:   "import-prices <csv>",
	Short: "Import daily closing prices from a CSV file",
	Long: `Import rows of "ticker,date,close" (date as YYYY-MM-DD). Existing closes for
the same ticker and day are replaced. A header row is skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(cfg *config.Config, container *di.Container, log zerolog.Logger) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open price file: %w", err)
			}
			defer f.Close()

			stored, err := container.PriceStore.ImportCSV(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("import failed after %d rows: %w", stored, err)
			}

			log.Info().Int("rows", stored).Str("file", args[0]).Msg("Prices imported")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d closes\n", stored)
			return err
		})
	},
}

// importHoldingsCmd replaces the flagship fund holdings
var importHoldingsCmd = &cobra.Command{
	Use:   "import-holdings <csv>",
	Short: "Replace the flagship fund holdings from a CSV file",
	Long: `Import rows of "ticker,weight[,asset_class]". Weights are fractions of the
fund. Missing asset classes are inferred from the ticker. The previous holdings
are replaced atomically.

Changing the benchmark invalidates cached scores: run "analogs clear" and
"analogs populate" afterwards, or bump SCENARIO_CACHE_VERSION.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(cfg *config.Config, container *di.Container, log zerolog.Logger) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open holdings file: %w", err)
			}
			defer f.Close()

			holdings, err := catalog.ParseHoldingsCSV(f)
			if err != nil {
				return err
			}
			if err := container.HoldingsRepo.ReplaceAll(cmd.Context(), holdings); err != nil {
				return err
			}

			log.Info().Int("holdings", len(holdings)).Msg("Fund holdings replaced")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d holdings\n", len(holdings))
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(importPricesCmd, importHoldingsCmd)
}
