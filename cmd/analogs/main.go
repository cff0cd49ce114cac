// Package main is the operator CLI for the analogs service: cache
// population and maintenance, one-off scoring and data imports.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/analogs/internal/config"
	"github.com/aristath/analogs/internal/di"
	"github.com/aristath/analogs/pkg/logger"
)

var (
	outputFormat string
	logLevel     string
)

// rootCmd is the base command for the analogs CLI
var rootCmd = &cobra.Command{
	Use:   "analogs",
	Short: "Historical analog scenario scoring",
	Long: `analogs scores model portfolios against the flagship fund over historical
market analogs and manages the precomputed score cache.

Configuration is read from the environment (and .env), the same as the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withContainer loads configuration, wires dependencies and runs fn.
// Logs go to stderr so stdout carries only command output.
func withContainer(fn func(cfg *config.Config, container *di.Container, log zerolog.Logger) error) error {
	if err := validateFormat(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	log := logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})

	container, err := di.Wire(cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	return fn(cfg, container, log)
}

func validateFormat() error {
	switch outputFormat {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unsupported format %q (use table or json)", outputFormat)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
