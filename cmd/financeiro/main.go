package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"financeiro/internal/cli"
	"financeiro/internal/config"
	"financeiro/internal/log"
)

var (
	version = "dev"

	logger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "financeiro",
		Short: "Shared household ledger for two",
		Long: `financeiro keeps the income and expenses of a two-person household,
imports receipts and card statements with Gemini, and keeps each
household document in sync with its store.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: initApp,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json); overrides LOG_FORMAT")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(scanCmd())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initApp loads .env and sets up logging before any subcommand runs.
func initApp(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	cfg := config.Load()

	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	format, _ := cmd.Flags().GetString("log-format")
	if format == "" {
		format = cfg.LogFormat
	}
	logger = cli.SetupLogger(level, format, os.Stderr)
	return nil
}
