package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"financeiro/internal/cli"
	"financeiro/internal/config"
	"financeiro/internal/sheets"
	gsheet "financeiro/internal/sheets/google"
	memsheet "financeiro/internal/sheets/memory"
	"financeiro/internal/worker"
)

func workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Export synced households to Google Sheets",
		Long: `Consume household-synced notifications from AMQP and mirror each
household document into its spreadsheet tab. Every document is also
re-exported on SYNC_INTERVAL to catch missed messages.`,
		RunE: runWorker,
	}
	cmd.Flags().Bool("once", false, "export every document once and exit")
	return cmd
}

func newExporter(ctx context.Context, cfg *config.Config) (sheets.LedgerExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
		return memsheet.New(), nil
	}
	client, err := gsheet.NewFromConfig(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
	}
	once, _ := cmd.Flags().GetBool("once")

	ctx, cancel := cli.SignalContext(cmd.Context(), logger)
	defer cancel()

	res, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return err
	}
	var tracker worker.ExportTracker
	if res.SQLite != nil {
		tracker = res.SQLite
	}
	w := worker.NewExportWorker(res.Backend, res.Backend, exporter, tracker, logger)

	if once {
		stats, err := w.ExportAll(ctx)
		if err != nil {
			return err
		}
		logger.Info("Export finished", "exported", stats.Exported, "skipped", stats.Skipped, "errors", stats.Failed)
		return nil
	}

	logger.Info("Starting financeiro worker", "interval", cfg.SyncInterval, "version", version)
	g, gctx := errgroup.WithContext(ctx)
	if res.AMQP != nil {
		g.Go(func() error {
			return res.AMQP.ConsumeHouseholdSynced(gctx, w.HandleSyncMessage)
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no broker available")
	}
	g.Go(func() error {
		return w.Run(gctx, cfg.SyncInterval)
	})

	start := time.Now()
	err = g.Wait()
	logger.Info("Worker stopped", "uptime", time.Since(start).Round(time.Second).String())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
