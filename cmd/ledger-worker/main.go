package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fluxo/internal/cli"
	"fluxo/internal/log"
	gsheet "fluxo/internal/sheets/google"
	"fluxo/internal/worker"
)

const reconcileInterval = 6 * time.Hour

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentMirror)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	be := cli.InitBackend(context.Background(), logger, cfg, true)

	mirror, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	mw := worker.NewMirrorWorker(be.Store, mirror, loc)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	reconcile := func() {
		rep, err := mw.Reconcile(ctx)
		if err != nil {
			logger.Error("Mirror reconciliation failed", "error", err)
			return
		}
		logger.Info("Mirror reconciled", "upserted", rep.Upserted, "removed", rep.Removed)
	}

	// catch up on events missed while the worker was down
	reconcile()

	go func() {
		ticker := time.NewTicker(reconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reconcile()
			}
		}
	}()

	go func() {
		if err := be.Broker.Consume(ctx, mw.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Ledger-worker shutdown complete")
}
