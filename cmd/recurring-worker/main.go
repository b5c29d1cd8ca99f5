package main

import (
	"context"
	"os"
	"time"

	"fluxo/internal/cli"
	"fluxo/internal/events"
	"fluxo/internal/log"
	"fluxo/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	be := cli.InitBackend(context.Background(), logger, cfg, false)

	var publisher events.Publisher = events.Nop{}
	if be.Broker != nil {
		publisher = be.Broker
		logger.Info("AMQP enabled - generated entries will be mirrored by the ledger-worker")
	} else {
		logger.Info("AMQP disabled - generated entries will not be announced")
	}

	generator := services.NewRecurringGenerator(be.Store, publisher, loc)
	scheduler := services.NewRecurringScheduler(generator, services.SchedulerConfig{
		Interval: cfg.RecurringInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Error("Scheduler stop error", "error", err)
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Recurring generation configured",
		"interval", cfg.RecurringInterval,
		"backend", cfg.DataBackend,
		"timezone", loc.String())
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	if rep, err := scheduler.Last(); err == nil {
		logger.Info("Recurring-worker shutdown complete", "last_month", rep.Month, "last_generated", rep.Generated)
	}
}
