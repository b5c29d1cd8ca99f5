package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fluxo/internal/advisory"
	"fluxo/internal/cache"
	"fluxo/internal/cli"
	"fluxo/internal/events"
	apphttp "fluxo/internal/http"
	"fluxo/internal/log"
	"fluxo/internal/report"
	"fluxo/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	be := cli.InitBackend(context.Background(), logger, cfg, false)

	// Changes go to in-process subscribers and, when configured, to the
	// broker for the ledger worker.
	hub := events.NewHub(0)
	var publisher events.Publisher = hub
	if be.Broker != nil {
		publisher = events.Fanout{hub, be.Broker}
	}

	summaries := cache.NewLRUCache[report.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(10 * time.Minute)

	reference, err := services.NewReferenceService(be.Store, publisher)
	if err != nil {
		logger.Error("Invalid deletion policy", "error", err)
		os.Exit(1)
	}

	var advisor advisory.Advisor
	if cfg.AdvisoryEnabled() {
		a, err := advisory.NewOpenAIAdvisor(advisory.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: 60 * time.Second,
		})
		if err != nil {
			logger.Warn("Advisory disabled", "error", err)
		} else {
			advisor = a
		}
	} else {
		logger.Info("Advisory disabled - no OPENAI_API_KEY provided")
	}

	dashboard := services.NewDashboardService(be.Store, hub, summaries, loc)
	srv := apphttp.NewServer(apphttp.Services{
		Ledger:    services.NewLedgerService(be.Store, publisher),
		Reference: reference,
		Generator: services.NewRecurringGenerator(be.Store, publisher, loc),
		Profit:    services.NewProfitService(be.Store, publisher, loc),
		Dashboard: dashboard,
		Advisory:  services.NewAdvisoryService(be.Store, advisor),
	}, apphttp.Options{
		Addr:               ":" + cfg.Port,
		Location:           loc,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready:              be.Store.Ping,
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	go dashboard.Run(ctx)
	if be.Broker != nil {
		// entries generated by the recurring worker reach the summaries here
		go be.Broker.Relay(ctx, hub)
	}

	logger.Info("Starting fluxo server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", loc.String(),
		"amqp_enabled", be.Broker != nil,
		"advisory_enabled", advisor != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
