package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"profit-matrix/internal/config"
	"profit-matrix/internal/middleware"
	"profit-matrix/internal/observability"
	"profit-matrix/internal/profitability"
	"profit-matrix/internal/server"
	"profit-matrix/internal/services"
)

func reportOptions(cfg config.ReportConfig) profitability.Options {
	return profitability.Options{
		MarginThreshold:  cfg.MarginThreshold,
		CriticalLimit:    cfg.CriticalLimit,
		OpportunityLimit: cfg.OpportunityLimit,
		CategoryOrder: profitability.CategoryOrder{
			Key:        profitability.SortKey(cfg.CategorySort),
			Descending: cfg.CategoryDesc,
		},
	}
}

// loadDefaultReport analyses the configured dataset file, or demo data when
// no file is set.
func loadDefaultReport(cfg config.DatasetConfig, reports *services.Reports, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	start := time.Now()
	if cfg.File != "" {
		if err := reports.LoadFromFile(ctx, cfg.File); err != nil {
			return err
		}
	} else {
		if err := reports.LoadDemo(ctx, cfg.DemoSeed, cfg.DemoRows); err != nil {
			return err
		}
	}
	logger.Info("default report ready", "duration", time.Since(start))
	return nil
}

const rateLimitSweep = time.Minute

func newHandler(cfg *config.Config, reports *services.Reports, metrics *observability.Metrics, rateLimiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	srv := server.NewServer(reports, metrics, logger, server.Options{
		CTAURL:         cfg.CTAURL,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.Metrics(metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	tracerProvider, err := observability.NewTracerProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	metrics := observability.NewMetrics()
	reports := services.NewReports(reportOptions(cfg.Report), metrics, logger)
	if err := loadDefaultReport(cfg.Dataset, reports, logger); err != nil {
		return fmt.Errorf("load default report: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go rateLimiter.Run(sweepCtx, rateLimitSweep)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, reports, metrics, rateLimiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		stopSweep()
		return nil
	})
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("flushing traces")
		return tracerProvider.Shutdown(ctx)
	})

	logger.Info("starting graceful server")
	return gracefulServer.ListenAndServe()
}

func main() {
	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}

	slog.Info("application stopped gracefully")
}
