package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"occupancy/internal/backend"
	"occupancy/internal/cache"
	"occupancy/internal/cli"
	apphttp "occupancy/internal/http"
	"occupancy/internal/log"
	"occupancy/internal/metrics"
	"occupancy/internal/services"
)

func main() {
	// Load .env file for local development (ignored in production/docker)
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegistry(reg)

	reportCache := cache.NewLRUCache[services.SheetReport](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(reportCache)

	reports := services.NewReportService(res.Backend, reportCache, m, cfg.TotalCapacity)
	imports := services.NewSheetService(res.Backend, res.Publisher, reports, m, cfg.Columns())

	deps := apphttp.Deps{
		Importer: imports,
		Reports:  reports,
		Lister:   res.Backend,
		Metrics:  m,
		Logger:   logger,
	}
	if sl, ok := res.Backend.(apphttp.SnapshotLister); ok {
		deps.Snapshots = sl
	}
	if p, ok := res.Backend.(apphttp.Pinger); ok {
		deps.Pinger = p
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting occupancy server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"total_capacity", cfg.TotalCapacity)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		caches.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		srv.RunMaintenance(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
