package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"occupancy/internal/adapters"
	"occupancy/internal/amqp"
	"occupancy/internal/cli"
	"occupancy/internal/log"
	"occupancy/internal/worker"
)

func main() {
	// Load .env file for local development (ignored in production/docker)
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)

	logger.Info("Starting occupancy-worker")

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "AMQP is required for the worker", errors.New("AMQP_URL is empty"))
	}

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err)
	}
	// The worker only consumes; the adapter has no publisher.
	store := adapters.NewSQLiteAdapter(repo, nil)
	defer store.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	reportWorker := worker.NewReportWorker(store, store, cfg.TotalCapacity, cfg.SnapshotMonths)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := reportWorker.StartupSnapshotCheck(ctx); err != nil {
		logger.Error("Startup snapshot check failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming sheet imported messages",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue,
			"snapshot_months", cfg.SnapshotMonths)
		err := client.ConsumeSheetImported(gctx, reportWorker.HandleSheetImported)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := reportWorker.RunPeriodicSnapshots(gctx, 24*time.Hour)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
