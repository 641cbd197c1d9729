package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pokertracker/internal/backend"
	"pokertracker/internal/cli"
	"pokertracker/internal/log"
	"pokertracker/internal/services"
	"pokertracker/internal/worker"
)

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(nil).Error("Configuration validation failed",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)
	logger.Info("Starting pokertracker-worker", log.FieldOperation, log.OpStartup)

	if cfg.DataBackend != string(backend.SQLiteBackend) {
		logger.Error("The sync worker needs the sqlite backend; the outbox lives there", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	result, backendCfg, err := cli.InitBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	mirror, err := backend.NewFactory(logger).CreateMirror(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize spreadsheet mirror", log.FieldError, err)
		os.Exit(1)
	}

	procCfg := services.DefaultSyncProcessorConfig()
	procCfg.PollInterval = cfg.SyncInterval
	procCfg.BatchSize = cfg.SyncBatchSize
	procCfg.MaxRetries = cfg.SyncMaxRetries
	processor := services.NewSyncProcessor(result.Queue, mirror, procCfg, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)

	// Polling covers everything; broker events only make it faster.
	g.Go(func() error {
		return processor.Run(gctx)
	})

	if consumer, ok := result.Publisher.(worker.EventConsumer); ok {
		syncWorker := worker.NewSyncWorker(processor, result.Queue, logger)
		g.Go(func() error {
			return syncWorker.Run(gctx, consumer)
		})
	} else {
		logger.Info("No broker configured, relying on polling only",
			"poll_interval", procCfg.PollInterval)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
