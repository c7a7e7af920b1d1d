package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"moneytracker/internal/amqp"
	"moneytracker/internal/backend"
	"moneytracker/internal/cli"
	"moneytracker/internal/config"
	applog "moneytracker/internal/log"
	"moneytracker/internal/storage"
	"moneytracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, cfg.Location())
	if err != nil {
		return err
	}
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	sheetsClient, err := backend.NewSheetsClient(ctx, backendCfg)
	if err != nil {
		return err
	}
	if err := sheetsClient.EnsureHeader(ctx); err != nil {
		logger.Warn("Could not verify sheet header", "error", err)
	}

	syncWorker := worker.NewSyncWorker(repo, sheetsClient, cfg.SyncBatchSize)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return syncWorker.RunPeriodic(ctx, cfg.SyncInterval) })

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer client.Close()
		g.Go(func() error { return client.ConsumeTransactionSync(ctx, syncWorker.HandleSyncMessage) })
	} else {
		logger.Info("AMQP_URL not set, relying on periodic sync only")
	}

	logger.Info("Starting money tracker worker",
		"db_path", cfg.SQLiteDBPath,
		"sheet", cfg.GoogleSheetName,
		"interval", cfg.SyncInterval,
		"batch_size", cfg.SyncBatchSize,
		"amqp_enabled", cfg.AMQPURL != "")
	return g.Wait()
}
