package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"moneytracker/internal/backend"
	"moneytracker/internal/cli"
	"moneytracker/internal/config"
	"moneytracker/internal/export"
	applog "moneytracker/internal/log"
)

const exportTimeout = 2 * time.Minute

func main() {
	out := flag.String("o", "moneytracker.xlsx", "output workbook path")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentExport)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	n, err := run(ctx, cfg, logger, *out)
	if err != nil {
		logger.Error("Export failed", "error", err, "path", *out)
		cancel()
		os.Exit(1)
	}
	logger.Info("Export completed", "path", *out, "records", n)
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger, path string) (int, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return 0, err
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return 0, err
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	records, err := result.Backend.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read transactions: %w", err)
	}
	if err := export.WriteXLSX(path, records, time.Now().In(cfg.Location())); err != nil {
		return 0, err
	}
	return len(records), nil
}
