package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"moneytracker/internal/backend"
	"moneytracker/internal/bot"
	"moneytracker/internal/cli"
	"moneytracker/internal/config"
	apphttp "moneytracker/internal/http"
	applog "moneytracker/internal/log"
	"moneytracker/internal/parser"
	"moneytracker/internal/telegram"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateBot)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Bot stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend))
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	p, err := newParser(cfg.CategoryKeywordsFile)
	if err != nil {
		return err
	}

	ids, err := cfg.ChatAllowList()
	if err != nil {
		return err
	}

	store := result.Backend
	handler := bot.NewHandler(store, store, p, logger.WithComponent(applog.ComponentBot), cfg.Location())
	tg, err := telegram.New(cfg.BotToken, cfg.TelegramDebug, handler, bot.NewAllowList(ids), logger.WithComponent(applog.ComponentTelegram))
	if err != nil {
		return err
	}

	opts := apphttp.Options{
		Checks: map[string]apphttp.ReadyFunc{"store": store.Ping},
	}
	if cfg.TelegramMode == config.ModeWebhook {
		tg.WithWebhookSecret(cfg.TelegramWebhookSecret)
		if err := tg.SetWebhook(cfg.TelegramWebhookURL); err != nil {
			return err
		}
		opts.Webhook = tg.WebhookHandler()
	}
	srv := apphttp.NewServer(":"+cfg.Port, opts, logger.WithComponent(applog.ComponentHTTP))

	logger.Info("Starting money tracker bot",
		"mode", cfg.TelegramMode,
		"backend", backendCfg.Type,
		"port", cfg.Port,
		"allowed_chats", len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if cfg.TelegramMode != config.ModeWebhook {
		g.Go(func() error { return tg.RunPolling(ctx) })
	}
	return g.Wait()
}

func newParser(keywordsFile string) (*parser.Parser, error) {
	if keywordsFile == "" {
		return parser.Default(), nil
	}
	table, err := parser.LoadTable(keywordsFile)
	if err != nil {
		return nil, err
	}
	return parser.New(table), nil
}
