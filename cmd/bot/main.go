package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dvloznov/cashflow-bot/internal/config"
	"github.com/dvloznov/cashflow-bot/internal/jobs/inmemory"
	"github.com/dvloznov/cashflow-bot/internal/logger"
	"github.com/dvloznov/cashflow-bot/internal/telegram"
)

func main() {
	var cli struct {
		Iiko     config.Iiko     `embed:""`
		Report   config.Report   `embed:""`
		Archive  config.Archive  `embed:""`
		RunLog   config.RunLog   `embed:""`
		Telegram config.Telegram `embed:""`
		Log      config.Log      `embed:""`
	}
	kong.Parse(&cli, kong.Description("Cash flow statement chat bot"))

	log := cli.Log.Logger()
	if !cli.Telegram.Enabled() {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, err := config.NewServices(ctx, cli.Iiko, cli.Report, cli.Archive, cli.RunLog)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire report services")
	}
	defer svc.Close()

	api, err := tgbotapi.NewBotAPI(cli.Telegram.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Bot API")
	}
	api.Debug = cli.Telegram.Debug
	log.Info().Str("bot", api.Self.UserName).Msg("Authorized")

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cli.Telegram.QueueSize, cli.Telegram.Workers, jobStore)

	handler := telegram.NewReportHandler(svc.Report, telegram.NewDeliverer(api))
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start report workers")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	bot := telegram.NewBot(api, jobQueue)
	log.Info().Int("workers", cli.Telegram.Workers).Msg("Bot started")
	if err := bot.Run(ctx, updates); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("Update loop stopped")
	}

	log.Info().Msg("Shutting down bot...")
	api.StopReceivingUpdates()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Bot exited")
}
