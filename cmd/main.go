package main

import (
	"bytes"
	"context"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"crypto-portfolio-bot/config"
	"crypto-portfolio-bot/internal/alert"
	"crypto-portfolio-bot/internal/commands"
	"crypto-portfolio-bot/internal/conversation"
	"crypto-portfolio-bot/internal/database"
	"crypto-portfolio-bot/internal/metrics"
	"crypto-portfolio-bot/internal/price"
	"crypto-portfolio-bot/internal/scheduler"
	"crypto-portfolio-bot/internal/telegram"
	"crypto-portfolio-bot/lib/translation"

	"github.com/davecgh/go-spew/spew"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const metricsSaveInterval = 5 * time.Minute

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	loc, _ := config.Location()

	translation.Configure("locales", config.GetString("lang"))
	log.Debugf("Using language %s", translation.GetLanguage())

	store, err := database.New(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	metrics.Bot.LoadFromDB(store)

	prices, err := price.NewProvider(price.Config{
		Source:  config.GetString("price_source"),
		APIKey:  priceAPIKey(),
		Timeout: config.GetDuration("price_timeout"),
	})
	if err != nil {
		log.Fatalf("Failed to create price provider: %v", err)
	}

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(
		loc,
		config.GetDuration("alert_interval"),
		alert.NewService(store, prices, bot),
		scheduler.NewReporter(store, prices, bot),
	)
	if err := sched.Rebuild(ctx, store); err != nil {
		log.Fatalf("Failed to schedule reports: %v", err)
	}
	sched.Start(ctx)

	dispatcher := commands.NewDispatcher(commands.Config{
		Store:            store,
		Prices:           prices,
		Reports:          sched,
		Sessions:         conversation.NewStore(config.GetDuration("conversation_timeout")),
		AuthorizedUserID: config.GetInt64("authorized_user_id"),
		Location:         loc,
	})

	updates, err := bot.GetUpdatesChannel()
	if err != nil {
		log.Fatalf("Failed to get updates channel: %v", err)
	}

	go handleUpdates(ctx, bot, dispatcher, updates)

	go func() {
		ticker := time.NewTicker(metricsSaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.Bot.SaveToDB(store)
			}
		}
	}()

	go func() {
		if err := metrics.LaunchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("Shutting down...")
	bot.StopUpdates()
	cancel()
	sched.Stop()
	metrics.Bot.SaveToDB(store)
	log.Info("Metrics saved, bye")
}

func setupLogging() {
	if strings.EqualFold(config.GetString("log_format"), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting crypto portfolio bot...")
}

func priceAPIKey() string {
	if strings.EqualFold(config.GetString("price_source"), "coinpaprika") {
		return config.GetString("api_pro_key")
	}
	return config.GetString("cmc_api_key")
}

func handleUpdates(ctx context.Context, bot *telegram.Bot, dispatcher *commands.Dispatcher, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil {
			log.Debug("Received non-message update")
			continue
		}
		if log.IsLevelEnabled(log.DebugLevel) {
			log.Debug(spew.Sdump(update.Message))
		}

		metrics.Bot.MessagesHandled.Inc()
		handleUpdate(ctx, bot, dispatcher, update)
	}
}

func handleUpdate(ctx context.Context, bot *telegram.Bot, dispatcher *commands.Dispatcher, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	bot.HandleUpdate(ctx, dispatcher, update)
}
