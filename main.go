package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradelab/src/alerts"
	"tradelab/src/backtest"
	"tradelab/src/database"
	"tradelab/src/marketdata"
	"tradelab/src/notify"
	"tradelab/src/papertrading"
	"tradelab/src/repository"
	"tradelab/src/server"
)

var (
	PORT     = os.Getenv("SERVER_PORT")
	APP_NAME = os.Getenv("APP_NAME")
)

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	mdConfig := marketdata.GetConfig()
	cache := marketdata.NewPriceCache(mdConfig.PriceMaxAge)
	candles := repository.NewOHLCVRepositoryWithDB(database.MainDB)
	market := marketdata.NewService(
		nil,
		candles,
		marketdata.NewIndicatorClient(mdConfig.IndicatorBaseURL),
		marketdata.NewQuoteClient(mdConfig.QuoteBaseURL, mdConfig.QuoteAPIKey),
		cache,
	)

	// Optional tick feed keeps the quote cache warm.
	if mdConfig.QuoteStreamURL != "" {
		stream := marketdata.NewQuoteStream(nil, mdConfig.QuoteStreamURL, cache)
		go stream.Run(context.Background())
	}

	notifyConfig := notify.GetConfig()
	notifier := notify.NewService(
		nil,
		repository.NewNotificationRepositoryWithDB(database.MainDB),
		notify.NewEmailClient(notifyConfig.EmailBaseURL, notifyConfig.EmailAPIKey, notifyConfig.EmailFrom),
	)

	deps := server.Deps{
		DB:            database.MainDB,
		Users:         repository.NewUserRepositoryWithDB(database.MainDB),
		Strategies:    repository.NewStrategyRepositoryWithDB(database.MainDB),
		Runs:          repository.NewBacktestRunRepositoryWithDB(database.MainDB),
		Alerts:        repository.NewAlertRepositoryWithDB(database.MainDB),
		Notifications: repository.NewNotificationRepositoryWithDB(database.MainDB),
		Market:        market,
		Engine:        backtest.NewEngine(nil, market),
		Sessions:      papertrading.NewRegistry(),
		Checker:       alerts.NewChecker(nil, market, notifier),
	}

	port := PORT
	if port == "" {
		port = server.GetConfig().Port
	}

	server.StartServer(port, deps)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
