package scheduler

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tradelab/src/alerts"
	"tradelab/src/database"
	"tradelab/src/executors"
	"tradelab/src/marketdata"
	"tradelab/src/notify"
	"tradelab/src/repository"
)

type Scheduler struct{}

// Start wires the alert pipeline and runs the periodic evaluation loop until
// SIGINT or SIGTERM.
func (s *Scheduler) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	mdConfig := marketdata.GetConfig()
	cache := marketdata.NewPriceCache(mdConfig.PriceMaxAge)
	market := marketdata.NewService(
		nil,
		repository.NewOHLCVRepositoryWithDB(database.MainDB),
		marketdata.NewIndicatorClient(mdConfig.IndicatorBaseURL),
		marketdata.NewQuoteClient(mdConfig.QuoteBaseURL, mdConfig.QuoteAPIKey),
		cache,
	)

	if mdConfig.QuoteStreamURL != "" {
		stream := marketdata.NewQuoteStream(nil, mdConfig.QuoteStreamURL, cache)
		go stream.Run(ctx)
	}

	notifyConfig := notify.GetConfig()
	notifier := notify.NewService(
		nil,
		repository.NewNotificationRepositoryWithDB(database.MainDB),
		notify.NewEmailClient(notifyConfig.EmailBaseURL, notifyConfig.EmailAPIKey, notifyConfig.EmailFrom),
	)

	checker := alerts.NewChecker(nil, market, notifier)

	if err := executors.StartLoop(ctx, database.MainDB, checker, market); err != nil {
		logrus.WithError(err).Error("Failed to start scheduler loop")
		return err
	}

	return nil
}
