package executors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/alerts"
	"tradelab/src/marketdata"
)

// Swappable for tests.
var (
	checkAlerts = func(ctx context.Context, checker *alerts.Checker, db *gorm.DB) (int, error) {
		return checker.CheckAndTrigger(ctx, db)
	}
	refreshPrices = func(ctx context.Context, market *marketdata.Service, symbols []string) {
		market.RefreshPrices(ctx, symbols)
	}
)

// StartLoop runs the periodic background cycle: refresh the quote cache for
// the watched symbols, then evaluate the pending alert batch. One failed
// cycle is logged and the loop keeps going; only context cancellation stops it.
func StartLoop(ctx context.Context, db *gorm.DB, checker *alerts.Checker, market *marketdata.Service) error {
	config := GetConfig()

	ticker := time.NewTicker(config.LoopPeriod)
	defer ticker.Stop()

	logger.WithField("period", config.LoopPeriod).Info("background loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("loop stopped")
			return nil

		case <-ticker.C:
			logger.Info("loop tick")
			runCycle(ctx, db, checker, market, config.WatchSymbols)
		}
	}
}

func runCycle(ctx context.Context, db *gorm.DB, checker *alerts.Checker, market *marketdata.Service, symbols []string) {
	if market != nil {
		refreshPrices(ctx, market, symbols)
	}

	triggered, err := checkAlerts(ctx, checker, db)
	if err != nil {
		logger.WithError(err).Error("alert batch failed")
		return
	}

	if triggered > 0 {
		logger.WithField("triggered", triggered).Info("alerts triggered this cycle")
	}
}
