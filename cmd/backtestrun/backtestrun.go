package backtestrun

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/backtest"
	"tradelab/src/marketdata"
	"tradelab/src/repository"
)

type BacktestRun struct {
	Log *logrus.Entry
	DB  *gorm.DB
}

// Run executes one backtest for a stored strategy, persists the run and
// prints its metrics to stdout. The run is recorded under the strategy
// owner's account.
func (b *BacktestRun) Run(ctx context.Context, strategyID uint, ticker string, period int) error {
	strategies := repository.NewStrategyRepositoryWithDB(b.DB)
	strat, err := strategies.GetByID(ctx, strategyID)
	if err != nil {
		return fmt.Errorf("load strategy %d: %w", strategyID, err)
	}

	mdConfig := marketdata.GetConfig()
	market := marketdata.NewService(
		nil,
		repository.NewOHLCVRepositoryWithDB(b.DB),
		marketdata.NewIndicatorClient(mdConfig.IndicatorBaseURL),
		marketdata.NewQuoteClient(mdConfig.QuoteBaseURL, mdConfig.QuoteAPIKey),
		marketdata.NewPriceCache(mdConfig.PriceMaxAge),
	)

	engine := backtest.NewEngine(b.Log, market)
	result, err := engine.Run(ctx, strat, ticker, period)
	if err != nil {
		return err
	}

	run := result.ToRun(strat.UserID, period)
	if err := repository.NewBacktestRunRepositoryWithDB(b.DB).Create(ctx, run); err != nil {
		return fmt.Errorf("persist backtest run: %w", err)
	}

	b.Log.WithFields(logrus.Fields{
		"RunID":    run.ID,
		"Strategy": strat.Name,
		"Ticker":   ticker,
		"Trades":   run.TotalTrades,
	}).Info("backtest run stored")

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result.Metrics)
}
