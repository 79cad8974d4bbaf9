package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradelab/src/evaluator"
	"tradelab/src/indicator"
	"tradelab/src/ledger"
	"tradelab/src/model"
)

// ErrDataUnavailable is returned when no historical rows exist for the
// requested ticker/period. The HTTP layer maps it to a user-facing error.
var ErrDataUnavailable = errors.New("historical data unavailable")

// MarketData supplies historical candles already augmented with indicator
// columns, in ascending date order.
type MarketData interface {
	FetchHistory(ctx context.Context, symbol string, period int) ([]indicator.Row, error)
}

// Result is the full outcome of one backtest run.
type Result struct {
	ID          uuid.UUID            `json:"id"`
	StrategyID  uint                 `json:"strategy_id"`
	Ticker      string               `json:"ticker"`
	StartDate   time.Time            `json:"start_date"`
	EndDate     time.Time            `json:"end_date"`
	Metrics     Metrics              `json:"metrics"`
	Trades      []ledger.Trade       `json:"trades"`
	EquityCurve []ledger.EquityPoint `json:"equity_curve"`
}

// ToRun flattens the result into its persisted form.
func (r *Result) ToRun(userID uint, period int) *model.BacktestRun {
	return &model.BacktestRun{
		ID:                  r.ID.String(),
		UserID:              userID,
		StrategyID:          r.StrategyID,
		Ticker:              r.Ticker,
		Period:              period,
		StartDate:           r.StartDate,
		EndDate:             r.EndDate,
		InitialCapital:      r.Metrics.InitialCapital,
		FinalCapital:        r.Metrics.FinalCapital,
		TotalReturnPct:      r.Metrics.TotalReturnPct,
		AnnualizedReturnPct: r.Metrics.AnnualizedReturnPct,
		TotalTrades:         r.Metrics.TotalTrades,
		WinningTrades:       r.Metrics.WinningTrades,
		LosingTrades:        r.Metrics.LosingTrades,
		WinRatePct:          r.Metrics.WinRatePct,
		ProfitFactor:        r.Metrics.ProfitFactor,
		SharpeRatio:         r.Metrics.SharpeRatio,
		MaxDrawdownPct:      r.Metrics.MaxDrawdownPct,
		Trades:              r.Trades,
		EquityCurve:         r.EquityCurve,
	}
}

// Engine replays a strategy against historical data. A run is a single-slot
// state machine: flat until the ENTRY set fires and capital suffices, long
// until the EXIT set fires or data ends. Engines are synchronous and hold no
// shared state; construct one per run.
type Engine struct {
	logger *logrus.Entry
	market MarketData
}

func NewEngine(logger *logrus.Entry, market MarketData) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{logger: logger, market: market}
}

func (e *Engine) Run(ctx context.Context, strat *model.Strategy, ticker string, period int) (*Result, error) {
	if strat == nil {
		return nil, fmt.Errorf("strategy is nil")
	}

	rows, err := e.market.FetchHistory(ctx, ticker, period)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", ticker, err)
	}
	if len(rows) == 0 {
		e.logger.WithField("ticker", ticker).Warn("no historical rows for backtest")
		return nil, ErrDataUnavailable
	}

	led := ledger.New(strat.InitialCapital, strat.PositionSizePct)
	equityCurve := make([]ledger.EquityPoint, 0, len(rows))

	var (
		prev      *indicator.Row
		lastPrice decimal.Decimal
	)

	for i := range rows {
		row := rows[i]

		if close, ok := indicator.Resolve(row, indicator.NameClose); ok {
			price := decimal.NewFromFloat(close)
			lastPrice = price

			if led.HasOpenPosition() {
				if evaluator.EvaluateSet(row, prev, strat.Conditions, model.ConditionTypeExit) {
					led.CloseAll(row.Date, price)
				}
			} else if evaluator.EvaluateSet(row, prev, strat.Conditions, model.ConditionTypeEntry) {
				led.Buy(row.Date, price)
			}
		}

		equityCurve = append(equityCurve, ledger.EquityPoint{
			Date:   row.Date,
			Equity: led.Equity(lastPrice),
		})

		prev = &rows[i]
	}

	// Terminal transition: any position still open is closed at the last
	// row's price, independent of the EXIT rules.
	lastRow := rows[len(rows)-1]
	if led.HasOpenPosition() {
		led.CloseAll(lastRow.Date, lastPrice)
	}

	metrics := CalculateMetrics(
		strat.InitialCapital,
		led.Trades(),
		led.Positions(),
		lastPrice,
		rows[0].Date,
		lastRow.Date,
	)

	result := &Result{
		ID:          uuid.New(),
		StrategyID:  strat.ID,
		Ticker:      ticker,
		StartDate:   rows[0].Date,
		EndDate:     lastRow.Date,
		Metrics:     metrics,
		Trades:      led.Trades(),
		EquityCurve: equityCurve,
	}

	e.logger.WithFields(logrus.Fields{
		"strategy_id":  strat.ID,
		"ticker":       ticker,
		"rows":         len(rows),
		"total_trades": metrics.TotalTrades,
	}).Info("backtest run completed")

	return result, nil
}
