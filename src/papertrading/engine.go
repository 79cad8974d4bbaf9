package papertrading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradelab/src/backtest"
	"tradelab/src/evaluator"
	"tradelab/src/indicator"
	"tradelab/src/ledger"
	"tradelab/src/model"
)

// defaultLookback is how many recent rows are fetched when checking signals;
// enough history for every indicator column to be populated.
const defaultLookback = 50

// MarketData supplies the latest indicator rows and a live quote.
type MarketData interface {
	FetchHistory(ctx context.Context, symbol string, period int) ([]indicator.Row, error)
	FetchCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Signals is the outcome of one poll: what the strategy says right now.
// Checking signals never executes trades; the caller decides.
type Signals struct {
	EntrySignal  bool      `json:"entry_signal"`
	ExitSignal   bool      `json:"exit_signal"`
	CurrentPrice float64   `json:"current_price"`
	Timestamp    time.Time `json:"timestamp"`
}

// Engine runs a strategy incrementally against live data. It is pull-based:
// an external scheduler calls CheckSignals on its own cadence, and entries
// and exits only happen when the caller invokes them. The engine holds no
// timer and no concurrency of its own.
type Engine struct {
	logger    *logrus.Entry
	strategy  *model.Strategy
	symbol    string
	market    MarketData
	led       *ledger.Ledger
	mu        sync.Mutex // guards led against concurrent session requests
	lookback  int
	startedAt time.Time
	now       func() time.Time
}

func NewEngine(logger *logrus.Entry, strat *model.Strategy, symbol string, market MarketData) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	now := time.Now

	return &Engine{
		logger:    logger.WithField("symbol", symbol),
		strategy:  strat,
		symbol:    symbol,
		market:    market,
		led:       ledger.New(strat.InitialCapital, strat.PositionSizePct),
		lookback:  defaultLookback,
		startedAt: now(),
		now:       now,
	}
}

// CheckSignals evaluates the strategy against the latest row: the EXIT set
// when a position is open, the ENTRY set when flat.
func (e *Engine) CheckSignals(ctx context.Context) (*Signals, error) {
	rows, err := e.market.FetchHistory(ctx, e.symbol, e.lookback)
	if err != nil {
		return nil, fmt.Errorf("fetch latest window for %s: %w", e.symbol, err)
	}
	if len(rows) == 0 {
		return nil, backtest.ErrDataUnavailable
	}

	last := rows[len(rows)-1]
	var prev *indicator.Row
	if len(rows) >= 2 {
		prev = &rows[len(rows)-2]
	}

	signals := &Signals{Timestamp: e.now()}
	if price, ok := indicator.Resolve(last, indicator.NameClose); ok {
		signals.CurrentPrice = price
	}

	if e.HasOpenPosition() {
		signals.ExitSignal = evaluator.EvaluateSet(last, prev, e.strategy.Conditions, model.ConditionTypeExit)
	} else {
		signals.EntrySignal = evaluator.EvaluateSet(last, prev, e.strategy.Conditions, model.ConditionTypeEntry)
	}

	return signals, nil
}

// ExecuteEntry buys at the given price, or at the live quote when price is
// nil. A nil trade with a nil error means the buy was rejected for
// insufficient capital.
func (e *Engine) ExecuteEntry(ctx context.Context, price *decimal.Decimal) (*ledger.Trade, error) {
	executionPrice, err := e.resolvePrice(ctx, price)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	trade := e.led.Buy(e.now(), executionPrice)
	e.mu.Unlock()
	if trade == nil {
		e.logger.WithField("price", executionPrice).Info("entry rejected: insufficient capital")
		return nil, nil
	}

	e.logger.WithFields(logrus.Fields{
		"price":    executionPrice,
		"quantity": trade.Quantity,
	}).Info("paper entry executed")

	return trade, nil
}

// ExecuteExit closes every open position at the given price, or at the live
// quote when price is nil.
func (e *Engine) ExecuteExit(ctx context.Context, price *decimal.Decimal) ([]ledger.Trade, error) {
	executionPrice, err := e.resolvePrice(ctx, price)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	closed := e.led.CloseAll(e.now(), executionPrice)
	e.mu.Unlock()
	if len(closed) > 0 {
		e.logger.WithFields(logrus.Fields{
			"price":  executionPrice,
			"trades": len(closed),
		}).Info("paper exit executed")
	}

	return closed, nil
}

// CurrentEquity is cash plus open positions marked at the live quote.
func (e *Engine) CurrentEquity(ctx context.Context) (decimal.Decimal, error) {
	if !e.HasOpenPosition() {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.led.Capital(), nil
	}

	price, err := e.market.FetchCurrentPrice(ctx, e.symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch current price for %s: %w", e.symbol, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.led.Equity(price), nil
}

// PerformanceMetrics is a point-in-time snapshot over the session's trades,
// with any open position marked at the live quote.
func (e *Engine) PerformanceMetrics(ctx context.Context) (backtest.Metrics, error) {
	price := decimal.Zero
	if e.HasOpenPosition() {
		var err error
		price, err = e.market.FetchCurrentPrice(ctx, e.symbol)
		if err != nil {
			return backtest.Metrics{}, fmt.Errorf("fetch current price for %s: %w", e.symbol, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return backtest.CalculateMetrics(
		e.strategy.InitialCapital,
		e.led.Trades(),
		e.led.Positions(),
		price,
		e.startedAt,
		e.now(),
	), nil
}

func (e *Engine) Trades() []ledger.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.led.Trades()
}

func (e *Engine) HasOpenPosition() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.led.HasOpenPosition()
}

func (e *Engine) resolvePrice(ctx context.Context, price *decimal.Decimal) (decimal.Decimal, error) {
	if price != nil {
		return *price, nil
	}

	quote, err := e.market.FetchCurrentPrice(ctx, e.symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch current price for %s: %w", e.symbol, err)
	}

	return quote, nil
}
