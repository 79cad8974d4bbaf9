package papertrading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelab/src/backtest"
	"tradelab/src/indicator"
	"tradelab/src/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeMarket struct {
	rows     []indicator.Row
	rowsErr  error
	quote    decimal.Decimal
	quoteErr error
}

func (f *fakeMarket) FetchHistory(_ context.Context, _ string, _ int) ([]indicator.Row, error) {
	return f.rows, f.rowsErr
}

func (f *fakeMarket) FetchCurrentPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.quote, f.quoteErr
}

func rsiStrategy() *model.Strategy {
	entry := 30.0
	exit := 70.0
	return &model.Strategy{
		InitialCapital:  d("10000"),
		PositionSizePct: d("50"),
		Conditions: []model.StrategyCondition{
			{ConditionType: model.ConditionTypeEntry, Indicator: "RSI", Operator: model.OperatorLessThan, Value: &entry, Logic: model.LogicAnd, SortOrder: 1},
			{ConditionType: model.ConditionTypeExit, Indicator: "RSI", Operator: model.OperatorGreaterThan, Value: &exit, Logic: model.LogicAnd, SortOrder: 1},
		},
	}
}

func window(rsiPrev, rsiLast, closeLast float64) []indicator.Row {
	start := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	return []indicator.Row{
		{Date: start, Values: map[string]float64{"RSI_14": rsiPrev, "close": closeLast}},
		{Date: start.AddDate(0, 0, 1), Values: map[string]float64{"RSI_14": rsiLast, "close": closeLast}},
	}
}

func TestCheckSignalsFlat(t *testing.T) {
	market := &fakeMarket{rows: window(40, 25, 20)}
	engine := NewEngine(nil, rsiStrategy(), "AAPL", market)

	signals, err := engine.CheckSignals(context.Background())
	require.NoError(t, err)

	assert.True(t, signals.EntrySignal)
	assert.False(t, signals.ExitSignal)
	assert.Equal(t, 20.0, signals.CurrentPrice)
	assert.False(t, signals.Timestamp.IsZero())
}

func TestCheckSignalsLong(t *testing.T) {
	market := &fakeMarket{rows: window(40, 75, 25), quote: d("20")}
	engine := NewEngine(nil, rsiStrategy(), "AAPL", market)

	price := d("20")
	_, err := engine.ExecuteEntry(context.Background(), &price)
	require.NoError(t, err)

	signals, err := engine.CheckSignals(context.Background())
	require.NoError(t, err)

	// long: only the exit set is evaluated
	assert.False(t, signals.EntrySignal)
	assert.True(t, signals.ExitSignal)
}

func TestCheckSignalsNoData(t *testing.T) {
	engine := NewEngine(nil, rsiStrategy(), "AAPL", &fakeMarket{})
	_, err := engine.CheckSignals(context.Background())
	assert.ErrorIs(t, err, backtest.ErrDataUnavailable)
}

func TestExecuteEntryUsesLiveQuoteByDefault(t *testing.T) {
	market := &fakeMarket{quote: d("20")}
	engine := NewEngine(nil, rsiStrategy(), "AAPL", market)

	trade, err := engine.ExecuteEntry(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.True(t, trade.Price.Equal(d("20")))
	assert.EqualValues(t, 250, trade.Quantity)
	assert.True(t, engine.HasOpenPosition())
}

func TestExecuteEntryInsufficientCapital(t *testing.T) {
	strat := rsiStrategy()
	strat.InitialCapital = d("5")
	strat.PositionSizePct = d("100")
	engine := NewEngine(nil, strat, "AAPL", &fakeMarket{quote: d("100")})

	trade, err := engine.ExecuteEntry(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, trade, "rejected entry returns no trade and no error")
	assert.False(t, engine.HasOpenPosition())
}

func TestExecuteEntryQuoteFailure(t *testing.T) {
	engine := NewEngine(nil, rsiStrategy(), "AAPL", &fakeMarket{quoteErr: errors.New("provider down")})
	_, err := engine.ExecuteEntry(context.Background(), nil)
	assert.Error(t, err)
}

func TestExecuteExitRealizesPnL(t *testing.T) {
	engine := NewEngine(nil, rsiStrategy(), "AAPL", &fakeMarket{quote: d("20")})

	_, err := engine.ExecuteEntry(context.Background(), nil)
	require.NoError(t, err)

	exitPrice := d("24")
	closed, err := engine.ExecuteExit(context.Background(), &exitPrice)
	require.NoError(t, err)
	require.Len(t, closed, 1)

	require.NotNil(t, closed[0].PnL)
	assert.True(t, closed[0].PnL.Equal(d("1000")), "pnl: %s", closed[0].PnL)
	assert.False(t, engine.HasOpenPosition())
	assert.Len(t, engine.Trades(), 2)
}

func TestCurrentEquity(t *testing.T) {
	market := &fakeMarket{quote: d("20")}
	engine := NewEngine(nil, rsiStrategy(), "AAPL", market)

	equity, err := engine.CurrentEquity(context.Background())
	require.NoError(t, err)
	assert.True(t, equity.Equal(d("10000")))

	_, err = engine.ExecuteEntry(context.Background(), nil)
	require.NoError(t, err)

	market.quote = d("22")
	equity, err = engine.CurrentEquity(context.Background())
	require.NoError(t, err)
	// 5000 cash + 250 shares at 22
	assert.True(t, equity.Equal(d("10500")), "equity: %s", equity)
}

func TestPerformanceMetricsSnapshot(t *testing.T) {
	market := &fakeMarket{quote: d("20")}
	engine := NewEngine(nil, rsiStrategy(), "AAPL", market)

	_, err := engine.ExecuteEntry(context.Background(), nil)
	require.NoError(t, err)

	exitPrice := d("22")
	_, err = engine.ExecuteExit(context.Background(), &exitPrice)
	require.NoError(t, err)

	metrics, err := engine.PerformanceMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.TotalTrades)
	assert.Equal(t, 1, metrics.WinningTrades)
	assert.True(t, metrics.FinalCapital.Equal(d("10500")), "final: %s", metrics.FinalCapital)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	engine := NewEngine(nil, rsiStrategy(), "AAPL", &fakeMarket{})

	id := registry.Add(engine)
	got, err := registry.Get(id)
	require.NoError(t, err)
	assert.Same(t, engine, got)

	registry.Remove(id)
	_, err = registry.Get(id)
	assert.Error(t, err)
}

func TestConcurrentEntryAndExit(t *testing.T) {
	market := &fakeMarket{rows: window(40, 25, 20), quote: d("20")}
	engine := NewEngine(nil, rsiStrategy(), "AAPL", market)

	price := d("20")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = engine.ExecuteEntry(context.Background(), &price)
		}()
		go func() {
			defer wg.Done()
			_, _ = engine.ExecuteExit(context.Background(), &price)
		}()
	}
	wg.Wait()

	// Every fill happened at the same price, so once flat the session must
	// hold exactly its starting capital no matter how the calls interleaved.
	_, err := engine.ExecuteExit(context.Background(), &price)
	require.NoError(t, err)
	assert.False(t, engine.HasOpenPosition())

	equity, err := engine.CurrentEquity(context.Background())
	require.NoError(t, err)
	assert.True(t, equity.Equal(d("10000")), "expected capital conserved, got %s", equity)
}
