package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelab/src/indicator"
	"tradelab/src/ledger"
	"tradelab/src/model"
)

type fakeMarketData struct {
	rows []indicator.Row
	err  error
}

func (f *fakeMarketData) FetchHistory(_ context.Context, _ string, _ int) ([]indicator.Row, error) {
	return f.rows, f.err
}

// rsiStrategy enters on RSI < 30 and exits on RSI > 70.
func rsiStrategy() *model.Strategy {
	entry := 30.0
	exit := 70.0
	return &model.Strategy{
		ID:              7,
		Name:            "rsi reversal",
		InitialCapital:  d("10000"),
		PositionSizePct: d("50"),
		Conditions: []model.StrategyCondition{
			{
				ConditionType: model.ConditionTypeEntry,
				Indicator:     "RSI",
				Operator:      model.OperatorLessThan,
				Value:         &entry,
				Logic:         model.LogicAnd,
				SortOrder:     1,
			},
			{
				ConditionType: model.ConditionTypeExit,
				Indicator:     "RSI",
				Operator:      model.OperatorGreaterThan,
				Value:         &exit,
				Logic:         model.LogicAnd,
				SortOrder:     1,
			},
		},
	}
}

// syntheticSeries builds count daily rows at a flat close of 20 with neutral
// RSI, then applies overrides per index.
func syntheticSeries(count int, rsi map[int]float64, close map[int]float64) []indicator.Row {
	rows := make([]indicator.Row, count)
	start := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	for i := range rows {
		r := 50.0
		if v, ok := rsi[i]; ok {
			r = v
		}
		c := 20.0
		if v, ok := close[i]; ok {
			c = v
		}
		rows[i] = indicator.Row{
			Date:   start.AddDate(0, 0, i),
			Values: map[string]float64{"RSI_14": r, "close": c},
		}
	}

	return rows
}

func TestRunEmptyHistory(t *testing.T) {
	engine := NewEngine(nil, &fakeMarketData{})

	_, err := engine.Run(context.Background(), rsiStrategy(), "AAPL", 365)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestRunNilStrategy(t *testing.T) {
	engine := NewEngine(nil, &fakeMarketData{})
	_, err := engine.Run(context.Background(), nil, "AAPL", 365)
	assert.Error(t, err)
}

func TestRunSingleRoundTrip(t *testing.T) {
	rows := syntheticSeries(100,
		map[int]float64{10: 25, 50: 75},
		map[int]float64{50: 24},
	)
	engine := NewEngine(nil, &fakeMarketData{rows: rows})

	result, err := engine.Run(context.Background(), rsiStrategy(), "AAPL", 100)
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)
	buy, sell := result.Trades[0], result.Trades[1]

	assert.Equal(t, ledger.TradeTypeBuy, buy.Type)
	assert.EqualValues(t, 250, buy.Quantity)
	assert.True(t, buy.Price.Equal(d("20")))
	assert.Equal(t, rows[10].Date, buy.Date)

	assert.Equal(t, ledger.TradeTypeSell, sell.Type)
	assert.Equal(t, rows[50].Date, sell.Date)
	require.NotNil(t, sell.PnL)
	// 250 shares * (24 - 20)
	assert.True(t, sell.PnL.Equal(d("1000")), "pnl: %s", sell.PnL)

	assert.Len(t, result.EquityCurve, 100)
	assert.Equal(t, 1, result.Metrics.TotalTrades)
	assert.True(t, result.Metrics.FinalCapital.Equal(d("11000")), "final: %s", result.Metrics.FinalCapital)
	assert.Equal(t, rows[0].Date, result.StartDate)
	assert.Equal(t, rows[99].Date, result.EndDate)
	assert.NotEqual(t, "", result.ID.String())
}

func TestRunForcesCloseAtEndOfData(t *testing.T) {
	// Entry fires, no exit signal ever: the run must still end flat.
	rows := syntheticSeries(30, map[int]float64{5: 25}, map[int]float64{29: 22})
	engine := NewEngine(nil, &fakeMarketData{rows: rows})

	result, err := engine.Run(context.Background(), rsiStrategy(), "AAPL", 30)
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)
	sell := result.Trades[1]
	assert.Equal(t, ledger.TradeTypeSell, sell.Type)
	assert.Equal(t, rows[29].Date, sell.Date)
	assert.True(t, sell.Price.Equal(d("22")))
	assert.Equal(t, 1, result.Metrics.TotalTrades)
}

func TestRunZeroSignals(t *testing.T) {
	rows := syntheticSeries(40, nil, nil)
	engine := NewEngine(nil, &fakeMarketData{rows: rows})

	result, err := engine.Run(context.Background(), rsiStrategy(), "AAPL", 40)
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 0, result.Metrics.TotalTrades)
	assert.True(t, result.Metrics.FinalCapital.Equal(d("10000")))
	assert.Len(t, result.EquityCurve, 40)
	for _, point := range result.EquityCurve {
		assert.True(t, point.Equity.Equal(d("10000")))
	}
}

func TestRunEquityCurveMarksOpenPosition(t *testing.T) {
	rows := syntheticSeries(4,
		map[int]float64{1: 25},
		map[int]float64{2: 30, 3: 30},
	)
	engine := NewEngine(nil, &fakeMarketData{rows: rows})

	result, err := engine.Run(context.Background(), rsiStrategy(), "AAPL", 4)
	require.NoError(t, err)

	// buy at 20 on row 1 (250 shares), marked at 30 on rows 2 and 3
	require.Len(t, result.EquityCurve, 4)
	assert.True(t, result.EquityCurve[0].Equity.Equal(d("10000")))
	assert.True(t, result.EquityCurve[1].Equity.Equal(d("10000")))
	assert.True(t, result.EquityCurve[2].Equity.Equal(d("12500")), "equity: %s", result.EquityCurve[2].Equity)
	assert.True(t, result.EquityCurve[3].Equity.Equal(d("12500")))
}
