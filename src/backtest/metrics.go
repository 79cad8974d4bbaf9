package backtest

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"tradelab/src/ledger"
)

const tradingDaysPerYear = 252

// Metrics is the performance summary derived from a trade list.
type Metrics struct {
	InitialCapital      decimal.Decimal `json:"initial_capital"`
	FinalCapital        decimal.Decimal `json:"final_capital"`
	TotalReturnPct      float64         `json:"total_return_pct"`
	AnnualizedReturnPct float64         `json:"annualized_return_pct"`
	TotalTrades         int             `json:"total_trades"`
	WinningTrades       int             `json:"winning_trades"`
	LosingTrades        int             `json:"losing_trades"`
	WinRatePct          float64         `json:"win_rate_pct"`
	ProfitFactor        float64         `json:"profit_factor"`
	SharpeRatio         float64         `json:"sharpe_ratio"`
	MaxDrawdownPct      float64         `json:"max_drawdown_pct"`
}

// CalculateMetrics derives return and risk statistics from the trade list.
// openPositions and lastClose cover the defensive case of a still-open
// position; after the engine's forced end-of-run close there is none.
//
// Two quirks are kept on purpose: Sharpe is computed over per-trade PnL
// fractions (not per-period equity returns), and max drawdown walks the
// discrete capital-after-trade snapshots rather than the continuous equity
// curve.
func CalculateMetrics(
	initialCapital decimal.Decimal,
	trades []ledger.Trade,
	openPositions []ledger.Position,
	lastClose decimal.Decimal,
	start, end time.Time,
) Metrics {
	m := Metrics{InitialCapital: initialCapital}

	finalCapital := initialCapital
	if len(trades) > 0 {
		finalCapital = trades[len(trades)-1].CapitalAfter
	}
	for _, position := range openPositions {
		finalCapital = finalCapital.Add(lastClose.Mul(decimal.NewFromInt(position.Quantity)))
	}
	m.FinalCapital = finalCapital

	if initialCapital.GreaterThan(decimal.Zero) {
		m.TotalReturnPct = finalCapital.Sub(initialCapital).
			Div(initialCapital).
			InexactFloat64() * 100
	}
	m.AnnualizedReturnPct = annualize(m.TotalReturnPct, start, end)

	var pnls []float64
	for _, trade := range trades {
		if trade.Type == ledger.TradeTypeSell && trade.PnL != nil {
			pnls = append(pnls, trade.PnL.InexactFloat64())
		}
	}

	m.TotalTrades = len(pnls)
	if len(pnls) == 0 {
		return m
	}

	var winSum, lossSum float64
	for _, pnl := range pnls {
		switch {
		case pnl > 0:
			m.WinningTrades++
			winSum += pnl
		case pnl < 0:
			m.LosingTrades++
			lossSum += pnl
		}
	}

	m.WinRatePct = float64(m.WinningTrades) / float64(m.TotalTrades) * 100

	switch {
	case lossSum != 0:
		m.ProfitFactor = winSum / math.Abs(lossSum)
	case winSum > 0:
		m.ProfitFactor = winSum
	}

	m.SharpeRatio = sharpeRatio(pnls, initialCapital)
	m.MaxDrawdownPct = maxDrawdown(initialCapital, trades)

	return m
}

// annualize compounds the total return over the elapsed calendar span. A
// non-positive span returns the total return unchanged.
func annualize(totalReturnPct float64, start, end time.Time) float64 {
	years := end.Sub(start).Hours() / 24 / 365.25
	if years <= 0 {
		return totalReturnPct
	}

	base := 1 + totalReturnPct/100
	if base <= 0 {
		return totalReturnPct
	}

	return (math.Pow(base, 1/years) - 1) * 100
}

// sharpeRatio annualizes mean/std of per-trade PnL expressed as a fraction
// of initial capital. Fewer than two closed trades, or a degenerate spread,
// yields zero.
func sharpeRatio(pnls []float64, initialCapital decimal.Decimal) float64 {
	if len(pnls) < 2 || !initialCapital.GreaterThan(decimal.Zero) {
		return 0
	}

	capital := initialCapital.InexactFloat64()

	returns := make([]float64, len(pnls))
	var mean float64
	for i, pnl := range pnls {
		returns[i] = pnl / capital
		mean += returns[i]
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown walks [initial_capital] + capital_after of every trade,
// tracking the percentage decline from the running peak.
func maxDrawdown(initialCapital decimal.Decimal, trades []ledger.Trade) float64 {
	peak := initialCapital.InexactFloat64()
	maxDD := 0.0

	for _, trade := range trades {
		value := trade.CapitalAfter.InexactFloat64()
		if value > peak {
			peak = value
		}
		if peak > 0 {
			dd := (peak - value) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}
