package model

import (
	"time"

	"github.com/shopspring/decimal"

	"tradelab/src/ledger"
)

// BacktestRun is the stored copy of a completed backtest: flattened metrics
// plus the trade list and equity curve, kept for history and replay.
type BacktestRun struct {
	ID                  string          `gorm:"primaryKey;size:36" json:"id"`
	UserID              uint            `gorm:"index" json:"user_id"`
	StrategyID          uint            `gorm:"not null;index" json:"strategy_id"`
	Ticker              string          `gorm:"size:20;not null" json:"ticker"`
	Period              int             `gorm:"not null" json:"period"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	InitialCapital      decimal.Decimal `gorm:"type:numeric(20,8)" json:"initial_capital"`
	FinalCapital        decimal.Decimal `gorm:"type:numeric(20,8)" json:"final_capital"`
	TotalReturnPct      float64         `json:"total_return_pct"`
	AnnualizedReturnPct float64         `json:"annualized_return_pct"`
	TotalTrades         int             `json:"total_trades"`
	WinningTrades       int             `json:"winning_trades"`
	LosingTrades        int             `json:"losing_trades"`
	WinRatePct          float64         `json:"win_rate_pct"`
	ProfitFactor        float64         `json:"profit_factor"`
	SharpeRatio         float64         `json:"sharpe_ratio"`
	MaxDrawdownPct      float64         `json:"max_drawdown_pct"`
	Trades              []ledger.Trade  `gorm:"type:jsonb;serializer:json" json:"trades,omitempty"`
	EquityCurve         []ledger.EquityPoint `gorm:"type:jsonb;serializer:json" json:"equity_curve,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`

	Strategy *Strategy `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (BacktestRun) TableName() string {
	return "backtest_runs"
}
