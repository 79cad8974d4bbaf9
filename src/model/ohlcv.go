package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLCVDaily is one daily candle as ingested by the price-sync job.
// (symbol, datetime) is unique so re-ingestion upserts instead of duplicating.
type OHLCVDaily struct {
	ID       uint            `gorm:"primaryKey"`
	Symbol   string          `json:"symbol"   gorm:"type:varchar(50);not null;uniqueIndex:ux_ohlcv_daily_symbol_datetime,priority:1;index:idx_ohlcv_daily_symbol_datetime,priority:1"`
	Datetime time.Time       `json:"datetime" gorm:"not null;uniqueIndex:ux_ohlcv_daily_symbol_datetime,priority:2;index:idx_ohlcv_daily_symbol_datetime,priority:2"`
	Open     decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High     decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low      decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close    decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume   decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
}

func (OHLCVDaily) TableName() string {
	return "ohlcv_daily"
}
